package cmd

import "testing"

func TestConfigValue(t *testing.T) {
	s := "x"
	empty := ""

	tests := []struct {
		name string
		in   any
		want any
	}{
		{"nil", nil, nil},
		{"empty_string", "", nil},
		{"string", "warn", "warn"},
		{"empty_slice", []string{}, nil},
		{"pointer", &s, "x"},
		{"empty_pointer", &empty, nil},
		{"bool", false, false},
		{"int", 500, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := configValue(tt.in); got != tt.want {
				t.Errorf("configValue(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
