package profile

import "testing"

func TestConfig_Options(t *testing.T) {
	var c Config = func() (string, string, bool) { return "", "", false }

	c = WithMode("cpu")(c)
	c = WithPath("/tmp/p")(c)
	c = WithQuiet(true)(c)

	mode, path, quiet := c()
	if mode != "cpu" || path != "/tmp/p" || !quiet {
		t.Errorf("Config() = %q, %q, %v", mode, path, quiet)
	}
}

func TestConfig_StartWithoutMode(t *testing.T) {
	var c Config = func() (string, string, bool) { return "", t.TempDir(), true }

	stopper := c.Start()
	if _, ok := stopper.(ignore); !ok {
		t.Errorf("Start() = %T, want no-op", stopper)
	}

	stopper.Stop()
}
