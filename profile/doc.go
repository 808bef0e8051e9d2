// Package profile starts optional runtime profiling of the jinx command.
//
// Profiling uses [github.com/pkg/profile] and is compiled in only with the
// pprof build tag:
//
//	go build -tags pprof -o jinx .
//
// Without the tag [Modes] is empty and [Config.Start] returns a no-op
// stopper, so callers never need their own build constraints.
//
// Supported modes: allocs, block, clock, cpu, goroutine, heap, mem, mutex,
// thread and trace. Profiles are written under the configured directory,
// which the command defaults to the pprof directory of the user cache:
//
//	jinx --pprof-mode=cpu render query.sql
//	go tool pprof -http=: ~/.cache/jinx/pprof/cpu.pprof
package profile
