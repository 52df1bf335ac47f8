package hostcmd

import (
	"context"
	"strings"
	"sync"
)

// Call records one invocation made through a FakeRunner.
type Call struct {
	Name string
	Args []string
}

// String renders the call as a shell-like command line.
func (c Call) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// FakeRunner is a scripted Runner for tests. Handler decides the result of
// each call; when nil every call succeeds with empty output.
type FakeRunner struct {
	Handler func(name string, args []string) (Result, error)

	mu    sync.Mutex
	calls []Call
}

// Run records the call and delegates to Handler.
func (f *FakeRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Name: name, Args: append([]string(nil), args...)})
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if f.Handler == nil {
		return Result{}, nil
	}
	return f.Handler(name, args)
}

// Calls returns a copy of the recorded calls.
func (f *FakeRunner) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}
