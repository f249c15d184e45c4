package runner

import (
	"context"
	"strings"
	"sync"
)

// Call is one invocation recorded by Fake.
type Call struct {
	Name string
	Args []string
}

func (c Call) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Fake is a Runner for tests. Handler decides the outcome of every call;
// when Handler is nil each call succeeds with empty output.
type Fake struct {
	Handler func(ctx context.Context, name string, args []string) (Result, error)

	mu    sync.Mutex
	calls []Call
}

func (f *Fake) Run(ctx context.Context, name string, args ...string) (Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Name: name, Args: append([]string(nil), args...)})
	f.mu.Unlock()

	if f.Handler == nil {
		return Result{}, nil
	}
	return f.Handler(ctx, name, args)
}

func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallsTo returns the recorded calls whose command name matches name.
func (f *Fake) CallsTo(name string) []Call {
	var out []Call
	for _, call := range f.Calls() {
		if call.Name == name {
			out = append(out, call)
		}
	}
	return out
}
