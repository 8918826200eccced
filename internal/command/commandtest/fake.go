// Package commandtest provides a scripted command.Runner for tests.
package commandtest

import (
	"context"
	"strings"
	"sync"

	"github.com/bryanchriswhite/DisplaySwitcher/internal/command"
)

// Call records one invocation
type Call struct {
	Name string
	Args []string
}

// String renders the call as a shell-like command line
func (c Call) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Response is returned for a matching invocation
type Response struct {
	Result command.Result
	Err    error
}

// Runner answers commands by their first argument ("list", "set",
// "lock-session", ...) and records every call.
type Runner struct {
	mu        sync.Mutex
	calls     []Call
	responses map[string][]Response
}

// New creates an empty fake runner. Unscripted commands succeed with no output.
func New() *Runner {
	return &Runner{responses: make(map[string][]Response)}
}

// On queues a response for the next call whose first argument is sub.
// The last queued response for a sub-command is reused once the queue drains.
func (r *Runner) On(sub string, resp Response) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses[sub] = append(r.responses[sub], resp)
	return r
}

// Run implements command.Runner
func (r *Runner) Run(_ context.Context, name string, args ...string) (command.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, Call{Name: name, Args: append([]string(nil), args...)})

	sub := ""
	if len(args) > 0 {
		sub = args[0]
	}
	queue := r.responses[sub]
	if len(queue) == 0 {
		return command.Result{}, nil
	}
	resp := queue[0]
	if len(queue) > 1 {
		r.responses[sub] = queue[1:]
	}
	return resp.Result, resp.Err
}

// Calls returns a copy of the recorded calls
func (r *Runner) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// CallsTo returns the recorded calls whose first argument is sub
func (r *Runner) CallsTo(sub string) []Call {
	var out []Call
	for _, c := range r.Calls() {
		if len(c.Args) > 0 && c.Args[0] == sub {
			out = append(out, c)
		}
	}
	return out
}
