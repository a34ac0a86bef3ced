package gatewaystest

import (
	"context"
	"fmt"
	"sync"

	"github.com/ochairo/unipkg/internal/domain-adapters/gateways"
)

// Handler simulates one external tool
type Handler func(cmd gateways.Command) *gateways.ExecuteResult

// Runner is a scripted gateways.ToolRunner that records every call
type Runner struct {
	mu       sync.Mutex
	handlers map[string]Handler
	calls    []gateways.Command
}

// NewRunner creates a runner with no tools installed
func NewRunner() *Runner {
	return &Runner{handlers: make(map[string]Handler)}
}

// Handle installs h for the tool called name, replacing any previous handler
func (r *Runner) Handle(name string, h Handler) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
	return r
}

// Run dispatches to the handler registered for cmd.Name
func (r *Runner) Run(_ context.Context, cmd gateways.Command) *gateways.ExecuteResult {
	r.mu.Lock()
	r.calls = append(r.calls, cmd)
	h, ok := r.handlers[cmd.Name]
	r.mu.Unlock()

	if !ok {
		return Failed(127, fmt.Sprintf("%s: command not found", cmd.Name))
	}
	return h(cmd)
}

// Calls returns every recorded command in order
func (r *Runner) Calls() []gateways.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]gateways.Command(nil), r.calls...)
}

// CallsTo returns the recorded commands for one tool
func (r *Runner) CallsTo(name string) []gateways.Command {
	var out []gateways.Command
	for _, c := range r.Calls() {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// OK is a successful result with the given stdout
func OK(stdout string) *gateways.ExecuteResult {
	return &gateways.ExecuteResult{Success: true, Stdout: stdout}
}

// Failed is a non-zero exit with the given stderr
func Failed(code int, stderr string) *gateways.ExecuteResult {
	return &gateways.ExecuteResult{
		ExitCode: code,
		Stderr:   stderr,
		Error:    fmt.Errorf("exit status %d", code),
	}
}
