// Package gateways provides adapter implementations for external services and tools.
package gateways

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/ochairo/unipkg/internal/domain/interfaces"
)

// DefaultToolTimeout bounds a single external tool invocation
const DefaultToolTimeout = 30 * time.Minute

// Command is one external tool invocation
type Command struct {
	Name       string
	Args       []string
	WorkingDir string
	Timeout    time.Duration
}

func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// ExecuteResult contains the result of a tool execution
type ExecuteResult struct {
	Success  bool
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
	Error    error
}

// Combined returns stdout followed by stderr, for diagnostics
func (r *ExecuteResult) Combined() string {
	return strings.TrimSpace(r.Stdout + "\n" + r.Stderr)
}

// Err returns nil for a successful run, otherwise an error describing it
func (r *ExecuteResult) Err() error {
	if r.Success {
		return nil
	}
	msg := fmt.Sprintf("exit %d", r.ExitCode)
	if out := r.Combined(); out != "" {
		msg += ": " + out
	}
	if r.Error != nil {
		return fmt.Errorf("%s: %w", msg, r.Error)
	}
	return errors.New(msg)
}

// ToolRunner is the single seam across which external processes are run
type ToolRunner interface {
	Run(ctx context.Context, cmd Command) *ExecuteResult
}

// ExecRunner runs tools as subprocesses
type ExecRunner struct {
	defaultTimeout time.Duration
	logger         interfaces.Logger
}

// NewExecRunner creates a runner; a zero timeout selects DefaultToolTimeout
func NewExecRunner(timeout time.Duration, logger interfaces.Logger) *ExecRunner {
	if timeout <= 0 {
		timeout = DefaultToolTimeout
	}
	return &ExecRunner{
		defaultTimeout: timeout,
		logger:         interfaces.OrNoOp(logger).Named("tool"),
	}
}

// Run executes cmd and captures its output
func (r *ExecRunner) Run(ctx context.Context, cmd Command) *ExecuteResult {
	startTime := time.Now()
	result := &ExecuteResult{}

	timeout := cmd.Timeout
	if timeout == 0 {
		timeout = r.defaultTimeout
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	//nolint:gosec // G204: tool names are fixed by the callers in this package
	c := exec.CommandContext(execCtx, cmd.Name, cmd.Args...)
	if cmd.WorkingDir != "" {
		c.Dir = cmd.WorkingDir
	}

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	r.logger.Debug("running tool", interfaces.F("command", cmd.String()))

	err := c.Run()
	result.Duration = time.Since(startTime)
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()

	if err != nil {
		result.Error = err
		var exitErr *exec.ExitError
		//nolint:gocritic // ifElseChain: checking different error types, not suitable for switch
		if execCtx.Err() == context.DeadlineExceeded {
			result.Error = fmt.Errorf("%s timed out after %v", cmd.Name, timeout)
			result.ExitCode = -1
		} else if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
		}
		r.logger.Debug("tool failed",
			interfaces.F("command", cmd.Name),
			interfaces.F("exit_code", result.ExitCode),
			interfaces.F("duration", result.Duration))
		return result
	}

	result.Success = true
	result.ExitCode = 0
	r.logger.Debug("tool finished", interfaces.F("command", cmd.Name), interfaces.F("duration", result.Duration))
	return result
}
