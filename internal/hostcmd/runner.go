// Package hostcmd runs external host programs and captures their output.
package hostcmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Result is the captured outcome of a finished command.
type Result struct {
	Code   int
	Stdout string
	Stderr string
}

// Combined returns stdout and stderr joined, trimmed.
func (r Result) Combined() string {
	return strings.TrimSpace(strings.TrimSpace(r.Stdout) + "\n" + strings.TrimSpace(r.Stderr))
}

// Runner executes a named program with arguments.
// A non-zero exit code is reported in Result, not as an error; an error means
// the program could not be started or was interrupted.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
}

// ExecRunner is the os/exec backed Runner.
type ExecRunner struct {
	// Env, when set, replaces the inherited environment.
	Env []string
}

// NewExecRunner returns a Runner that inherits the current environment.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run starts the program and waits for it to exit.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if r.Env != nil {
		cmd.Env = r.Env
	}
	HideWindow(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return res, nil
	case errors.As(err, &exitErr):
		if ctx.Err() != nil {
			return res, fmt.Errorf("%s: %w", name, ctx.Err())
		}
		res.Code = exitErr.ExitCode()
		return res, nil
	default:
		return res, fmt.Errorf("run %s: %w", name, err)
	}
}
