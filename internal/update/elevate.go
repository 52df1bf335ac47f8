// Package update runs the bundled binary's self-update with administrator
// rights when it lives in a location the user cannot write to.
package update

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/exec"
	"strings"

	"github.com/awsl-project/deskshell/internal/hostcmd"
)

// ErrCancelled is returned when the user dismissed the elevation prompt.
var ErrCancelled = errors.New("elevation cancelled by user")

// pkexec exit codes.
const (
	pkexecDismissed    = 126
	pkexecUnauthorized = 127
)

// Elevator runs programs with administrator rights on one OS.
type Elevator struct {
	runner   hostcmd.Runner
	goos     string
	lookPath func(string) (string, error)
}

// NewElevator creates an Elevator for goos.
func NewElevator(runner hostcmd.Runner, goos string) *Elevator {
	return &Elevator{runner: runner, goos: goos, lookPath: exec.LookPath}
}

// Run executes program with args elevated and waits for it.
func (e *Elevator) Run(ctx context.Context, program string, args ...string) (hostcmd.Result, error) {
	name, cmdArgs, err := e.command(program, args)
	if err != nil {
		return hostcmd.Result{}, err
	}

	log.Printf("[Update] Running %s elevated via %s", program, name)
	res, err := e.runner.Run(ctx, name, cmdArgs...)
	if err != nil {
		return res, err
	}
	if e.cancelled(res) {
		return res, ErrCancelled
	}
	return res, nil
}

// SelfUpdate runs `binary selfupdate` elevated. The command output is
// returned; a non-zero exit is an error carrying that output.
func (e *Elevator) SelfUpdate(ctx context.Context, binary string) (string, error) {
	if strings.TrimSpace(binary) == "" {
		return "", errors.New("binary path is required")
	}

	res, err := e.Run(ctx, binary, "selfupdate")
	if err != nil {
		return res.Combined(), err
	}
	if res.Code != 0 {
		return res.Combined(), fmt.Errorf("selfupdate exited with %d: %s", res.Code, res.Combined())
	}
	return res.Combined(), nil
}

func (e *Elevator) cancelled(res hostcmd.Result) bool {
	switch e.goos {
	case "darwin":
		return res.Code != 0 && strings.Contains(res.Stderr, "-128")
	case "windows":
		return res.Code != 0 && strings.Contains(strings.ToLower(res.Stderr), "canceled by the user")
	default:
		return res.Code == pkexecDismissed || res.Code == pkexecUnauthorized
	}
}

func (e *Elevator) command(program string, args []string) (string, []string, error) {
	switch e.goos {
	case "darwin":
		return "osascript", []string{"-e", appleScriptAdmin(program, args)}, nil
	case "windows":
		return "powershell", []string{"-NoProfile", "-NonInteractive", "-Command", startProcessScript(program, args)}, nil
	default:
		if _, err := e.lookPath("pkexec"); err != nil {
			return "", nil, fmt.Errorf("pkexec not available: %w", err)
		}
		return "pkexec", append([]string{program}, args...), nil
	}
}

// shellQuote single-quotes s for /bin/sh.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func appleScriptAdmin(program string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, shellQuote(program))
	for _, a := range args {
		parts = append(parts, shellQuote(a))
	}
	cmd := strings.Join(parts, " ")
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(cmd)
	return `do shell script "` + escaped + `" with administrator privileges`
}

func startProcessScript(program string, args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = "'" + strings.ReplaceAll(a, "'", "''") + "'"
	}
	argList := ""
	if len(quoted) > 0 {
		argList = " -ArgumentList @(" + strings.Join(quoted, ",") + ")"
	}
	return "$p = Start-Process -FilePath '" + strings.ReplaceAll(program, "'", "''") + "'" + argList +
		" -Verb RunAs -Wait -PassThru; exit $p.ExitCode"
}
