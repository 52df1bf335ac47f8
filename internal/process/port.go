package process

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/awsl-project/deskshell/internal/hostcmd"
)

// PortLocator finds the process listening on a local TCP port.
type PortLocator struct {
	runner hostcmd.Runner
	goos   string
}

// NewPortLocator creates a locator for the given GOOS.
func NewPortLocator(runner hostcmd.Runner, goos string) *PortLocator {
	return &PortLocator{runner: runner, goos: goos}
}

// PIDByPort returns the PID listening on port, or -1 when the port is free.
func (l *PortLocator) PIDByPort(ctx context.Context, port int) (int, error) {
	if port <= 0 || port > 65535 {
		return -1, fmt.Errorf("invalid port: %d", port)
	}

	if l.goos == "windows" {
		res, err := l.runner.Run(ctx, "netstat", "-ano", "-p", "TCP")
		if err != nil {
			return -1, fmt.Errorf("run netstat: %w", err)
		}
		if res.Code != 0 {
			return -1, fmt.Errorf("netstat exited with %d: %s", res.Code, res.Combined())
		}
		return parseNetstatPID(res.Stdout, port), nil
	}

	res, err := l.runner.Run(ctx, "lsof", "-nP", fmt.Sprintf("-iTCP:%d", port), "-sTCP:LISTEN", "-t")
	if err != nil {
		return -1, fmt.Errorf("run lsof: %w", err)
	}
	// lsof exits 1 when nothing matched.
	if res.Code != 0 && strings.TrimSpace(res.Stdout) == "" {
		return -1, nil
	}
	return parseLsofPID(res.Stdout), nil
}

// StopPortOwner terminates the process listening on port. It returns the
// PID that was stopped, or -1 when the port was free.
func (t *Terminator) StopPortOwner(ctx context.Context, l *PortLocator, port int, timeout time.Duration) (int, Outcome, error) {
	pid, err := l.PIDByPort(ctx, port)
	if err != nil {
		return -1, 0, err
	}
	if pid == -1 {
		log.Printf("[Process] Port %d is free, nothing to stop", port)
		return -1, 0, nil
	}

	log.Printf("[Process] Port %d held by PID %d, stopping", port, pid)
	outcome, err := t.Terminate(ctx, pid, timeout)
	return pid, outcome, err
}

// parseNetstatPID scans `netstat -ano` output for a listener on port.
func parseNetstatPID(out string, port int) int {
	want := strconv.Itoa(port)
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 5 || !strings.EqualFold(fields[0], "TCP") {
			continue
		}
		// Listeners have no remote peer; the state column is localized.
		if !strings.HasSuffix(fields[2], ":0") && !strings.HasSuffix(fields[2], ":*") {
			continue
		}

		localAddr := fields[1]
		idx := strings.LastIndex(localAddr, ":")
		if idx == -1 || localAddr[idx+1:] != want {
			continue
		}

		pid, err := strconv.Atoi(fields[len(fields)-1])
		if err != nil || pid <= 0 {
			continue
		}
		return pid
	}
	return -1
}

func parseLsofPID(out string) int {
	for _, line := range strings.Split(out, "\n") {
		pid, err := strconv.Atoi(strings.TrimSpace(line))
		if err == nil && pid > 0 {
			return pid
		}
	}
	return -1
}
