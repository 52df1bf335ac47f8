//go:build windows

package process

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/awsl-project/deskshell/internal/hostcmd"
	"golang.org/x/sys/windows"
)

// stillActive is the exit code GetExitCodeProcess reports for a live process.
const stillActive = 259

// taskkillNotFound is taskkill's exit code when no process matched.
const taskkillNotFound = 128

// NewController returns the Windows controller. Signals go through taskkill;
// the probe uses the process handle and falls back to tasklist.
func NewController(runner hostcmd.Runner) (Controller, error) {
	if runner == nil {
		runner = hostcmd.NewExecRunner()
	}
	return &taskController{runner: runner}, nil
}

type taskController struct {
	runner hostcmd.Runner
}

func (c *taskController) IsAlive(ctx context.Context, pid int) bool {
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		if errors.Is(err, windows.ERROR_INVALID_PARAMETER) {
			return false
		}
		return c.listed(ctx, pid)
	}
	defer windows.CloseHandle(h)

	var code uint32
	if err := windows.GetExitCodeProcess(h, &code); err != nil {
		return c.listed(ctx, pid)
	}
	return code == stillActive
}

// listed enumerates with tasklist. If tasklist itself cannot run the process
// is reported alive, since absence was not confirmed.
func (c *taskController) listed(ctx context.Context, pid int) bool {
	res, err := c.runner.Run(ctx, "tasklist", "/FI", fmt.Sprintf("PID eq %d", pid), "/NH", "/FO", "CSV")
	if err != nil || res.Code != 0 {
		log.Printf("[Process] tasklist probe for PID %d failed: %v (exit %d)", pid, err, res.Code)
		return true
	}
	return tasklistHasPID(res.Stdout, pid)
}

func (c *taskController) SendGraceful(ctx context.Context, pid int) error {
	return c.taskkill(ctx, "/T", "/PID", strconv.Itoa(pid))
}

func (c *taskController) SendForced(ctx context.Context, pid int) error {
	return c.taskkill(ctx, "/F", "/T", "/PID", strconv.Itoa(pid))
}

func (c *taskController) taskkill(ctx context.Context, args ...string) error {
	res, err := c.runner.Run(ctx, "taskkill", args...)
	if err != nil {
		return err
	}
	if res.Code != 0 && res.Code != taskkillNotFound {
		return fmt.Errorf("taskkill exited with %d: %s", res.Code, res.Combined())
	}
	return nil
}
