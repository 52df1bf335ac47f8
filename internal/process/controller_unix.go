//go:build unix

package process

import (
	"context"
	"errors"

	"github.com/awsl-project/deskshell/internal/hostcmd"
	"golang.org/x/sys/unix"
)

// NewController returns the signal based controller for Unix hosts.
func NewController(_ hostcmd.Runner) (Controller, error) {
	return signalController{}, nil
}

type signalController struct{}

func (signalController) IsAlive(ctx context.Context, pid int) bool {
	err := unix.Kill(pid, 0)
	switch {
	case err == nil:
		return !isZombie(ctx, pid)
	case errors.Is(err, unix.EPERM):
		// Exists, owned by someone else.
		return true
	default:
		return false
	}
}

func (signalController) SendGraceful(_ context.Context, pid int) error {
	return signal(pid, unix.SIGTERM)
}

func (signalController) SendForced(_ context.Context, pid int) error {
	return signal(pid, unix.SIGKILL)
}

func signal(pid int, sig unix.Signal) error {
	if err := unix.Kill(pid, sig); err != nil && !errors.Is(err, unix.ESRCH) {
		return err
	}
	return nil
}
