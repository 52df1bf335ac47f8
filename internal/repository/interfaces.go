package repository

import (
	"time"

	"github.com/awsl-project/deskshell/internal/domain"
)

type ManagedProcessRepository interface {
	Create(p *domain.ManagedProcess) error
	// ListOpen returns records without a stop time, oldest first.
	ListOpen() ([]*domain.ManagedProcess, error)
	// GetOpenByPID returns the open record for pid, or nil when none.
	GetOpenByPID(pid int) (*domain.ManagedProcess, error)
	MarkStopped(id uint64, outcome string, at time.Time) error
	// DeleteStoppedBefore removes closed records stopped before the cutoff.
	DeleteStoppedBefore(before time.Time) (int64, error)
}
