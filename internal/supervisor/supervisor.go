// Package supervisor keeps a durable record of helper processes the shell
// starts, so they can be stopped on request and reaped after a crash.
package supervisor

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/awsl-project/deskshell/internal/domain"
	"github.com/awsl-project/deskshell/internal/process"
	"github.com/awsl-project/deskshell/internal/repository"
	"golang.org/x/sync/errgroup"
)

// NameFunc returns the current executable name of pid, or "" when the
// process cannot be inspected.
type NameFunc func(ctx context.Context, pid int) string

// Supervisor tracks managed helper processes.
type Supervisor struct {
	repo    repository.ManagedProcessRepository
	term    *process.Terminator
	nameOf  NameFunc
	timeout time.Duration
	now     func() time.Time
}

// New creates a Supervisor. A timeout <= 0 means process.DefaultTimeout.
func New(repo repository.ManagedProcessRepository, term *process.Terminator, timeout time.Duration) *Supervisor {
	return &Supervisor{
		repo:    repo,
		term:    term,
		nameOf:  process.NameOf,
		timeout: timeout,
		now:     time.Now,
	}
}

// WithNameFunc replaces the process-name lookup used by ReapStale.
func (s *Supervisor) WithNameFunc(fn NameFunc) *Supervisor {
	s.nameOf = fn
	return s
}

// Track records a freshly started helper. When name is empty it is read
// from the process table.
func (s *Supervisor) Track(ctx context.Context, pid int, kind domain.ProcessKind, name, label string) (*domain.ManagedProcess, error) {
	if pid <= 0 {
		return nil, fmt.Errorf("%w: %d", process.ErrInvalidPID, pid)
	}
	if name == "" {
		name = s.nameOf(ctx, pid)
	}
	p := &domain.ManagedProcess{
		PID:       pid,
		Kind:      kind,
		Name:      name,
		Label:     label,
		StartedAt: s.now(),
	}
	if err := s.repo.Create(p); err != nil {
		return nil, fmt.Errorf("track pid %d: %w", pid, err)
	}
	log.Printf("[Supervisor] Tracking %s PID %d (%s)", kind, pid, label)
	return p, nil
}

// Stop terminates pid and closes its record. Untracked PIDs are still
// terminated.
func (s *Supervisor) Stop(ctx context.Context, pid int) (process.Outcome, error) {
	outcome, err := s.term.Terminate(ctx, pid, s.timeout)
	if err != nil {
		return 0, err
	}

	rec, err := s.repo.GetOpenByPID(pid)
	if err != nil {
		return outcome, fmt.Errorf("lookup pid %d: %w", pid, err)
	}
	if rec != nil && outcome == process.Terminated {
		if err := s.repo.MarkStopped(rec.ID, outcome.String(), s.now()); err != nil {
			return outcome, fmt.Errorf("close record for pid %d: %w", pid, err)
		}
	}
	return outcome, nil
}

// Release closes the record for a helper that exited on its own.
func (s *Supervisor) Release(pid int) error {
	rec, err := s.repo.GetOpenByPID(pid)
	if err != nil || rec == nil {
		return err
	}
	return s.repo.MarkStopped(rec.ID, "exited", s.now())
}

// ReapStale walks open records left from an earlier run. A helper still
// running under its recorded name is terminated; any other record is
// closed, because its PID is gone or now belongs to an unrelated process.
// It returns how many helpers were terminated.
func (s *Supervisor) ReapStale(ctx context.Context) (int, error) {
	open, err := s.repo.ListOpen()
	if err != nil {
		return 0, fmt.Errorf("list open records: %w", err)
	}
	if len(open) == 0 {
		return 0, nil
	}

	var (
		g      errgroup.Group
		reaped atomic.Int64
	)
	for _, rec := range open {
		g.Go(func() error {
			current := s.nameOf(ctx, rec.PID)
			if current == "" || !sameName(current, rec.Name) {
				return s.repo.MarkStopped(rec.ID, "stale", s.now())
			}

			outcome, err := s.term.Terminate(ctx, rec.PID, s.timeout)
			if err != nil {
				return err
			}
			if outcome != process.Terminated {
				log.Printf("[Supervisor] Stale %s PID %d survived termination", rec.Kind, rec.PID)
				return nil
			}
			reaped.Add(1)
			return s.repo.MarkStopped(rec.ID, outcome.String(), s.now())
		})
	}
	err = g.Wait()

	if n := reaped.Load(); n > 0 {
		log.Printf("[Supervisor] Reaped %d stale helper process(es)", n)
	}
	return int(reaped.Load()), err
}

// Prune deletes closed records older than retention.
func (s *Supervisor) Prune(retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, nil
	}
	return s.repo.DeleteStoppedBefore(s.now().Add(-retention))
}

func sameName(a, b string) bool {
	return len(process.MatchName([]process.Info{{PID: 1, Name: a}}, b, 0)) == 1
}
