package process

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Terminator stops processes through a Controller.
// It holds no per-call state, so concurrent calls are independent.
type Terminator struct {
	ctrl     Controller
	interval time.Duration
	observer Observer
}

// Option configures a Terminator.
type Option func(*Terminator)

// WithPollInterval overrides PollInterval.
func WithPollInterval(d time.Duration) Option {
	return func(t *Terminator) {
		if d > 0 {
			t.interval = d
		}
	}
}

// WithObserver registers a phase observer.
func WithObserver(fn Observer) Option {
	return func(t *Terminator) {
		t.observer = fn
	}
}

// NewTerminator creates a Terminator. A nil controller yields a Terminator
// whose every call fails with ErrUnsupportedPlatform.
func NewTerminator(ctrl Controller, opts ...Option) *Terminator {
	t := &Terminator{
		ctrl:     ctrl,
		interval: PollInterval,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Terminate asks pid to exit, polls until it is gone or timeout elapses, then
// forces it and checks once more after one poll interval, since a forced kill
// is not synchronous. A timeout <= 0 means DefaultTimeout.
//
// Failed is a regular outcome, not an error. When ctx is cancelled the call
// returns ctx.Err() and no outcome.
func (t *Terminator) Terminate(ctx context.Context, pid int, timeout time.Duration) (Outcome, error) {
	if t == nil || t.ctrl == nil {
		return 0, ErrUnsupportedPlatform
	}
	if pid <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidPID, pid)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	deadline := time.Now().Add(timeout)

	t.emit(pid, PhaseRequested)
	if err := t.ctrl.SendGraceful(ctx, pid); err != nil {
		log.Printf("[Process] Graceful signal to PID %d not delivered: %v", pid, err)
	}

	t.emit(pid, PhasePolling)
	for {
		if !t.ctrl.IsAlive(ctx, pid) {
			t.emit(pid, PhaseConfirmed)
			return Terminated, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}

		timer := time.NewTimer(min(t.interval, remaining))
		select {
		case <-ctx.Done():
			timer.Stop()
			return 0, ctx.Err()
		case <-timer.C:
		}
	}

	log.Printf("[Process] PID %d still running after %v, forcing", pid, timeout)
	t.emit(pid, PhaseEscalated)
	if err := t.ctrl.SendForced(ctx, pid); err != nil {
		log.Printf("[Process] Forced signal to PID %d not delivered: %v", pid, err)
	}

	settle := time.NewTimer(t.interval)
	select {
	case <-ctx.Done():
		settle.Stop()
		return 0, ctx.Err()
	case <-settle.C:
	}

	if t.ctrl.IsAlive(ctx, pid) {
		t.emit(pid, PhaseFailed)
		return Failed, nil
	}
	t.emit(pid, PhaseConfirmed)
	return Terminated, nil
}

func (t *Terminator) emit(pid int, phase Phase) {
	if t.observer != nil {
		t.observer(pid, phase)
	}
}
