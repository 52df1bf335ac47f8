// Package process stops host processes by escalating from a graceful request
// to a forced kill, confirming every result through an independent probe.
package process

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultTimeout is how long Terminate waits after the graceful request.
	DefaultTimeout = 5 * time.Second
	// PollInterval is the spacing between liveness probes.
	PollInterval = 100 * time.Millisecond
)

var (
	// ErrUnsupportedPlatform is returned when the host OS offers no known
	// termination primitive. It is not retryable.
	ErrUnsupportedPlatform = errors.New("process termination is not supported on this platform")
	// ErrInvalidPID is returned for process IDs that are not positive.
	ErrInvalidPID = errors.New("invalid process id")
	// ErrSurvived wraps a Failed outcome for callers that report errors only.
	ErrSurvived = errors.New("survived forced termination")
)

// Controller is the per-OS capability used by Terminator.
//
// IsAlive never fails: absence is a normal result. SendGraceful and
// SendForced only dispatch a request; a target that is already gone is not
// an error.
type Controller interface {
	IsAlive(ctx context.Context, pid int) bool
	SendGraceful(ctx context.Context, pid int) error
	SendForced(ctx context.Context, pid int) error
}

// Info is a name and PID pair from the process table.
type Info struct {
	PID  int
	Name string
}

// Lister enumerates the host process table.
type Lister interface {
	List(ctx context.Context) ([]Info, error)
}

// Outcome is the result of a completed termination.
type Outcome int

const (
	// Terminated means the probe confirmed the process is gone.
	Terminated Outcome = iota + 1
	// Failed means the process was still present after the forced request.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Terminated:
		return "terminated"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Err converts the outcome for pid into an error for callers that only
// report failures. Terminated yields nil.
func (o Outcome) Err(pid int) error {
	if o == Terminated {
		return nil
	}
	return fmt.Errorf("process %d %w", pid, ErrSurvived)
}

// Phase marks progress through a single termination.
type Phase int

const (
	PhaseRequested Phase = iota + 1
	PhasePolling
	PhaseEscalated
	PhaseConfirmed
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseRequested:
		return "requested"
	case PhasePolling:
		return "polling"
	case PhaseEscalated:
		return "escalated"
	case PhaseConfirmed:
		return "confirmed"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Observer is notified of every phase change. It runs on the terminating
// goroutine and must not block.
type Observer func(pid int, phase Phase)
