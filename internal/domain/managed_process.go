package domain

import "time"

// ProcessKind classifies helper processes the shell starts on the user's
// behalf.
type ProcessKind string

const (
	ProcessKindTunnel ProcessKind = "cloudflared-tunnel"
	ProcessKindWindow ProcessKind = "window"
)

// ManagedProcess is a helper process started by the shell. Records stay
// open until the process is confirmed gone, so helpers orphaned by a crash
// can be found on the next start.
type ManagedProcess struct {
	ID        uint64
	CreatedAt time.Time
	UpdatedAt time.Time

	PID   int
	Kind  ProcessKind
	Name  string // executable name at start, checked before reaping
	Label string // window label or tunnel URL

	StartedAt time.Time
	StoppedAt *time.Time
	Outcome   string
}

// IsOpen reports whether the process has not been confirmed stopped.
func (p *ManagedProcess) IsOpen() bool {
	return p.StoppedAt == nil
}
