package process

import (
	"context"
	"fmt"

	ps "github.com/shirou/gopsutil/v4/process"
)

// TableLister reads the process table through gopsutil.
type TableLister struct{}

// NewLister returns the host process lister.
func NewLister() *TableLister {
	return &TableLister{}
}

// List returns every process whose name could be read. Processes that exit
// while the table is walked are skipped.
func (TableLister) List(ctx context.Context) ([]Info, error) {
	procs, err := ps.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	infos := make([]Info, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		infos = append(infos, Info{PID: int(p.Pid), Name: name})
	}
	return infos, nil
}

// NameOf returns the current name of pid, or "" when it cannot be read.
func NameOf(ctx context.Context, pid int) string {
	p, err := ps.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return ""
	}
	name, err := p.NameWithContext(ctx)
	if err != nil {
		return ""
	}
	return name
}

// isZombie reports whether pid has exited but not been reaped by its parent.
func isZombie(ctx context.Context, pid int) bool {
	p, err := ps.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return false
	}
	statuses, err := p.StatusWithContext(ctx)
	if err != nil {
		return false
	}
	for _, s := range statuses {
		if s == ps.Zombie {
			return true
		}
	}
	return false
}
