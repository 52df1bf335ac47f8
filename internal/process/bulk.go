package process

import (
	"context"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// StopAll terminates every pid concurrently and returns how many were
// confirmed gone. A failure on one pid never stops the others.
func (t *Terminator) StopAll(ctx context.Context, pids []int, timeout time.Duration) (int, error) {
	if t == nil || t.ctrl == nil {
		return 0, ErrUnsupportedPlatform
	}

	var (
		g       errgroup.Group
		stopped atomic.Int64
	)
	for _, pid := range pids {
		g.Go(func() error {
			outcome, err := t.Terminate(ctx, pid, timeout)
			switch {
			case err != nil:
				log.Printf("[Process] Stop PID %d: %v", pid, err)
			case outcome == Terminated:
				stopped.Add(1)
			default:
				log.Printf("[Process] PID %d survived forced termination", pid)
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return int(stopped.Load()), err
	}
	return int(stopped.Load()), nil
}

// StopByName terminates every process whose name matches name and returns
// how many were stopped. The calling process is never included.
func (t *Terminator) StopByName(ctx context.Context, lister Lister, name string, timeout time.Duration) (int, error) {
	if t == nil || t.ctrl == nil {
		return 0, ErrUnsupportedPlatform
	}
	if strings.TrimSpace(name) == "" {
		return 0, errors.New("process name is required")
	}

	procs, err := lister.List(ctx)
	if err != nil {
		return 0, err
	}

	pids := MatchName(procs, name, os.Getpid())
	if len(pids) == 0 {
		log.Printf("[Process] No running process named %q", name)
		return 0, nil
	}

	log.Printf("[Process] Stopping %d process(es) named %q", len(pids), name)
	return t.StopAll(ctx, pids, timeout)
}

// MatchName returns the PIDs in procs whose name equals name, ignoring case
// and a trailing ".exe". The exclude PID is skipped.
func MatchName(procs []Info, name string, exclude int) []int {
	want := normalizeName(name)
	var pids []int
	for _, p := range procs {
		if p.PID <= 0 || p.PID == exclude {
			continue
		}
		if normalizeName(p.Name) == want {
			pids = append(pids, p.PID)
		}
	}
	return pids
}

func normalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.TrimSuffix(name, ".exe")
}
