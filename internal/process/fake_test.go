package process

import (
	"context"
	"errors"
	"sync"
	"time"
)

type fakeProc struct {
	alive          bool
	honorsGraceful bool
	diesAfter      int // probes after the graceful request before exiting
	honorsForced   bool
	killDelay      time.Duration // how long a forced kill takes to land

	killedAt     time.Time
	gracefulSent bool
	graceful     int
	forced       int
	probes       int
}

type fakeController struct {
	mu          sync.Mutex
	procs       map[int]*fakeProc
	gracefulErr error
	forcedErr   error
}

func newFakeController() *fakeController {
	return &fakeController{procs: make(map[int]*fakeProc)}
}

func (f *fakeController) add(pid int, p *fakeProc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p.alive = true
	f.procs[pid] = p
}

func (f *fakeController) get(pid int) fakeProc {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.procs[pid]; ok {
		return *p
	}
	return fakeProc{}
}

func (f *fakeController) IsAlive(_ context.Context, pid int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.procs[pid]
	if !ok {
		return false
	}
	p.probes++
	if p.alive && !p.killedAt.IsZero() && !time.Now().Before(p.killedAt) {
		p.alive = false
	}
	if p.alive && p.gracefulSent && p.honorsGraceful {
		if p.diesAfter <= 0 {
			p.alive = false
		} else {
			p.diesAfter--
		}
	}
	return p.alive
}

func (f *fakeController) SendGraceful(_ context.Context, pid int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.procs[pid]; ok {
		p.graceful++
		p.gracefulSent = true
	}
	return f.gracefulErr
}

func (f *fakeController) SendForced(_ context.Context, pid int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.procs[pid]; ok {
		p.forced++
		if p.honorsForced {
			if p.killDelay > 0 {
				p.killedAt = time.Now().Add(p.killDelay)
			} else {
				p.alive = false
			}
		}
	}
	return f.forcedErr
}

var errNotDelivered = errors.New("command not found")

type fakeLister struct {
	procs []Info
	err   error
}

func (l fakeLister) List(context.Context) ([]Info, error) {
	return l.procs, l.err
}
