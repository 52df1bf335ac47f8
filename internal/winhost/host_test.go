package winhost

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/awsl-project/deskshell/internal/domain"
	"github.com/awsl-project/deskshell/internal/process"
	"github.com/awsl-project/deskshell/internal/window"
)

// fakeChild stands in for a child window process: it connects to the hub
// with the token it was spawned with and serves commands in-process.
type fakeChild struct {
	pid    int
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (c *fakeChild) PID() int { return c.pid }

func (c *fakeChild) Wait() error {
	<-c.done
	return nil
}

func (c *fakeChild) exit() { c.once.Do(func() { close(c.done) }) }

type recordingTracker struct {
	mu       sync.Mutex
	tracked  []int
	stopped  []int
	released []int
	kill     func(pid int)
}

func (r *recordingTracker) Track(_ context.Context, pid int, _ domain.ProcessKind, _, _ string) (*domain.ManagedProcess, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tracked = append(r.tracked, pid)
	return &domain.ManagedProcess{PID: pid}, nil
}

func (r *recordingTracker) Stop(_ context.Context, pid int) (process.Outcome, error) {
	r.mu.Lock()
	r.stopped = append(r.stopped, pid)
	kill := r.kill
	r.mu.Unlock()
	if kill != nil {
		kill(pid)
	}
	return process.Terminated, nil
}

func (r *recordingTracker) Release(pid int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.released = append(r.released, pid)
	return nil
}

func (r *recordingTracker) snapshot() (tracked, stopped, released []int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.tracked...), append([]int(nil), r.stopped...), append([]int(nil), r.released...)
}

type hostFixture struct {
	host     *ProcessHost
	hub      *Hub
	tracker  *recordingTracker
	mu       sync.Mutex
	children map[int]*fakeChild
	visible  map[string]bool

	linger    bool // keep running after the bridge closes
	exitEarly bool // exit right after saying hello
}

func newHostFixture(t *testing.T, ignoreClose bool) *hostFixture {
	t.Helper()
	b := newBridge(t)
	f := &hostFixture{
		hub:      b.hub,
		tracker:  &recordingTracker{},
		children: make(map[int]*fakeChild),
		visible:  make(map[string]bool),
	}
	f.tracker.kill = func(pid int) {
		f.mu.Lock()
		c := f.children[pid]
		f.mu.Unlock()
		if c != nil {
			c.cancel()
			c.exit()
		}
	}

	nextPID := 1000
	spawn := func(args, env []string) (Child, error) {
		cfg, err := ParseChildArgs(args[1:])
		if err != nil {
			return nil, err
		}
		token := strings.TrimPrefix(env[0], TokenEnvKey+"=")

		f.mu.Lock()
		nextPID++
		pid := nextPID
		f.mu.Unlock()

		client, err := Dial(context.Background(), cfg.HubURL, token, cfg.Window.Label, pid)
		if err != nil {
			return nil, err
		}
		ctx, cancel := context.WithCancel(context.Background())
		c := &fakeChild{pid: pid, cancel: cancel, done: make(chan struct{})}
		f.mu.Lock()
		f.children[pid] = c
		linger, exitEarly := f.linger, f.exitEarly
		f.mu.Unlock()
		if exitEarly {
			cancel()
		}

		label := cfg.Window.Label
		go func() {
			defer func() {
				if !linger {
					c.exit()
				}
			}()
			client.Serve(ctx, func(_ context.Context, command string, args Args) (Args, error) {
				f.mu.Lock()
				defer f.mu.Unlock()
				switch command {
				case CmdShow:
					f.visible[label] = true
				case CmdHide:
					f.visible[label] = false
				case CmdIsVisible:
					return Args{Enabled: f.visible[label]}, nil
				case CmdGetSize:
					return Args{Width: cfg.Window.Width, Height: cfg.Window.Height}, nil
				case CmdClose:
					if !ignoreClose {
						cancel()
					}
				}
				return Args{}, nil
			})
		}()
		return c, nil
	}

	f.host = NewProcessHost(HostConfig{
		Hub:     b.hub,
		Issuer:  b.issuer,
		HubURL:  b.url,
		Spawn:   spawn,
		Tracker: f.tracker,
		Monitors: func(context.Context) ([]window.Monitor, error) {
			return []window.Monitor{{Primary: true, Width: 1920, Height: 1080, Scale: 1}}, nil
		},
	})
	return f
}

func TestProcessHostDrivesChildWindows(t *testing.T) {
	f := newHostFixture(t, false)
	m := window.NewManager(f.host, window.WithGOOS("linux"), window.WithSettleDelay(0))
	ctx := context.Background()

	if err := m.OpenWindow(ctx, "Settings", "/settings", 0, 0); err != nil {
		t.Fatal(err)
	}
	if err := m.ToggleToolbar(ctx); err != nil {
		t.Fatal(err)
	}

	if got := len(f.host.Windows()); got != 2 {
		t.Fatalf("Windows() = %d, want 2", got)
	}
	f.mu.Lock()
	settingsVisible, toolbarVisible := f.visible["Settings"], f.visible[window.ToolbarLabel]
	f.mu.Unlock()
	if !settingsVisible || !toolbarVisible {
		t.Errorf("visible: settings=%v toolbar=%v", settingsVisible, toolbarVisible)
	}

	if err := m.Close(ctx, "Settings"); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, ok := f.host.Window("Settings"); !ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("closed window still listed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	tracked, stopped, _ := f.tracker.snapshot()
	if len(tracked) != 2 {
		t.Errorf("tracked = %v, want 2 pids", tracked)
	}
	if len(stopped) != 0 {
		t.Errorf("cooperative close terminated %v", stopped)
	}
}

func TestProcessHostCloseFallsBackToTerminate(t *testing.T) {
	f := newHostFixture(t, true)
	ctx := context.Background()

	w, err := f.host.Create(ctx, window.Options{Label: "Stuck", URL: "/", Width: 10, Height: 10, Closable: true})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(ctx); err != nil {
		t.Fatal(err)
	}
	_, stopped, _ := f.tracker.snapshot()
	if len(stopped) != 1 {
		t.Fatalf("stopped = %v, want the stuck child", stopped)
	}
}

func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestProcessHostDropsWindowWhenBridgeCloses(t *testing.T) {
	f := newHostFixture(t, false)
	f.linger = true
	ctx := context.Background()

	if _, err := f.host.Create(ctx, window.Options{Label: "Orphan", URL: "/", Width: 10, Height: 10}); err != nil {
		t.Fatal(err)
	}
	if _, ok := f.host.Window("Orphan"); !ok {
		t.Fatal("created window not listed")
	}

	f.hub.Close()
	waitUntil(t, "orphaned window to be dropped", func() bool {
		_, ok := f.host.Window("Orphan")
		return !ok
	})
	if _, _, released := f.tracker.snapshot(); len(released) != 0 {
		t.Errorf("released %v while the process still runs", released)
	}
}

func TestProcessHostChildExitingAtStartup(t *testing.T) {
	f := newHostFixture(t, false)
	f.exitEarly = true
	ctx := context.Background()

	for i := range 20 {
		label := fmt.Sprintf("Flash%d", i)
		w, err := f.host.Create(ctx, window.Options{Label: label, URL: "/", Width: 10, Height: 10})
		if err == nil && w.Label() != label {
			t.Fatalf("Create() label = %q", w.Label())
		}
		waitUntil(t, label+" to be released", func() bool {
			_, _, released := f.tracker.snapshot()
			return len(released) == i+1
		})
		if _, ok := f.host.Window(label); ok {
			t.Fatalf("%s listed after its process exited", label)
		}
	}
}
