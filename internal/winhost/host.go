package winhost

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"slices"
	"sync"
	"time"

	"github.com/awsl-project/deskshell/internal/domain"
	"github.com/awsl-project/deskshell/internal/process"
	"github.com/awsl-project/deskshell/internal/window"
)

const (
	// ConnectTimeout bounds how long a new child has to reach the bridge.
	ConnectTimeout = 30 * time.Second

	// closeGrace is how long a closed child has to exit on its own before
	// it is terminated.
	closeGrace = 3 * time.Second

	callTimeout = 5 * time.Second
)

// Child is a started window process.
type Child interface {
	PID() int
	Wait() error
}

// SpawnFunc starts a child window process with args and extra env.
type SpawnFunc func(args, env []string) (Child, error)

// Tracker records child processes so they can be stopped and reaped.
type Tracker interface {
	Track(ctx context.Context, pid int, kind domain.ProcessKind, name, label string) (*domain.ManagedProcess, error)
	Stop(ctx context.Context, pid int) (process.Outcome, error)
	Release(pid int) error
}

// MonitorFunc lists displays.
type MonitorFunc func(ctx context.Context) ([]window.Monitor, error)

// ProcessHost implements window.Host by running one child process per
// secondary window.
type ProcessHost struct {
	hub      *Hub
	issuer   *TokenIssuer
	hubURL   string
	spawn    SpawnFunc
	tracker  Tracker
	monitors MonitorFunc
	main     window.Handle

	mu       sync.Mutex
	children []*childWindow
}

// HostConfig wires a ProcessHost.
type HostConfig struct {
	Hub      *Hub
	Issuer   *TokenIssuer
	HubURL   string
	Spawn    SpawnFunc
	Tracker  Tracker
	Monitors MonitorFunc
	Main     window.Handle // may be nil
}

func NewProcessHost(cfg HostConfig) *ProcessHost {
	h := &ProcessHost{
		hub:      cfg.Hub,
		issuer:   cfg.Issuer,
		hubURL:   cfg.HubURL,
		spawn:    cfg.Spawn,
		tracker:  cfg.Tracker,
		monitors: cfg.Monitors,
		main:     cfg.Main,
	}
	// A child without a bridge can no longer be driven; it quits on its own.
	cfg.Hub.OnDisconnect(h.remove)
	return h
}

func (h *ProcessHost) Window(label string) (window.Handle, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.main != nil && h.main.Label() == label {
		return h.main, true
	}
	for _, c := range h.children {
		if c.label == label {
			return c, true
		}
	}
	return nil, false
}

func (h *ProcessHost) Windows() []window.Handle {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]window.Handle, 0, len(h.children)+1)
	if h.main != nil {
		out = append(out, h.main)
	}
	for _, c := range h.children {
		out = append(out, c)
	}
	return out
}

func (h *ProcessHost) Monitors(ctx context.Context) ([]window.Monitor, error) {
	h.mu.Lock()
	fn := h.monitors
	h.mu.Unlock()
	if fn == nil {
		return nil, window.ErrNoMonitor
	}
	return fn(ctx)
}

// Create starts a child window and waits until it joins the bridge.
func (h *ProcessHost) Create(ctx context.Context, opts window.Options) (window.Handle, error) {
	token, err := h.issuer.Issue(opts.Label)
	if err != nil {
		return nil, err
	}

	args := ChildArgs(ChildConfig{Window: opts, HubURL: h.hubURL})
	proc, err := h.spawn(args, []string{TokenEnvKey + "=" + token})
	if err != nil {
		return nil, fmt.Errorf("spawn window process: %w", err)
	}
	pid := proc.PID()

	if h.tracker != nil {
		if _, err := h.tracker.Track(ctx, pid, domain.ProcessKindWindow, "", opts.Label); err != nil {
			log.Printf("[Window] Failed to track %q: %v", opts.Label, err)
		}
	}

	exited := make(chan struct{})
	go func() {
		err := proc.Wait()
		close(exited)
		h.remove(opts.Label, pid)
		if h.tracker != nil {
			if relErr := h.tracker.Release(pid); relErr != nil {
				log.Printf("[Window] Failed to release PID %d: %v", pid, relErr)
			}
		}
		if err != nil {
			log.Printf("[Window] %q (PID %d) exited: %v", opts.Label, pid, err)
		}
	}()

	waitCtx, cancel := context.WithTimeout(ctx, ConnectTimeout)
	defer cancel()
	peerCh := make(chan *Peer, 1)
	errCh := make(chan error, 1)
	go func() {
		p, err := h.hub.WaitFor(waitCtx, opts.Label)
		if err != nil {
			errCh <- err
			return
		}
		peerCh <- p
	}()

	var peer *Peer
	select {
	case peer = <-peerCh:
	case err = <-errCh:
	case <-exited:
		err = errors.New("window process exited before connecting")
	}
	if peer == nil {
		cancel()
		h.stopPID(pid)
		return nil, fmt.Errorf("window %q: %w", opts.Label, err)
	}

	c := &childWindow{label: opts.Label, pid: pid, peer: peer, exited: exited, host: h}
	if err := h.add(c); err != nil {
		h.stopPID(pid)
		return nil, fmt.Errorf("window %q: %w", opts.Label, err)
	}
	return c, nil
}

// add lists c unless its process or bridge already went away. Both are
// signalled before the matching remove runs, so checking under h.mu leaves
// no window for a stale entry.
func (h *ProcessHost) add(c *childWindow) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	select {
	case <-c.exited:
		return errors.New("window process exited during startup")
	case <-c.peer.Done():
		return ErrPeerGone
	default:
	}
	h.children = append(h.children, c)
	return nil
}

// CloseAll closes every child window.
func (h *ProcessHost) CloseAll(ctx context.Context) {
	h.mu.Lock()
	children := slices.Clone(h.children)
	h.mu.Unlock()

	var wg sync.WaitGroup
	for _, c := range children {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.Close(ctx); err != nil {
				log.Printf("[Window] Close %q: %v", c.label, err)
			}
		}()
	}
	wg.Wait()
}

func (h *ProcessHost) remove(label string, pid int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.children = slices.DeleteFunc(h.children, func(c *childWindow) bool {
		return c.label == label && c.pid == pid
	})
}

func (h *ProcessHost) stopPID(pid int) {
	if h.tracker == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), process.DefaultTimeout+time.Second)
	defer cancel()
	if outcome, err := h.tracker.Stop(ctx, pid); err != nil || outcome != process.Terminated {
		log.Printf("[Window] Stop PID %d: %v %v", pid, outcome, err)
	}
}

// ExecSpawner starts children by re-running exe.
func ExecSpawner(exe string, base ...string) SpawnFunc {
	return func(args, env []string) (Child, error) {
		cmd := exec.Command(exe, args...)
		cmd.Env = append(append(os.Environ(), base...), env...)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Start(); err != nil {
			return nil, err
		}
		return execChild{cmd}, nil
	}
}

type execChild struct{ cmd *exec.Cmd }

func (c execChild) PID() int    { return c.cmd.Process.Pid }
func (c execChild) Wait() error { return c.cmd.Wait() }

// childWindow drives a window in another process.
type childWindow struct {
	label  string
	pid    int
	peer   *Peer
	exited <-chan struct{}
	host   *ProcessHost
}

func (c *childWindow) Label() string { return c.label }

func (c *childWindow) call(ctx context.Context, command string, args Args) (Args, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	return c.peer.Call(ctx, command, args)
}

func (c *childWindow) do(ctx context.Context, command string, args Args) error {
	_, err := c.call(ctx, command, args)
	return err
}

func (c *childWindow) Show(ctx context.Context) error   { return c.do(ctx, CmdShow, Args{}) }
func (c *childWindow) Hide(ctx context.Context) error   { return c.do(ctx, CmdHide, Args{}) }
func (c *childWindow) Focus(ctx context.Context) error  { return c.do(ctx, CmdFocus, Args{}) }
func (c *childWindow) Center(ctx context.Context) error { return c.do(ctx, CmdCenter, Args{}) }

func (c *childWindow) SetPosition(ctx context.Context, x, y int) error {
	return c.do(ctx, CmdSetPosition, Args{X: x, Y: y})
}

func (c *childWindow) OuterSize(ctx context.Context) (window.Size, error) {
	res, err := c.call(ctx, CmdGetSize, Args{})
	if err != nil {
		return window.Size{}, err
	}
	return window.Size{Width: res.Width, Height: res.Height}, nil
}

func (c *childWindow) SetAlwaysOnTop(ctx context.Context, on bool) error {
	return c.do(ctx, CmdAlwaysOnTop, Args{Enabled: on})
}

func (c *childWindow) SetClosable(ctx context.Context, closable bool) error {
	return c.do(ctx, CmdSetClosable, Args{Enabled: closable})
}

func (c *childWindow) IsVisible(ctx context.Context) (bool, error) {
	res, err := c.call(ctx, CmdIsVisible, Args{})
	return res.Enabled, err
}

// Close asks the window to close and terminates its process if it has not
// exited within a short grace period.
func (c *childWindow) Close(ctx context.Context) error {
	if err := c.do(ctx, CmdClose, Args{}); err != nil && !errors.Is(err, ErrPeerGone) {
		log.Printf("[Window] Close request to %q failed: %v", c.label, err)
	}

	timer := time.NewTimer(closeGrace)
	defer timer.Stop()
	select {
	case <-c.exited:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}

	log.Printf("[Window] %q did not exit, terminating PID %d", c.label, c.pid)
	if c.host.tracker == nil {
		return fmt.Errorf("window %q still running", c.label)
	}
	outcome, err := c.host.tracker.Stop(ctx, c.pid)
	if err != nil {
		return err
	}
	if outcome != process.Terminated {
		return fmt.Errorf("window %q (PID %d) survived termination", c.label, c.pid)
	}
	return nil
}
