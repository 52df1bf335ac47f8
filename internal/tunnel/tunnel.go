// Package tunnel runs a cloudflared quick tunnel to the local rclone
// remote-control port.
package tunnel

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os/exec"
	"regexp"
	"sync"
	"time"

	"github.com/awsl-project/deskshell/internal/domain"
	"github.com/awsl-project/deskshell/internal/hostcmd"
	"github.com/awsl-project/deskshell/internal/process"
)

// URLTimeout bounds how long cloudflared has to print its public URL.
const URLTimeout = 15 * time.Second

var urlPattern = regexp.MustCompile(`https://[a-zA-Z0-9-]+\.trycloudflare\.com`)

// ErrNoURL is returned when cloudflared exits or times out before printing
// a tunnel URL.
var ErrNoURL = errors.New("cloudflared did not report a tunnel URL")

// Tracker records helper processes.
type Tracker interface {
	Track(ctx context.Context, pid int, kind domain.ProcessKind, name, label string) (*domain.ManagedProcess, error)
	Stop(ctx context.Context, pid int) (process.Outcome, error)
	Release(pid int) error
}

// Tunnel is a running quick tunnel.
type Tunnel struct {
	PID int    `json:"pid"`
	URL string `json:"url"`
}

// Manager starts and stops cloudflared quick tunnels.
type Manager struct {
	binary  string
	port    int
	tracker Tracker
	timeout time.Duration

	mu      sync.Mutex
	running map[int]*exec.Cmd
}

// NewManager creates a manager for the cloudflared binary that forwards to
// 127.0.0.1:port.
func NewManager(binary string, port int, tracker Tracker) *Manager {
	if binary == "" {
		binary = "cloudflared"
	}
	return &Manager{
		binary:  binary,
		port:    port,
		tracker: tracker,
		timeout: URLTimeout,
		running: make(map[int]*exec.Cmd),
	}
}

// Start launches cloudflared and returns once it reports the public URL.
func (m *Manager) Start(ctx context.Context) (*Tunnel, error) {
	target := fmt.Sprintf("http://127.0.0.1:%d", m.port)
	cmd := exec.Command(m.binary, "tunnel", "--url", target)
	hostcmd.HideWindow(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start cloudflared: %w", err)
	}
	pid := cmd.Process.Pid
	m.mu.Lock()
	m.running[pid] = cmd
	m.mu.Unlock()
	log.Printf("[Tunnel] cloudflared started (PID %d) for %s", pid, target)

	if _, err := m.tracker.Track(ctx, pid, domain.ProcessKindTunnel, "", target); err != nil {
		log.Printf("[Tunnel] Failed to track PID %d: %v", pid, err)
	}

	found := make(chan string, 1)
	var scanners sync.WaitGroup
	for _, r := range []io.Reader{stdout, stderr} {
		scanners.Add(1)
		go func() {
			defer scanners.Done()
			scanForURL(r, found)
		}()
	}

	exited := make(chan struct{})
	go func() {
		scanners.Wait()
		err := cmd.Wait()
		close(exited)
		m.forget(pid)
		if relErr := m.tracker.Release(pid); relErr != nil {
			log.Printf("[Tunnel] Failed to release PID %d: %v", pid, relErr)
		}
		log.Printf("[Tunnel] cloudflared (PID %d) exited: %v", pid, err)
	}()

	timer := time.NewTimer(m.timeout)
	defer timer.Stop()

	select {
	case url := <-found:
		log.Printf("[Tunnel] Tunnel ready at %s", url)
		return &Tunnel{PID: pid, URL: url}, nil
	case <-exited:
		return nil, ErrNoURL
	case <-timer.C:
		m.stopQuietly(pid)
		return nil, fmt.Errorf("%w within %v", ErrNoURL, m.timeout)
	case <-ctx.Done():
		m.stopQuietly(pid)
		return nil, ctx.Err()
	}
}

// Stop terminates the tunnel with pid.
func (m *Manager) Stop(ctx context.Context, pid int) (process.Outcome, error) {
	outcome, err := m.tracker.Stop(ctx, pid)
	if err != nil {
		return 0, err
	}
	log.Printf("[Tunnel] Stop PID %d: %s", pid, outcome)
	return outcome, nil
}

// StopAll terminates every tunnel this manager started.
func (m *Manager) StopAll(ctx context.Context) {
	m.mu.Lock()
	pids := make([]int, 0, len(m.running))
	for pid := range m.running {
		pids = append(pids, pid)
	}
	m.mu.Unlock()

	for _, pid := range pids {
		if _, err := m.Stop(ctx, pid); err != nil {
			log.Printf("[Tunnel] Stop PID %d: %v", pid, err)
		}
	}
}

func (m *Manager) stopQuietly(pid int) {
	ctx, cancel := context.WithTimeout(context.Background(), process.DefaultTimeout+time.Second)
	defer cancel()
	if _, err := m.tracker.Stop(ctx, pid); err != nil {
		log.Printf("[Tunnel] Stop PID %d: %v", pid, err)
	}
}

func (m *Manager) forget(pid int) {
	m.mu.Lock()
	delete(m.running, pid)
	m.mu.Unlock()
}

// scanForURL reads r to EOF, sending the first tunnel URL to found. The
// rest of the output is drained so the child never blocks on a full pipe.
func scanForURL(r io.Reader, found chan<- string) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if url := urlPattern.FindString(sc.Text()); url != "" {
			select {
			case found <- url:
			default:
			}
		}
	}
}
