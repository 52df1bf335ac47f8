package desktop

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/awsl-project/deskshell/internal/archive"
	"github.com/awsl-project/deskshell/internal/machine"
	"github.com/awsl-project/deskshell/internal/process"
	"github.com/awsl-project/deskshell/internal/prompt"
	"github.com/awsl-project/deskshell/internal/tunnel"
	"github.com/awsl-project/deskshell/internal/version"
)

// StopPid terminates pid. It fails when the process outlives the forced
// signal. timeoutMs <= 0 selects the configured stop timeout.
func (a *App) StopPid(pid int, timeoutMs int) error {
	outcome, err := a.term.Terminate(a.context(), pid, a.timeout(timeoutMs))
	if err != nil {
		return err
	}
	return outcome.Err(pid)
}

// StopProcessesByName terminates every process with the given executable
// name and returns how many were stopped.
func (a *App) StopProcessesByName(name string, timeoutMs int) (int, error) {
	return a.term.StopByName(a.context(), a.lister, name, a.timeout(timeoutMs))
}

// StopPortOwner terminates the process listening on port. It returns the
// stopped PID, or -1 when nothing was listening.
func (a *App) StopPortOwner(port int) (int, error) {
	pid, outcome, err := a.term.StopPortOwner(a.context(), a.ports, port, a.stopTimeout())
	if err != nil {
		return pid, err
	}
	if pid > 0 && outcome != process.Terminated {
		return pid, fmt.Errorf("process %d on port %d survived termination", pid, port)
	}
	return pid, nil
}

// UnzipFile extracts a zip archive into outputFolder.
func (a *App) UnzipFile(zipPath, outputFolder string) error {
	return archive.Unzip(zipPath, outputFolder)
}

// ExtractTgz extracts a gzip-compressed tarball into outputFolder.
func (a *App) ExtractTgz(tgzPath, outputFolder string) error {
	return archive.ExtractTgz(tgzPath, outputFolder)
}

// GetArch returns the CPU architecture in release-asset naming.
func (a *App) GetArch() string {
	return machine.HostArch()
}

// GetUID returns a stable, anonymised machine identifier.
func (a *App) GetUID() (string, error) {
	return a.ident.UID(a.context())
}

// IsFlathub reports whether the app runs inside a Flatpak sandbox.
func (a *App) IsFlathub() bool {
	return machine.IsFlatpak(os.Getenv, os.Stat)
}

// Prompt shows a native input dialog. It returns nil when the user
// cancels.
func (a *App) Prompt(title, message string, defaultValue *string, sensitive bool) (*string, error) {
	return a.prompter.Prompt(a.context(), prompt.Request{
		Title:     title,
		Message:   message,
		Default:   defaultValue,
		Sensitive: sensitive,
	})
}

// TestProxyConnection fetches the probe URL through proxyURL.
func (a *App) TestProxyConnection(proxyURL string) (string, error) {
	return a.proxy.Test(a.context(), proxyURL)
}

// RunPrivilegedUpdate runs "<binaryPath> selfupdate" with administrator
// rights.
func (a *App) RunPrivilegedUpdate(binaryPath string) (string, error) {
	return a.elevator.SelfUpdate(a.context(), binaryPath)
}

// StartCloudflaredTunnel exposes the rclone remote-control port through a
// cloudflared quick tunnel.
func (a *App) StartCloudflaredTunnel() (*tunnel.Tunnel, error) {
	return a.tunnels.Start(a.context())
}

// StopCloudflaredTunnel terminates a tunnel started by
// StartCloudflaredTunnel.
func (a *App) StopCloudflaredTunnel(pid int) error {
	outcome, err := a.tunnels.Stop(a.context(), pid)
	if err != nil {
		return err
	}
	if outcome != process.Terminated {
		return fmt.Errorf("cloudflared (PID %d) survived termination", pid)
	}
	return nil
}

// UpdateToolbarShortcut rebinds the toolbar shortcut. An empty shortcut
// disables it.
func (a *App) UpdateToolbarShortcut(accel string) error {
	if a.child {
		return errMainOnly
	}
	a.mu.RLock()
	binding := a.toolbar
	a.mu.RUnlock()
	if binding == nil {
		return errNotReady
	}
	return binding.Set(accel)
}

// ShowToolbar shows and focuses the toolbar window.
func (a *App) ShowToolbar() error {
	m, err := a.windowManager()
	if err != nil {
		return err
	}
	return m.ShowToolbar(a.context())
}

// OpenWindow opens a fixed-size window. Zero sizes select the defaults.
func (a *App) OpenWindow(name, url string, width, height int) error {
	m, err := a.windowManager()
	if err != nil {
		return err
	}
	return m.OpenWindow(a.context(), name, url, width, height)
}

// OpenFullWindow opens a resizable window covering the primary monitor.
func (a *App) OpenFullWindow(name, url string) error {
	m, err := a.windowManager()
	if err != nil {
		return err
	}
	return m.OpenFullWindow(a.context(), name, url)
}

// OpenSmallWindow opens a small frameless always-on-top window.
func (a *App) OpenSmallWindow(name, url string) error {
	m, err := a.windowManager()
	if err != nil {
		return err
	}
	return m.OpenSmallWindow(a.context(), name, url)
}

// LockWindows prevents the listed windows from being closed. No ids locks
// every window.
func (a *App) LockWindows(ids []string) error {
	m, err := a.windowManager()
	if err != nil {
		return err
	}
	return m.Lock(a.context(), ids...)
}

// UnlockWindows reverses LockWindows.
func (a *App) UnlockWindows(ids []string) error {
	m, err := a.windowManager()
	if err != nil {
		return err
	}
	return m.Unlock(a.context(), ids...)
}

// CloseWindow closes the window with the given label.
func (a *App) CloseWindow(label string) error {
	m, err := a.windowManager()
	if err != nil {
		return err
	}
	return m.Close(a.context(), label)
}

// GetVersion returns the build version.
func (a *App) GetVersion() string {
	return version.Full()
}

func (a *App) timeout(ms int) time.Duration {
	if ms <= 0 {
		return a.stopTimeout()
	}
	return time.Duration(ms) * time.Millisecond
}

func logIfErr(what string, err error) {
	if err != nil && !errors.Is(err, errNotReady) {
		log.Printf("[App] %s: %v", what, err)
	}
}
