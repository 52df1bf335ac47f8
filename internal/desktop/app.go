// Package desktop is the Wails application: lifecycle hooks, the tray and
// every command bound to the frontend.
package desktop

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/awsl-project/deskshell/internal/config"
	"github.com/awsl-project/deskshell/internal/core"
	"github.com/awsl-project/deskshell/internal/hostcmd"
	"github.com/awsl-project/deskshell/internal/machine"
	"github.com/awsl-project/deskshell/internal/netcheck"
	"github.com/awsl-project/deskshell/internal/process"
	"github.com/awsl-project/deskshell/internal/prompt"
	"github.com/awsl-project/deskshell/internal/repository/sqlite"
	"github.com/awsl-project/deskshell/internal/shortcut"
	"github.com/awsl-project/deskshell/internal/supervisor"
	"github.com/awsl-project/deskshell/internal/tunnel"
	"github.com/awsl-project/deskshell/internal/update"
	"github.com/awsl-project/deskshell/internal/window"
	"github.com/awsl-project/deskshell/internal/winhost"
	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

// MainWindowLabel is the label of the window Wails opens at startup.
const MainWindowLabel = "main"

// PhaseEvent is emitted to the frontend on every termination phase.
const PhaseEvent = "process:phase"

var (
	errNotReady = errors.New("application is still starting")
	errMainOnly = errors.New("only available in the main window")
)

// Deps overrides host integrations. Zero values select the real ones.
type Deps struct {
	Runner     hostcmd.Runner
	Controller process.Controller
	Lister     process.Lister
	Spawn      winhost.SpawnFunc
	Logs       *LogWriter
}

// App is bound to the frontend.
type App struct {
	cfg    *config.Config
	goos   string
	runner hostcmd.Runner

	db       *sqlite.DB
	term     *process.Terminator
	lister   process.Lister
	ports    *process.PortLocator
	sup      *supervisor.Supervisor
	tunnels  *tunnel.Manager
	ident    *machine.Identifier
	prompter *prompt.Prompter
	elevator *update.Elevator
	proxy    *netcheck.ProxyTester

	issuer *winhost.TokenIssuer
	hub    *winhost.Hub
	server *core.ManagedServer
	spawn  winhost.SpawnFunc
	logs   *LogWriter

	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	main      *winhost.MainWindow
	host      *winhost.ProcessHost
	windows   window.Operations
	registrar shortcut.Registrar
	toolbar   *shortcut.Binding

	// set for secondary window processes
	child bool
}

// NewApp opens the helper registry and wires every service. Window and
// shortcut services start with Startup.
func NewApp(cfg *config.Config, deps Deps) (*App, error) {
	a, err := newApp(cfg, deps)
	if err != nil {
		return nil, err
	}

	a.issuer, err = winhost.NewTokenIssuer()
	if err != nil {
		a.db.Close()
		return nil, err
	}
	a.hub = winhost.NewHub(a.issuer)
	a.server = core.NewManagedServer(&core.ServerConfig{Bridge: a.hub.HandleWebSocket})

	if a.spawn == nil {
		exe, err := os.Executable()
		if err != nil {
			a.db.Close()
			return nil, fmt.Errorf("locate executable: %w", err)
		}
		a.spawn = winhost.ExecSpawner(exe, cfg.Environ()...)
	}

	return a, nil
}

// NewChildApp wires the commands for a secondary window process. Window
// operations are forwarded to the main process through client.
func NewChildApp(cfg *config.Config, deps Deps, client winhost.Invoker) (*App, error) {
	a, err := newApp(cfg, deps)
	if err != nil {
		return nil, err
	}
	a.child = true
	a.windows = winhost.NewRemoteWindows(client)
	return a, nil
}

func newApp(cfg *config.Config, deps Deps) (*App, error) {
	if err := cfg.EnsureDataDir(); err != nil {
		return nil, err
	}

	db, err := sqlite.NewDB(cfg.DBPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open registry: %w", err)
	}

	runner := deps.Runner
	if runner == nil {
		runner = hostcmd.NewExecRunner()
	}
	ctrl := deps.Controller
	if ctrl == nil {
		ctrl, err = process.NewController(runner)
		if err != nil {
			log.Printf("[App] Process control unavailable: %v", err)
		}
	}
	lister := deps.Lister
	if lister == nil {
		lister = process.NewLister()
	}

	a := &App{
		cfg:      cfg,
		goos:     runtime.GOOS,
		runner:   runner,
		db:       db,
		lister:   lister,
		ports:    process.NewPortLocator(runner, runtime.GOOS),
		ident:    machine.NewIdentifier(runner, runtime.GOOS),
		prompter: prompt.New(runner, runtime.GOOS),
		elevator: update.NewElevator(runner, runtime.GOOS),
		proxy:    netcheck.NewProxyTester(cfg.ProxyProbeURL),
		spawn:    deps.Spawn,
		logs:     deps.Logs,
	}
	a.term = process.NewTerminator(ctrl, process.WithObserver(a.emitPhase))
	a.sup = supervisor.New(sqlite.NewManagedProcessRepository(db), a.term, cfg.StopTimeout)
	a.tunnels = tunnel.NewManager(cfg.CloudflaredPath, cfg.RcPort, a.sup)
	return a, nil
}

// Startup is called by Wails once the main window exists.
func (a *App) Startup(ctx context.Context) {
	log.Printf("[App] Starting deskshell %s", a.goos)
	appCtx, cancel := context.WithCancel(ctx)

	if err := a.server.Start(appCtx); err != nil {
		log.Printf("[App] Bridge server failed to start: %v", err)
	}

	main := winhost.NewMainWindow(ctx, MainWindowLabel)
	host := winhost.NewProcessHost(winhost.HostConfig{
		Hub:      a.hub,
		Issuer:   a.issuer,
		HubURL:   a.server.BridgeURL(),
		Spawn:    a.spawn,
		Tracker:  a.sup,
		Monitors: winhost.Screens(ctx),
		Main:     main,
	})
	windows := window.NewManager(host)
	a.hub.OnInvoke(winhost.ServeOperations(windows))

	registrar, err := shortcut.NewRegistrar()
	if err != nil {
		log.Printf("[App] Global shortcuts disabled: %v", err)
	}

	if a.logs != nil {
		a.logs.SetEmitter(func(line string) { wailsruntime.EventsEmit(ctx, LogEvent, line) })
	}

	a.mu.Lock()
	a.ctx = appCtx
	a.cancel = cancel
	a.main = main
	a.host = host
	a.windows = windows
	a.registrar = registrar
	a.toolbar = shortcut.NewBinding(registrar, a.toggleToolbar)
	a.mu.Unlock()

	if a.cfg.ToolbarShortcut != "" {
		if err := a.toolbar.Set(a.cfg.ToolbarShortcut); err != nil {
			log.Printf("[App] Toolbar shortcut not registered: %v", err)
		}
	}

	go func() {
		if _, err := a.sup.ReapStale(appCtx); err != nil {
			log.Printf("[App] Reaping stale helpers: %v", err)
		}
	}()
	core.StartBackgroundTasks(appCtx, core.BackgroundTaskDeps{
		Registry:  a.sup,
		Retention: a.cfg.Retention,
	})
}

// ChildStartup is the Startup of a secondary window process.
func (a *App) ChildStartup(ctx context.Context) {
	appCtx, cancel := context.WithCancel(ctx)
	a.mu.Lock()
	a.ctx = appCtx
	a.cancel = cancel
	a.mu.Unlock()
}

// ChildShutdown stops the helpers this window started and closes the
// registry.
func (a *App) ChildShutdown(ctx context.Context) {
	stopCtx, cancel := context.WithTimeout(context.Background(), 2*a.stopTimeout())
	defer cancel()

	a.tunnels.StopAll(stopCtx)
	a.mu.RLock()
	appCancel := a.cancel
	a.mu.RUnlock()
	if appCancel != nil {
		appCancel()
	}
	if err := a.db.Close(); err != nil {
		log.Printf("[App] Close registry: %v", err)
	}
}

// DomReady is called after the frontend has loaded.
func (a *App) DomReady(ctx context.Context) {
	log.Println("[App] DOM ready")
}

// Shutdown closes child windows and helpers, then the registry.
func (a *App) Shutdown(ctx context.Context) {
	log.Println("[App] Shutting down")

	stopCtx, cancel := context.WithTimeout(context.Background(), 2*a.stopTimeout())
	defer cancel()

	a.mu.RLock()
	host, registrar, appCancel := a.host, a.registrar, a.cancel
	a.mu.RUnlock()

	if a.logs != nil {
		a.logs.SetEmitter(nil)
	}
	if registrar != nil {
		registrar.Close()
	}
	if host != nil {
		host.CloseAll(stopCtx)
	}
	a.tunnels.StopAll(stopCtx)
	a.hub.Close()
	if err := a.server.Stop(stopCtx); err != nil {
		log.Printf("[App] Bridge server stop: %v", err)
	}
	if appCancel != nil {
		appCancel()
	}
	if err := a.db.Close(); err != nil {
		log.Printf("[App] Close registry: %v", err)
	}
}

// Quit exits the application.
func (a *App) Quit() {
	if ctx := a.wailsContext(); ctx != nil {
		wailsruntime.Quit(ctx)
	}
}

func (a *App) context() context.Context {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.ctx != nil {
		return a.ctx
	}
	return context.Background()
}

// wailsContext returns the runtime context, or nil before Startup.
func (a *App) wailsContext() context.Context {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.ctx
}

func (a *App) windowManager() (window.Operations, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.windows == nil {
		return nil, errNotReady
	}
	return a.windows, nil
}

func (a *App) stopTimeout() time.Duration {
	if a.cfg.StopTimeout > 0 {
		return a.cfg.StopTimeout
	}
	return process.DefaultTimeout
}

func (a *App) emitPhase(pid int, phase process.Phase) {
	ctx := a.wailsContext()
	if ctx == nil {
		return
	}
	wailsruntime.EventsEmit(ctx, PhaseEvent, map[string]any{
		"pid":   pid,
		"phase": phase.String(),
	})
}

func (a *App) toggleToolbar() {
	m, err := a.windowManager()
	if err != nil {
		return
	}
	if err := m.ToggleToolbar(a.context()); err != nil {
		log.Printf("[App] Toggle toolbar: %v", err)
	}
}

func (a *App) mainWindow() *winhost.MainWindow {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.main
}
