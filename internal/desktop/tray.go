//go:build windows

package desktop

import (
	"context"
	_ "embed"
	"log"

	"github.com/getlantern/systray"
	"github.com/wailsapp/wails/v2/pkg/runtime"
)

//go:embed icon.ico
var iconData []byte

// TrayManager owns the Windows tray icon and menu.
type TrayManager struct {
	ctx         context.Context
	app         *App
	menuShow    *systray.MenuItem
	menuToolbar *systray.MenuItem
	menuReap    *systray.MenuItem
	menuQuit    *systray.MenuItem
}

// NewTrayManager creates a tray manager bound to the main window context.
func NewTrayManager(ctx context.Context, app *App) *TrayManager {
	return &TrayManager{
		ctx: ctx,
		app: app,
	}
}

// Start runs the tray loop. It blocks until the tray exits.
func (t *TrayManager) Start() {
	systray.Run(t.onReady, t.onExit)
}

func (t *TrayManager) onReady() {
	log.Println("[Tray] Initializing system tray...")

	systray.SetIcon(iconData)
	systray.SetTitle("deskshell")
	systray.SetTooltip("deskshell")

	t.menuShow = systray.AddMenuItem("Show window", "Show the main window")
	t.menuToolbar = systray.AddMenuItem("Toolbar", "Toggle the toolbar")
	systray.AddSeparator()
	t.menuReap = systray.AddMenuItem("Stop helper processes", "Stop tunnels and other helpers")
	systray.AddSeparator()
	t.menuQuit = systray.AddMenuItem("Quit", "Quit deskshell")

	go t.handleMenuEvents()
}

func (t *TrayManager) onExit() {
	log.Println("[Tray] System tray exited")
}

func (t *TrayManager) handleMenuEvents() {
	for {
		select {
		case <-t.menuShow.ClickedCh:
			log.Println("[Tray] Show window clicked")
			t.showWindow()

		case <-t.menuToolbar.ClickedCh:
			log.Println("[Tray] Toolbar clicked")
			t.app.toggleToolbar()

		case <-t.menuReap.ClickedCh:
			log.Println("[Tray] Stop helpers clicked")
			t.app.tunnels.StopAll(t.ctx)

		case <-t.menuQuit.ClickedCh:
			log.Println("[Tray] Quit clicked")
			t.quit()
			return
		}
	}
}

func (t *TrayManager) showWindow() {
	if main := t.app.mainWindow(); main != nil {
		logIfErr("show main window", main.Show(t.ctx))
		return
	}
	runtime.WindowShow(t.ctx)
	runtime.WindowUnminimise(t.ctx)
}

func (t *TrayManager) quit() {
	log.Println("[Tray] Quitting application...")
	t.app.Quit()
	systray.Quit()
}
