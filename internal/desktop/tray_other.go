//go:build !windows

package desktop

import "context"

// TrayManager is a no-op outside Windows; macOS uses the app menu and Linux
// desktops vary too much in tray support.
type TrayManager struct{}

// NewTrayManager creates a no-op tray manager.
func NewTrayManager(ctx context.Context, app *App) *TrayManager {
	return &TrayManager{}
}

// Start is a no-op on non-Windows platforms.
func (t *TrayManager) Start() {}
