//go:build !windows

package desktop

import (
	"context"
	"log"
)

// BeforeClose lets the app exit unless the main window is locked.
func (a *App) BeforeClose(ctx context.Context) bool {
	if main := a.mainWindow(); main != nil && !main.Closable() {
		log.Println("[App] Window close requested while locked - ignored")
		return true
	}
	log.Println("[App] Window close requested")
	return false
}
