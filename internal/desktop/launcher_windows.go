//go:build windows

package desktop

import (
	"context"
	"log"

	"github.com/wailsapp/wails/v2/pkg/runtime"
)

// BeforeClose hides the main window to the tray instead of quitting.
func (a *App) BeforeClose(ctx context.Context) bool {
	log.Println("[App] Window close requested - hiding to tray")
	if main := a.mainWindow(); main != nil {
		logIfErr("hide main window", main.Hide(ctx))
		return true
	}
	runtime.WindowHide(ctx)
	return true
}
