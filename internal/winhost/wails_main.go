package winhost

import (
	"context"
	"sync"

	"github.com/awsl-project/deskshell/internal/window"
	"github.com/wailsapp/wails/v2/pkg/runtime"
)

// MainWindow adapts the in-process Wails window to window.Handle.
type MainWindow struct {
	ctx   context.Context
	label string

	mu       sync.Mutex
	visible  bool
	closable bool
}

// NewMainWindow wraps the Wails runtime context of the main window.
func NewMainWindow(ctx context.Context, label string) *MainWindow {
	return &MainWindow{ctx: ctx, label: label, visible: true, closable: true}
}

func (w *MainWindow) Label() string { return w.label }

func (w *MainWindow) Show(context.Context) error {
	runtime.WindowShow(w.ctx)
	runtime.WindowUnminimise(w.ctx)
	w.setVisible(true)
	return nil
}

func (w *MainWindow) Hide(context.Context) error {
	runtime.WindowHide(w.ctx)
	w.setVisible(false)
	return nil
}

// Focus raises the window. Wails v2 focuses a window when it is shown.
func (w *MainWindow) Focus(ctx context.Context) error {
	return w.Show(ctx)
}

func (w *MainWindow) Center(context.Context) error {
	runtime.WindowCenter(w.ctx)
	return nil
}

func (w *MainWindow) SetPosition(_ context.Context, x, y int) error {
	runtime.WindowSetPosition(w.ctx, x, y)
	return nil
}

func (w *MainWindow) OuterSize(context.Context) (window.Size, error) {
	width, height := runtime.WindowGetSize(w.ctx)
	return window.Size{Width: width, Height: height}, nil
}

func (w *MainWindow) SetAlwaysOnTop(_ context.Context, on bool) error {
	runtime.WindowSetAlwaysOnTop(w.ctx, on)
	return nil
}

func (w *MainWindow) SetClosable(_ context.Context, closable bool) error {
	w.mu.Lock()
	w.closable = closable
	w.mu.Unlock()
	return nil
}

// Closable reports the lock state consulted by the close hook.
func (w *MainWindow) Closable() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closable
}

func (w *MainWindow) IsVisible(context.Context) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.visible && !runtime.WindowIsMinimised(w.ctx), nil
}

// Close quits the application.
func (w *MainWindow) Close(context.Context) error {
	runtime.Quit(w.ctx)
	return nil
}

func (w *MainWindow) setVisible(v bool) {
	w.mu.Lock()
	w.visible = v
	w.mu.Unlock()
}

// Screens lists displays through the Wails runtime. Wails reports no
// monitor origin, so positions are relative to each screen.
func Screens(wailsCtx context.Context) MonitorFunc {
	return func(context.Context) ([]window.Monitor, error) {
		screens, err := runtime.ScreenGetAll(wailsCtx)
		if err != nil {
			return nil, err
		}
		return monitorsFromScreens(screens), nil
	}
}

func monitorsFromScreens(screens []runtime.Screen) []window.Monitor {
	mons := make([]window.Monitor, 0, len(screens))
	for _, s := range screens {
		scale := 1.0
		if s.Size.Width > 0 && s.PhysicalSize.Width > 0 {
			scale = float64(s.PhysicalSize.Width) / float64(s.Size.Width)
		}
		width, height := s.PhysicalSize.Width, s.PhysicalSize.Height
		if width == 0 {
			width, height = s.Size.Width, s.Size.Height
		}
		mons = append(mons, window.Monitor{
			Primary: s.IsPrimary,
			Width:   width,
			Height:  height,
			Scale:   scale,
		})
	}
	return mons
}
