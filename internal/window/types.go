// Package window implements the shell's window operations on top of a Host
// that can create and drive native windows.
package window

import (
	"context"
	"errors"
)

// ErrNoMonitor is returned when the host reports no display.
var ErrNoMonitor = errors.New("no monitor found")

// Options describe a window to create. Sizes and positions are in the
// host's window units.
type Options struct {
	Label       string
	URL         string
	Title       string
	Width       int
	Height      int
	X           int
	Y           int
	Positioned  bool // place at X, Y instead of the host default
	Resizable   bool
	Frameless   bool
	Closable    bool
	Transparent bool
	AlwaysOnTop bool
	Hidden      bool
	AllSpaces   bool // visible on every workspace
}

// Size is a window's outer size.
type Size struct {
	Width  int
	Height int
}

// Handle drives one window.
type Handle interface {
	Label() string
	Show(ctx context.Context) error
	Hide(ctx context.Context) error
	Focus(ctx context.Context) error
	Center(ctx context.Context) error
	SetPosition(ctx context.Context, x, y int) error
	OuterSize(ctx context.Context) (Size, error)
	SetAlwaysOnTop(ctx context.Context, on bool) error
	SetClosable(ctx context.Context, closable bool) error
	IsVisible(ctx context.Context) (bool, error)
	Close(ctx context.Context) error
}

// Host creates windows and reports displays.
type Host interface {
	// Window returns the open window with label.
	Window(label string) (Handle, bool)
	// Windows returns every open window, the main window included.
	Windows() []Handle
	Create(ctx context.Context, opts Options) (Handle, error)
	Monitors(ctx context.Context) ([]Monitor, error)
}

// Operations are the window actions exposed to pages. Manager implements
// them in the main process; child windows forward them over the bridge.
type Operations interface {
	OpenWindow(ctx context.Context, label, url string, width, height int) error
	OpenFullWindow(ctx context.Context, label, url string) error
	OpenSmallWindow(ctx context.Context, label, url string) error
	Lock(ctx context.Context, labels ...string) error
	Unlock(ctx context.Context, labels ...string) error
	Close(ctx context.Context, label string) error
	ShowToolbar(ctx context.Context) error
	ToggleToolbar(ctx context.Context) error
}

var _ Operations = (*Manager)(nil)
