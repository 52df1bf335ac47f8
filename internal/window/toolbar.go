package window

import (
	"context"
	"log"
)

const (
	ToolbarLabel = "Toolbar"
	ToolbarRoute = "/toolbar"

	toolbarWidthWindows  = 702
	toolbarHeightWindows = 460
)

// ToolbarRect places the toolbar on mon. Windows gets a fixed physical-pixel
// window so mixed-DPI setups size it consistently. Other platforms cover the
// full logical width from a quarter of the height down, with a transparent
// background.
func ToolbarRect(mon Monitor, goos string) Rect {
	if goos == "windows" {
		return Rect{
			X:      mon.X + (mon.Width-toolbarWidthWindows)/2,
			Y:      mon.Y + mon.Height/4,
			Width:  toolbarWidthWindows,
			Height: toolbarHeightWindows,
		}
	}
	l := mon.Logical()
	return Rect{
		X:      l.X,
		Y:      l.Y + l.Height/4,
		Width:  l.Width,
		Height: l.Height,
	}
}

// EnsureToolbar creates the hidden toolbar window if it does not exist.
func (m *Manager) EnsureToolbar(ctx context.Context) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if w, ok := m.host.Window(ToolbarLabel); ok {
		return w, nil
	}

	mons, err := m.host.Monitors(ctx)
	if err != nil {
		return nil, err
	}
	mon, err := PickMonitor(mons)
	if err != nil {
		return nil, err
	}
	r := ToolbarRect(mon, m.goos)

	w, err := m.host.Create(ctx, Options{
		Label:       ToolbarLabel,
		URL:         ToolbarRoute,
		Title:       ToolbarLabel,
		Width:       r.Width,
		Height:      r.Height,
		X:           r.X,
		Y:           r.Y,
		Positioned:  true,
		Frameless:   true,
		Closable:    true,
		Transparent: m.goos != "windows",
		Hidden:      true,
		AllSpaces:   true,
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[Window] Toolbar created at %d,%d (%dx%d)", r.X, r.Y, r.Width, r.Height)
	return w, nil
}

// ShowToolbar shows and focuses the toolbar, creating it when needed.
func (m *Manager) ShowToolbar(ctx context.Context) error {
	w, err := m.EnsureToolbar(ctx)
	if err != nil {
		return err
	}
	return showAndFocus(ctx, w)
}

// ToggleToolbar hides a visible toolbar and shows a hidden one.
func (m *Manager) ToggleToolbar(ctx context.Context) error {
	w, err := m.EnsureToolbar(ctx)
	if err != nil {
		return err
	}
	visible, err := w.IsVisible(ctx)
	if err != nil {
		return err
	}
	if visible {
		return w.Hide(ctx)
	}
	return showAndFocus(ctx, w)
}
