package window

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"slices"
	"sync"
	"time"
)

// SettleDelay is how long a new window is given to finish loading before
// it is positioned and shown.
const SettleDelay = 750 * time.Millisecond

// Manager implements the window operations.
type Manager struct {
	host   Host
	goos   string
	settle time.Duration

	// serialises exists-or-create so one label never yields two windows
	mu sync.Mutex
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithGOOS overrides the platform used for per-OS sizes.
func WithGOOS(goos string) ManagerOption {
	return func(m *Manager) { m.goos = goos }
}

// WithSettleDelay overrides SettleDelay.
func WithSettleDelay(d time.Duration) ManagerOption {
	return func(m *Manager) { m.settle = d }
}

// NewManager creates a Manager on host.
func NewManager(host Host, opts ...ManagerOption) *Manager {
	m := &Manager{
		host:   host,
		goos:   runtime.GOOS,
		settle: SettleDelay,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// OpenWindow opens a fixed-size decorated window, or focuses the existing
// window with the same label. Width and height <= 0 select the defaults.
func (m *Manager) OpenWindow(ctx context.Context, label, url string, width, height int) error {
	dw, dh := DefaultSize(m.goos)
	if width <= 0 {
		width = dw
	}
	if height <= 0 {
		height = dh
	}

	w, created, err := m.openOrFocus(ctx, Options{
		Label:    label,
		URL:      url,
		Title:    label,
		Width:    width,
		Height:   height,
		Closable: true,
		Hidden:   true,
	})
	if err != nil || !created {
		return err
	}

	if err := m.wait(ctx); err != nil {
		return err
	}

	mons, err := m.host.Monitors(ctx)
	if err != nil {
		return fmt.Errorf("list monitors: %w", err)
	}
	mon, err := PickMonitor(mons)
	if err != nil {
		return err
	}
	size, err := w.OuterSize(ctx)
	if err != nil {
		return fmt.Errorf("window size: %w", err)
	}

	x, y := Centered(mon, size.Width, size.Height)
	offset := CascadeOffset(len(m.host.Windows()))
	if err := w.SetPosition(ctx, x+offset, y+offset); err != nil {
		return err
	}
	return showAndFocus(ctx, w)
}

// OpenFullWindow opens a resizable window covering the primary monitor.
func (m *Manager) OpenFullWindow(ctx context.Context, label, url string) error {
	if w, ok := m.host.Window(label); ok {
		return w.Focus(ctx)
	}

	mons, err := m.host.Monitors(ctx)
	if err != nil {
		return fmt.Errorf("list monitors: %w", err)
	}
	mon, err := PickMonitor(mons)
	if err != nil {
		return err
	}
	width, height := FullSize(mon, m.goos)

	w, created, err := m.openOrFocus(ctx, Options{
		Label:     label,
		URL:       url,
		Title:     label,
		Width:     width,
		Height:    height,
		Resizable: true,
		Closable:  true,
		Hidden:    true,
	})
	if err != nil || !created {
		return err
	}

	if err := m.wait(ctx); err != nil {
		return err
	}
	if err := w.Center(ctx); err != nil {
		return err
	}
	return showAndFocus(ctx, w)
}

// OpenSmallWindow opens an 800 x 500 frameless window that cannot be closed
// by the user and stays on top.
func (m *Manager) OpenSmallWindow(ctx context.Context, label, url string) error {
	w, created, err := m.openOrFocus(ctx, Options{
		Label:       label,
		URL:         url,
		Title:       label,
		Width:       smallWidth,
		Height:      smallHeight,
		Frameless:   true,
		Closable:    false,
		Transparent: m.goos != "windows",
		Hidden:      true,
	})
	if err != nil || !created {
		return err
	}

	if err := w.Center(ctx); err != nil {
		return err
	}
	if err := m.wait(ctx); err != nil {
		return err
	}
	if err := showAndFocus(ctx, w); err != nil {
		return err
	}
	return w.SetAlwaysOnTop(ctx, true)
}

// Lock makes the listed windows non-closable. No labels means every window.
func (m *Manager) Lock(ctx context.Context, labels ...string) error {
	return m.setClosable(ctx, false, labels)
}

// Unlock makes the listed windows closable again. No labels means every
// window.
func (m *Manager) Unlock(ctx context.Context, labels ...string) error {
	return m.setClosable(ctx, true, labels)
}

func (m *Manager) setClosable(ctx context.Context, closable bool, labels []string) error {
	for _, w := range m.host.Windows() {
		if len(labels) > 0 && !slices.Contains(labels, w.Label()) {
			continue
		}
		if err := w.SetClosable(ctx, closable); err != nil {
			return fmt.Errorf("window %q: %w", w.Label(), err)
		}
	}
	return nil
}

// Close closes the window with label. Closing a missing window is not an
// error.
func (m *Manager) Close(ctx context.Context, label string) error {
	w, ok := m.host.Window(label)
	if !ok {
		return nil
	}
	return w.Close(ctx)
}

// openOrFocus focuses an existing window, or creates one. created reports
// which happened.
func (m *Manager) openOrFocus(ctx context.Context, opts Options) (Handle, bool, error) {
	if opts.Label == "" {
		return nil, false, fmt.Errorf("window label is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if w, ok := m.host.Window(opts.Label); ok {
		return w, false, w.Focus(ctx)
	}

	w, err := m.host.Create(ctx, opts)
	if err != nil {
		return nil, false, fmt.Errorf("create window %q: %w", opts.Label, err)
	}
	log.Printf("[Window] Created %q (%dx%d)", opts.Label, opts.Width, opts.Height)
	return w, true, nil
}

func (m *Manager) wait(ctx context.Context) error {
	if m.settle <= 0 {
		return nil
	}
	timer := time.NewTimer(m.settle)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func showAndFocus(ctx context.Context, w Handle) error {
	if err := w.Show(ctx); err != nil {
		return err
	}
	return w.Focus(ctx)
}
