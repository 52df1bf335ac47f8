package window

import (
	"context"
	"fmt"
	"sync"
)

type fakeHost struct {
	mu       sync.Mutex
	monitors []Monitor
	windows  []*fakeWindow
	created  []Options
}

func (h *fakeHost) Window(label string) (Handle, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, w := range h.windows {
		if w.label == label {
			return w, true
		}
	}
	return nil, false
}

func (h *fakeHost) Windows() []Handle {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Handle, len(h.windows))
	for i, w := range h.windows {
		out[i] = w
	}
	return out
}

func (h *fakeHost) Create(_ context.Context, opts Options) (Handle, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, w := range h.windows {
		if w.label == opts.Label {
			return nil, fmt.Errorf("duplicate label %q", opts.Label)
		}
	}
	w := &fakeWindow{
		label:    opts.Label,
		size:     Size{opts.Width, opts.Height},
		visible:  !opts.Hidden,
		closable: opts.Closable,
		x:        opts.X,
		y:        opts.Y,
	}
	h.windows = append(h.windows, w)
	h.created = append(h.created, opts)
	return w, nil
}

func (h *fakeHost) Monitors(context.Context) ([]Monitor, error) {
	return h.monitors, nil
}

type fakeWindow struct {
	mu       sync.Mutex
	label    string
	size     Size
	x, y     int
	visible  bool
	focused  int
	centered bool
	onTop    bool
	closable bool
	calls    []string
}

func (w *fakeWindow) record(call string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls = append(w.calls, call)
}

func (w *fakeWindow) Label() string { return w.label }

func (w *fakeWindow) Show(context.Context) error {
	w.record("show")
	w.visible = true
	return nil
}

func (w *fakeWindow) Hide(context.Context) error {
	w.record("hide")
	w.visible = false
	return nil
}

func (w *fakeWindow) Focus(context.Context) error {
	w.record("focus")
	w.focused++
	return nil
}

func (w *fakeWindow) Center(context.Context) error {
	w.record("center")
	w.centered = true
	return nil
}

func (w *fakeWindow) SetPosition(_ context.Context, x, y int) error {
	w.record("position")
	w.x, w.y = x, y
	return nil
}

func (w *fakeWindow) OuterSize(context.Context) (Size, error) { return w.size, nil }

func (w *fakeWindow) SetAlwaysOnTop(_ context.Context, on bool) error {
	w.record("top")
	w.onTop = on
	return nil
}

func (w *fakeWindow) SetClosable(_ context.Context, closable bool) error {
	w.closable = closable
	return nil
}

func (w *fakeWindow) IsVisible(context.Context) (bool, error) { return w.visible, nil }

func (w *fakeWindow) Close(context.Context) error {
	w.record("close")
	return nil
}
