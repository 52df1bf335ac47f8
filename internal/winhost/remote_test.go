package winhost

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"
)

type recordingOps struct {
	mu    sync.Mutex
	calls []string
	fail  error
}

func (r *recordingOps) record(format string, args ...any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
	return r.fail
}

func (r *recordingOps) OpenWindow(_ context.Context, label, url string, width, height int) error {
	return r.record("open %s %s %dx%d", label, url, width, height)
}

func (r *recordingOps) OpenFullWindow(_ context.Context, label, url string) error {
	return r.record("full %s %s", label, url)
}

func (r *recordingOps) OpenSmallWindow(_ context.Context, label, url string) error {
	return r.record("small %s %s", label, url)
}

func (r *recordingOps) Lock(_ context.Context, labels ...string) error {
	return r.record("lock %v", labels)
}

func (r *recordingOps) Unlock(_ context.Context, labels ...string) error {
	return r.record("unlock %v", labels)
}

func (r *recordingOps) Close(_ context.Context, label string) error {
	return r.record("close %s", label)
}

func (r *recordingOps) ShowToolbar(context.Context) error   { return r.record("show toolbar") }
func (r *recordingOps) ToggleToolbar(context.Context) error { return r.record("toggle toolbar") }

func (r *recordingOps) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

func TestRemoteWindowsForwardsToHost(t *testing.T) {
	b := newBridge(t)
	ops := &recordingOps{}
	b.hub.OnInvoke(ServeOperations(ops))

	c, _ := b.connect(t, "Toolbar", 99, echoSize)
	waitPeer(t, b.hub, "Toolbar")
	remote := NewRemoteWindows(c)

	ctx := context.Background()
	steps := []struct {
		name string
		run  func() error
	}{
		{"open", func() error { return remote.OpenWindow(ctx, "Settings", "/settings", 0, 0) }},
		{"full", func() error { return remote.OpenFullWindow(ctx, "Logs", "/logs") }},
		{"small", func() error { return remote.OpenSmallWindow(ctx, "Mini", "/mini") }},
		{"lock", func() error { return remote.Lock(ctx, "main", "Logs") }},
		{"unlock", func() error { return remote.Unlock(ctx) }},
		{"close", func() error { return remote.Close(ctx, "Logs") }},
		{"show", func() error { return remote.ShowToolbar(ctx) }},
		{"toggle", func() error { return remote.ToggleToolbar(ctx) }},
	}
	for _, s := range steps {
		if err := s.run(); err != nil {
			t.Fatalf("%s: %v", s.name, err)
		}
	}

	want := []string{
		"open Settings /settings 0x0",
		"full Logs /logs",
		"small Mini /mini",
		"lock [main Logs]",
		"unlock []",
		"close Logs",
		"show toolbar",
		"toggle toolbar",
	}
	if got := ops.snapshot(); !slices.Equal(got, want) {
		t.Errorf("host saw %q\nwant %q", got, want)
	}
}

func TestRemoteWindowsReturnsHostError(t *testing.T) {
	b := newBridge(t)
	b.hub.OnInvoke(ServeOperations(&recordingOps{fail: errors.New("no monitor found")}))

	c, _ := b.connect(t, "Toolbar", 99, echoSize)
	waitPeer(t, b.hub, "Toolbar")

	err := NewRemoteWindows(c).OpenWindow(context.Background(), "Settings", "/settings", 0, 0)
	if err == nil || !strings.Contains(err.Error(), "no monitor found") {
		t.Fatalf("err = %v", err)
	}
}

func TestInvokeWithoutHandler(t *testing.T) {
	b := newBridge(t)
	c, _ := b.connect(t, "Toolbar", 99, echoSize)
	waitPeer(t, b.hub, "Toolbar")

	if _, err := c.Invoke(context.Background(), OpShowToolbar, Args{}); err == nil {
		t.Fatal("Invoke() succeeded with no handler registered")
	}
}

func TestServeOperationsUnknown(t *testing.T) {
	fn := ServeOperations(&recordingOps{})
	if _, err := fn(context.Background(), "main", "explode", Args{}); err == nil {
		t.Fatal("unknown operation accepted")
	}
}
