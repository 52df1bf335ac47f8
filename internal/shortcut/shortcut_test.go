package shortcut

import (
	"errors"
	"slices"
	"testing"
)

type fakeRegistrar struct {
	registered []string
	unregister int
	fail       error
	fns        []func()
}

func (r *fakeRegistrar) Register(a Accelerator, fn func()) error {
	if r.fail != nil {
		return r.fail
	}
	r.registered = append(r.registered, a.X11())
	r.fns = append(r.fns, fn)
	return nil
}

func (r *fakeRegistrar) UnregisterAll() error {
	r.unregister++
	r.registered = nil
	r.fns = nil
	return nil
}

func (r *fakeRegistrar) Close() {}

func TestBindingSet(t *testing.T) {
	reg := &fakeRegistrar{}
	toggles := 0
	b := NewBinding(reg, func() { toggles++ })

	if err := b.Set(DefaultToolbar); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(reg.registered, []string{"Control-Shift-slash"}) {
		t.Errorf("registered = %v", reg.registered)
	}
	if b.Current() != DefaultToolbar {
		t.Errorf("Current() = %q", b.Current())
	}
	reg.fns[0]()
	if toggles != 1 {
		t.Errorf("action ran %d times", toggles)
	}

	if err := b.Set("  Alt+T  "); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(reg.registered, []string{"Mod1-t"}) {
		t.Errorf("previous shortcut not replaced: %v", reg.registered)
	}

	if err := b.Set("   "); err != nil {
		t.Fatal(err)
	}
	if len(reg.registered) != 0 || b.Current() != "" {
		t.Errorf("blank shortcut left %v / %q", reg.registered, b.Current())
	}
	if reg.unregister != 3 {
		t.Errorf("UnregisterAll called %d times, want 3", reg.unregister)
	}
}

func TestBindingSetInvalidClearsPrevious(t *testing.T) {
	reg := &fakeRegistrar{}
	b := NewBinding(reg, func() {})
	if err := b.Set("Ctrl+K"); err != nil {
		t.Fatal(err)
	}
	if err := b.Set("Ctrl+Nope"); err == nil {
		t.Fatal("invalid shortcut accepted")
	}
	if len(reg.registered) != 0 || b.Current() != "" {
		t.Errorf("registered = %v, current = %q", reg.registered, b.Current())
	}
}

func TestBindingUnsupported(t *testing.T) {
	b := NewBinding(unsupported{}, func() {})
	if err := b.Set(DefaultToolbar); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("err = %v, want ErrUnsupported", err)
	}
	if err := b.Set(""); err != nil {
		t.Fatalf("clearing on unsupported platform: %v", err)
	}
}
