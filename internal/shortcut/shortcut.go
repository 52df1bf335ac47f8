package shortcut

import (
	"fmt"
	"log"
	"strings"
	"sync"
)

// DefaultToolbar is the default accelerator for the toolbar.
const DefaultToolbar = "CmdOrCtrl+Shift+/"

// Registrar is a global shortcut backend.
type Registrar interface {
	Register(a Accelerator, fn func()) error
	UnregisterAll() error
	Close()
}

// Binding owns the single shortcut bound to an action.
type Binding struct {
	reg    Registrar
	action func()

	mu      sync.Mutex
	current string
}

// NewBinding binds action to shortcuts registered through reg.
func NewBinding(reg Registrar, action func()) *Binding {
	return &Binding{reg: reg, action: action}
}

// Set replaces the bound shortcut. An empty or blank shortcut only clears
// the previous one.
func (b *Binding) Set(shortcut string) error {
	shortcut = strings.TrimSpace(shortcut)

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.reg.UnregisterAll(); err != nil {
		return fmt.Errorf("unregister shortcuts: %w", err)
	}
	b.current = ""
	if shortcut == "" {
		log.Println("[Shortcut] Toolbar shortcut cleared")
		return nil
	}

	a, err := Parse(shortcut)
	if err != nil {
		return err
	}
	if err := b.reg.Register(a, b.action); err != nil {
		return fmt.Errorf("register %s: %w", a, err)
	}
	b.current = a.String()
	log.Printf("[Shortcut] Toolbar shortcut set to %s", b.current)
	return nil
}

// Current returns the registered accelerator in canonical form.
func (b *Binding) Current() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}
