// Package shortcut registers the global toolbar shortcut.
package shortcut

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupported is returned where no global shortcut backend exists.
var ErrUnsupported = errors.New("global shortcuts are not supported on this platform")

// Modifier is a modifier key in an accelerator.
type Modifier int

// Modifiers in canonical order.
const (
	CmdOrCtrl Modifier = 1 << iota
	Ctrl
	Alt
	Shift
	Super
)

var modifierOrder = []Modifier{CmdOrCtrl, Ctrl, Alt, Shift, Super}

var modifierNames = map[Modifier]string{
	CmdOrCtrl: "CmdOrCtrl",
	Ctrl:      "Ctrl",
	Alt:       "Alt",
	Shift:     "Shift",
	Super:     "Super",
}

var modifierAliases = map[string]Modifier{
	"cmdorctrl":        CmdOrCtrl,
	"commandorcontrol": CmdOrCtrl,
	"ctrl":             Ctrl,
	"control":          Ctrl,
	"alt":              Alt,
	"option":           Alt,
	"shift":            Shift,
	"super":            Super,
	"meta":             Super,
	"cmd":              Super,
	"command":          Super,
}

var x11Modifiers = map[Modifier]string{
	CmdOrCtrl: "Control",
	Ctrl:      "Control",
	Alt:       "Mod1",
	Shift:     "Shift",
	Super:     "Mod4",
}

// named keys, keyed by lower-case accelerator name, with their X11 keysym
var namedKeys = map[string]struct{ name, keysym string }{
	"space":     {"Space", "space"},
	"enter":     {"Enter", "Return"},
	"return":    {"Enter", "Return"},
	"tab":       {"Tab", "Tab"},
	"esc":       {"Escape", "Escape"},
	"escape":    {"Escape", "Escape"},
	"backspace": {"Backspace", "BackSpace"},
	"delete":    {"Delete", "Delete"},
	"insert":    {"Insert", "Insert"},
	"home":      {"Home", "Home"},
	"end":       {"End", "End"},
	"pageup":    {"PageUp", "Prior"},
	"pagedown":  {"PageDown", "Next"},
	"up":        {"Up", "Up"},
	"down":      {"Down", "Down"},
	"left":      {"Left", "Left"},
	"right":     {"Right", "Right"},
	"plus":      {"Plus", "plus"},
}

var punctuation = map[string]string{
	"/":  "slash",
	"\\": "backslash",
	",":  "comma",
	".":  "period",
	";":  "semicolon",
	"'":  "apostrophe",
	"[":  "bracketleft",
	"]":  "bracketright",
	"-":  "minus",
	"=":  "equal",
	"`":  "grave",
}

// Accelerator is a parsed key combination such as "CmdOrCtrl+Shift+/".
type Accelerator struct {
	Mods Modifier
	Key  string
}

// Parse reads an accelerator. Modifier names are case-insensitive; the key
// comes last.
func Parse(s string) (Accelerator, error) {
	var a Accelerator
	s = strings.TrimSpace(s)
	if s == "" {
		return a, errors.New("empty accelerator")
	}

	parts := splitAccelerator(s)
	for i, raw := range parts {
		part := strings.TrimSpace(raw)
		if part == "" {
			return a, fmt.Errorf("accelerator %q: empty segment", s)
		}
		last := i == len(parts)-1

		if mod, ok := modifierAliases[strings.ToLower(part)]; ok && !last {
			if a.Mods&mod != 0 {
				return a, fmt.Errorf("accelerator %q: duplicate modifier %s", s, part)
			}
			a.Mods |= mod
			continue
		}
		if !last {
			return a, fmt.Errorf("accelerator %q: %q is not a modifier", s, part)
		}

		key, err := normalizeKey(part)
		if err != nil {
			return a, fmt.Errorf("accelerator %q: %w", s, err)
		}
		a.Key = key
	}
	return a, nil
}

// splitAccelerator splits on "+" while allowing a trailing "+" key.
func splitAccelerator(s string) []string {
	if strings.HasSuffix(s, "++") {
		parts := strings.Split(strings.TrimSuffix(s, "++"), "+")
		return append(parts, "Plus")
	}
	if s == "+" {
		return []string{"Plus"}
	}
	return strings.Split(s, "+")
}

func normalizeKey(k string) (string, error) {
	lower := strings.ToLower(k)
	if nk, ok := namedKeys[lower]; ok {
		return nk.name, nil
	}
	if _, ok := punctuation[k]; ok {
		return k, nil
	}
	if len(k) == 1 {
		c := k[0]
		switch {
		case c >= 'a' && c <= 'z':
			return strings.ToUpper(k), nil
		case c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			return k, nil
		}
	}
	if (lower[0] == 'f') && len(lower) <= 3 {
		var n int
		if _, err := fmt.Sscanf(lower[1:], "%d", &n); err == nil && n >= 1 && n <= 24 && fmt.Sprint(n) == lower[1:] {
			return fmt.Sprintf("F%d", n), nil
		}
	}
	return "", fmt.Errorf("unknown key %q", k)
}

// String renders the accelerator in canonical form.
func (a Accelerator) String() string {
	parts := make([]string, 0, 6)
	for _, m := range modifierOrder {
		if a.Mods&m != 0 {
			parts = append(parts, modifierNames[m])
		}
	}
	return strings.Join(append(parts, a.Key), "+")
}

// X11 renders the accelerator as an xgbutil key sequence, for example
// "Control-Shift-slash".
func (a Accelerator) X11() string {
	var parts []string
	seen := make(map[string]bool)
	for _, m := range modifierOrder {
		if a.Mods&m == 0 {
			continue
		}
		name := x11Modifiers[m]
		if !seen[name] {
			seen[name] = true
			parts = append(parts, name)
		}
	}
	return strings.Join(append(parts, keysym(a.Key)), "-")
}

func keysym(key string) string {
	if nk, ok := namedKeys[strings.ToLower(key)]; ok {
		return nk.keysym
	}
	if sym, ok := punctuation[key]; ok {
		return sym
	}
	if len(key) == 1 && key[0] >= 'A' && key[0] <= 'Z' {
		return strings.ToLower(key)
	}
	return key
}
