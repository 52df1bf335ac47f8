package shortcut

import (
	"strings"
	"testing"

	"pgregory.net/rapid"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in        string
		canonical string
		x11       string
	}{
		{"CmdOrCtrl+Shift+/", "CmdOrCtrl+Shift+/", "Control-Shift-slash"},
		{"  commandorcontrol+shift+/  ", "CmdOrCtrl+Shift+/", "Control-Shift-slash"},
		{"Alt+Space", "Alt+Space", "Mod1-space"},
		{"Shift+Ctrl+t", "Ctrl+Shift+T", "Control-Shift-t"},
		{"Super+F12", "Super+F12", "Mod4-F12"},
		{"CmdOrCtrl+Ctrl+K", "CmdOrCtrl+Ctrl+K", "Control-k"},
		{"Ctrl++", "Ctrl+Plus", "Control-plus"},
		{"Option+PageDown", "Alt+PageDown", "Mod1-Next"},
		{"Ctrl+Return", "Ctrl+Enter", "Control-Return"},
		{"F1", "F1", "F1"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			a, err := Parse(tt.in)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if got := a.String(); got != tt.canonical {
				t.Errorf("String() = %q, want %q", got, tt.canonical)
			}
			if got := a.X11(); got != tt.x11 {
				t.Errorf("X11() = %q, want %q", got, tt.x11)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	for _, in := range []string{
		"",
		"   ",
		"Ctrl+",
		"Ctrl+Shift",
		"Ctrl+Ctrl+A",
		"Hyper+A",
		"Ctrl+A+B",
		"Ctrl+F25",
		"Ctrl+F05",
		"Ctrl+Ä",
	} {
		if a, err := Parse(in); err == nil {
			t.Errorf("Parse(%q) = %v, want error", in, a)
		}
	}
}

func TestParseCanonicalProperty(t *testing.T) {
	keys := []string{"A", "Z", "0", "9", "/", ",", "Space", "Enter", "F1", "F24", "PageUp", "Plus", "Left"}
	rapid.Check(t, func(t *rapid.T) {
		var mods Modifier
		for _, m := range modifierOrder {
			if rapid.Bool().Draw(t, modifierNames[m]) {
				mods |= m
			}
		}
		a := Accelerator{Mods: mods, Key: rapid.SampledFrom(keys).Draw(t, "key")}

		spelled := a.String()
		if rapid.Bool().Draw(t, "lower") {
			spelled = strings.ToLower(spelled)
		}
		got, err := Parse(spelled)
		if err != nil {
			t.Fatalf("Parse(%q) error = %v", spelled, err)
		}
		if got != a {
			t.Fatalf("Parse(%q) = %+v, want %+v", spelled, got, a)
		}
		if x := got.X11(); strings.Contains(x, "+") && a.Key != "Plus" {
			t.Fatalf("X11() = %q contains '+'", x)
		}
	})
}
