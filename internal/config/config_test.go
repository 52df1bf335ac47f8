package config

import (
	"flag"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestResolveDefaults(t *testing.T) {
	f := Register(flag.NewFlagSet("test", flag.ContinueOnError))
	c, err := f.Resolve(envMap(nil))
	if err != nil {
		t.Fatal(err)
	}
	if c.ToolbarShortcut != DefaultToolbarShortcut {
		t.Errorf("ToolbarShortcut = %q", c.ToolbarShortcut)
	}
	if c.StopTimeout != DefaultStopTimeout {
		t.Errorf("StopTimeout = %v", c.StopTimeout)
	}
	if c.RcPort != DefaultRcPort {
		t.Errorf("RcPort = %d", c.RcPort)
	}
	if c.CloudflaredPath != "cloudflared" {
		t.Errorf("CloudflaredPath = %q", c.CloudflaredPath)
	}
	if c.Retention != DefaultRetention {
		t.Errorf("Retention = %v", c.Retention)
	}
}

func TestResolvePrecedence(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	f := Register(fs)
	if err := fs.Parse([]string{"-data", "/flag/dir", "-stop-timeout", "2s"}); err != nil {
		t.Fatal(err)
	}

	c, err := f.Resolve(envMap(map[string]string{
		"DESKSHELL_DATA_DIR":         "/env/dir",
		"DESKSHELL_STOP_TIMEOUT":     "9s",
		"DESKSHELL_RC_PORT":          "6000",
		"DESKSHELL_TOOLBAR_SHORTCUT": "Alt+Space",
		"DESKSHELL_RETENTION_HOURS":  "24",
	}))
	if err != nil {
		t.Fatal(err)
	}

	if c.DataDir != "/flag/dir" {
		t.Errorf("DataDir = %q, flag should win", c.DataDir)
	}
	if c.StopTimeout != 2*time.Second {
		t.Errorf("StopTimeout = %v, flag should win", c.StopTimeout)
	}
	if c.RcPort != 6000 {
		t.Errorf("RcPort = %d, want env value", c.RcPort)
	}
	if c.ToolbarShortcut != "Alt+Space" {
		t.Errorf("ToolbarShortcut = %q", c.ToolbarShortcut)
	}
	if c.Retention != 24*time.Hour {
		t.Errorf("Retention = %v", c.Retention)
	}
	if c.DBPath() != filepath.Join("/flag/dir", "deskshell.db") {
		t.Errorf("DBPath() = %q", c.DBPath())
	}
}

func TestResolveInvalidEnv(t *testing.T) {
	tests := map[string]string{
		"DESKSHELL_STOP_TIMEOUT":    "soon",
		"DESKSHELL_RC_PORT":         "99999",
		"DESKSHELL_RETENTION_HOURS": "week",
	}
	for key, val := range tests {
		t.Run(key, func(t *testing.T) {
			f := Register(flag.NewFlagSet("test", flag.ContinueOnError))
			if _, err := f.Resolve(envMap(map[string]string{key: val})); err == nil {
				t.Errorf("expected error for %s=%s", key, val)
			}
		})
	}
}

func TestEnvironResolvesToSameConfig(t *testing.T) {
	want := &Config{
		DataDir:         "/srv/deskshell",
		ToolbarShortcut: "Alt+Space",
		StopTimeout:     1500 * time.Millisecond,
		CloudflaredPath: "/opt/cloudflared",
		RcPort:          6001,
		ProxyProbeURL:   "https://example.com/",
		Retention:       48 * time.Hour,
	}
	env := map[string]string{}
	for _, kv := range want.Environ() {
		k, v, _ := strings.Cut(kv, "=")
		env[k] = v
	}

	f := Register(flag.NewFlagSet("child", flag.ContinueOnError))
	got, err := f.Resolve(envMap(env))
	if err != nil {
		t.Fatal(err)
	}
	if *got != *want {
		t.Errorf("Resolve(Environ()) = %+v\nwant %+v", got, want)
	}
}
