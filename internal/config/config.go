// Package config resolves runtime settings from flags, DESKSHELL_* environment
// variables and defaults, in that order of precedence.
package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	DefaultToolbarShortcut = "CmdOrCtrl+Shift+/"
	DefaultRcPort          = 5572
	DefaultProxyProbeURL   = "https://rclone.org/"
	DefaultStopTimeout     = 5 * time.Second
	DefaultRetention       = 7 * 24 * time.Hour
)

// Config holds the resolved settings.
type Config struct {
	DataDir         string
	ToolbarShortcut string
	StopTimeout     time.Duration
	CloudflaredPath string
	RcPort          int
	ProxyProbeURL   string
	Retention       time.Duration
}

// DBPath is the helper registry database.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "deskshell.db")
}

// LogPath is the log file the app tees into.
func (c *Config) LogPath() string {
	return filepath.Join(c.DataDir, "deskshell.log")
}

// getDefaultDataDir returns ~/.config/deskshell
func getDefaultDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(homeDir, ".config", "deskshell")
}

// Register binds the config flags on fs. Call Resolve after fs.Parse.
func Register(fs *flag.FlagSet) *Flags {
	f := &Flags{}
	fs.StringVar(&f.dataDir, "data", "", "Data directory for database and logs (default: ~/.config/deskshell)")
	fs.StringVar(&f.shortcut, "toolbar-shortcut", "", "Global shortcut that toggles the toolbar (default: "+DefaultToolbarShortcut+")")
	fs.DurationVar(&f.stopTimeout, "stop-timeout", 0, "Grace period before a process is force killed (default: 5s)")
	fs.StringVar(&f.cloudflared, "cloudflared", "", "Path to the cloudflared binary")
	fs.IntVar(&f.rcPort, "rc-port", 0, "rclone remote control port")
	fs.StringVar(&f.probeURL, "proxy-probe-url", "", "URL fetched when testing a proxy")
	return f
}

// Flags holds raw flag values before resolution.
type Flags struct {
	dataDir     string
	shortcut    string
	stopTimeout time.Duration
	cloudflared string
	rcPort      int
	probeURL    string
}

// Resolve merges flags, the environment looked up through getenv, and
// defaults.
func (f *Flags) Resolve(getenv func(string) string) (*Config, error) {
	c := &Config{
		DataDir:         pick(f.dataDir, getenv("DESKSHELL_DATA_DIR"), getDefaultDataDir()),
		ToolbarShortcut: pick(f.shortcut, getenv("DESKSHELL_TOOLBAR_SHORTCUT"), DefaultToolbarShortcut),
		CloudflaredPath: pick(f.cloudflared, getenv("DESKSHELL_CLOUDFLARED"), "cloudflared"),
		ProxyProbeURL:   pick(f.probeURL, getenv("DESKSHELL_PROXY_PROBE_URL"), DefaultProxyProbeURL),
		StopTimeout:     f.stopTimeout,
		RcPort:          f.rcPort,
		Retention:       DefaultRetention,
	}

	if c.StopTimeout <= 0 {
		if v := getenv("DESKSHELL_STOP_TIMEOUT"); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return nil, fmt.Errorf("DESKSHELL_STOP_TIMEOUT: %w", err)
			}
			c.StopTimeout = d
		}
	}
	if c.StopTimeout <= 0 {
		c.StopTimeout = DefaultStopTimeout
	}

	if c.RcPort == 0 {
		if v := getenv("DESKSHELL_RC_PORT"); v != "" {
			port, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("DESKSHELL_RC_PORT: %w", err)
			}
			c.RcPort = port
		}
	}
	if c.RcPort == 0 {
		c.RcPort = DefaultRcPort
	}
	if c.RcPort < 1 || c.RcPort > 65535 {
		return nil, fmt.Errorf("rc port out of range: %d", c.RcPort)
	}

	if v := getenv("DESKSHELL_RETENTION_HOURS"); v != "" {
		hours, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("DESKSHELL_RETENTION_HOURS: %w", err)
		}
		c.Retention = time.Duration(hours) * time.Hour
	}

	return c, nil
}

// Environ renders c as DESKSHELL_* variables, so a process started with
// them resolves the same settings.
func (c *Config) Environ() []string {
	return []string{
		"DESKSHELL_DATA_DIR=" + c.DataDir,
		"DESKSHELL_TOOLBAR_SHORTCUT=" + c.ToolbarShortcut,
		"DESKSHELL_STOP_TIMEOUT=" + c.StopTimeout.String(),
		"DESKSHELL_CLOUDFLARED=" + c.CloudflaredPath,
		"DESKSHELL_RC_PORT=" + strconv.Itoa(c.RcPort),
		"DESKSHELL_PROXY_PROBE_URL=" + c.ProxyProbeURL,
		"DESKSHELL_RETENTION_HOURS=" + strconv.Itoa(int(c.Retention/time.Hour)),
	}
}

// EnsureDataDir creates the data directory.
func (c *Config) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory %s: %w", c.DataDir, err)
	}
	return nil
}

func pick(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
