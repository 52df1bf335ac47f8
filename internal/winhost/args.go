package winhost

import (
	"flag"
	"fmt"
	"strconv"

	"github.com/awsl-project/deskshell/internal/window"
)

// ChildCommand is the subcommand that starts a child window.
const ChildCommand = "window"

// TokenEnvKey carries the bridge token to the child so it never appears in
// the process list.
const TokenEnvKey = "DESKSHELL_BRIDGE_TOKEN"

// ChildConfig is everything a child window needs to start.
type ChildConfig struct {
	Window window.Options
	HubURL string
}

// ChildArgs renders the command line for a child window, subcommand
// included.
func ChildArgs(cfg ChildConfig) []string {
	o := cfg.Window
	args := []string{
		ChildCommand,
		"-label", o.Label,
		"-url", o.URL,
		"-title", o.Title,
		"-width", strconv.Itoa(o.Width),
		"-height", strconv.Itoa(o.Height),
		"-hub", cfg.HubURL,
	}
	if o.Positioned {
		args = append(args, "-x", strconv.Itoa(o.X), "-y", strconv.Itoa(o.Y), "-positioned")
	}
	for _, f := range []struct {
		on   bool
		name string
	}{
		{o.Resizable, "-resizable"},
		{o.Frameless, "-frameless"},
		{o.Transparent, "-transparent"},
		{o.AlwaysOnTop, "-on-top"},
		{o.Hidden, "-hidden"},
		{o.AllSpaces, "-all-spaces"},
	} {
		if f.on {
			args = append(args, f.name)
		}
	}
	if !o.Closable {
		args = append(args, "-closable=false")
	}
	return args
}

// ParseChildArgs parses the arguments following the subcommand.
func ParseChildArgs(args []string) (ChildConfig, error) {
	var (
		cfg ChildConfig
		o   = &cfg.Window
	)
	fs := flag.NewFlagSet(ChildCommand, flag.ContinueOnError)
	fs.StringVar(&o.Label, "label", "", "window label")
	fs.StringVar(&o.URL, "url", "/", "route to load")
	fs.StringVar(&o.Title, "title", "", "window title")
	fs.IntVar(&o.Width, "width", 0, "window width")
	fs.IntVar(&o.Height, "height", 0, "window height")
	fs.IntVar(&o.X, "x", 0, "window x position")
	fs.IntVar(&o.Y, "y", 0, "window y position")
	fs.BoolVar(&o.Positioned, "positioned", false, "apply -x and -y")
	fs.BoolVar(&o.Resizable, "resizable", false, "allow resizing")
	fs.BoolVar(&o.Frameless, "frameless", false, "hide decorations")
	fs.BoolVar(&o.Closable, "closable", true, "allow closing")
	fs.BoolVar(&o.Transparent, "transparent", false, "transparent background")
	fs.BoolVar(&o.AlwaysOnTop, "on-top", false, "keep above other windows")
	fs.BoolVar(&o.Hidden, "hidden", false, "start hidden")
	fs.BoolVar(&o.AllSpaces, "all-spaces", false, "show on every workspace")
	fs.StringVar(&cfg.HubURL, "hub", "", "bridge websocket url")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	if o.Label == "" {
		return cfg, fmt.Errorf("-label is required")
	}
	if cfg.HubURL == "" {
		return cfg, fmt.Errorf("-hub is required")
	}
	if o.Title == "" {
		o.Title = o.Label
	}
	return cfg, nil
}
