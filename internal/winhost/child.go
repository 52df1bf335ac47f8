package winhost

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"sync"
	"time"

	"github.com/awsl-project/deskshell/internal/window"
	"github.com/bytedance/sonic"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/linux"
	"github.com/wailsapp/wails/v2/pkg/options/mac"
	"github.com/wailsapp/wails/v2/pkg/options/windows"
	"github.com/wailsapp/wails/v2/pkg/runtime"
)

// ChildHooks are what the caller contributes to a child window.
type ChildHooks struct {
	Bind       []any
	OnStartup  func(ctx context.Context)
	OnShutdown func(ctx context.Context)
}

// ChildSetup builds the hooks once the bridge is connected.
type ChildSetup func(c *Client) (ChildHooks, error)

// RunChild runs a secondary window process until its window closes or the
// host goes away. args are the arguments after the subcommand.
func RunChild(args []string, assets fs.FS, setup ChildSetup) error {
	cfg, err := ParseChildArgs(args)
	if err != nil {
		return err
	}
	token := os.Getenv(TokenEnvKey)
	if token == "" {
		return fmt.Errorf("%s is not set", TokenEnvKey)
	}

	dialCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	client, err := Dial(dialCtx, cfg.HubURL, token, cfg.Window.Label, os.Getpid())
	cancel()
	if err != nil {
		return err
	}

	var hooks ChildHooks
	if setup != nil {
		hooks, err = setup(client)
		if err != nil {
			client.Shutdown()
			return err
		}
	}

	w := newChildRuntime(cfg.Window)
	o := cfg.Window

	app := &options.App{
		Title:             o.Title,
		Width:             o.Width,
		Height:            o.Height,
		DisableResize:     !o.Resizable,
		Frameless:         o.Frameless,
		AlwaysOnTop:       o.AlwaysOnTop,
		StartHidden:       o.Hidden,
		HideWindowOnClose: false,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		BackgroundColour: &options.RGBA{R: 27, G: 38, B: 54, A: 255},
		OnStartup: func(ctx context.Context) {
			w.start(ctx)
			go func() {
				if err := client.Serve(ctx, w.handle); err != nil && ctx.Err() == nil {
					log.Printf("[Window] Bridge to host lost: %v", err)
					runtime.Quit(ctx)
				}
			}()
			if hooks.OnStartup != nil {
				hooks.OnStartup(ctx)
			}
		},
		OnDomReady:    w.domReady,
		OnBeforeClose: w.beforeClose,
		OnShutdown: func(ctx context.Context) {
			if hooks.OnShutdown != nil {
				hooks.OnShutdown(ctx)
			}
			client.Shutdown()
		},
		Bind: hooks.Bind,
		Windows: &windows.Options{
			WebviewIsTransparent: o.Transparent,
			WindowIsTranslucent:  o.Transparent,
		},
		Mac: &mac.Options{
			WebviewIsTransparent: o.Transparent,
			WindowIsTranslucent:  o.Transparent,
		},
		Linux: &linux.Options{
			WindowIsTranslucent: o.Transparent,
			ProgramName:         "deskshell",
		},
	}
	if o.Transparent {
		app.BackgroundColour = &options.RGBA{R: 0, G: 0, B: 0, A: 0}
	}

	log.Printf("[Window] Starting %q at %s", o.Label, o.URL)
	return wails.Run(app)
}

// childRuntime applies bridge commands to the Wails window of this process.
type childRuntime struct {
	opts  placement
	ready chan struct{}

	mu        sync.Mutex
	ctx       context.Context
	visible   bool
	closable  bool
	quitting  bool
	navigated bool
}

type placement struct {
	url        string
	x, y       int
	positioned bool
}

func newChildRuntime(o window.Options) *childRuntime {
	return &childRuntime{
		opts: placement{
			url:        o.URL,
			x:          o.X,
			y:          o.Y,
			positioned: o.Positioned,
		},
		ready:    make(chan struct{}),
		visible:  !o.Hidden,
		closable: o.Closable,
	}
}

func (w *childRuntime) start(ctx context.Context) {
	w.mu.Lock()
	w.ctx = ctx
	w.mu.Unlock()
	if w.opts.positioned {
		runtime.WindowSetPosition(ctx, w.opts.x, w.opts.y)
	}
	close(w.ready)
}

func (w *childRuntime) domReady(ctx context.Context) {
	w.mu.Lock()
	if w.navigated || w.opts.url == "" || w.opts.url == "/" {
		w.mu.Unlock()
		return
	}
	w.navigated = true
	w.mu.Unlock()

	route, err := sonic.MarshalString(w.opts.url)
	if err != nil {
		log.Printf("[Window] Bad route %q: %v", w.opts.url, err)
		return
	}
	runtime.WindowExecJS(ctx, fmt.Sprintf(
		"if (window.location.pathname !== %s) { window.location.replace(%s); }", route, route))
}

// beforeClose vetoes user closes while the window is locked.
func (w *childRuntime) beforeClose(context.Context) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.quitting {
		return false
	}
	return !w.closable
}

func (w *childRuntime) handle(ctx context.Context, command string, args Args) (Args, error) {
	select {
	case <-w.ready:
	case <-ctx.Done():
		return Args{}, ctx.Err()
	}

	w.mu.Lock()
	wctx := w.ctx
	w.mu.Unlock()

	switch command {
	case CmdShow, CmdFocus:
		runtime.WindowShow(wctx)
		runtime.WindowUnminimise(wctx)
		w.set(func() { w.visible = true })
	case CmdHide:
		runtime.WindowHide(wctx)
		w.set(func() { w.visible = false })
	case CmdCenter:
		runtime.WindowCenter(wctx)
	case CmdSetPosition:
		runtime.WindowSetPosition(wctx, args.X, args.Y)
	case CmdSetSize:
		runtime.WindowSetSize(wctx, args.Width, args.Height)
	case CmdGetSize:
		width, height := runtime.WindowGetSize(wctx)
		return Args{Width: width, Height: height}, nil
	case CmdAlwaysOnTop:
		runtime.WindowSetAlwaysOnTop(wctx, args.Enabled)
	case CmdSetClosable:
		w.set(func() { w.closable = args.Enabled })
	case CmdIsVisible:
		w.mu.Lock()
		visible := w.visible
		w.mu.Unlock()
		return Args{Enabled: visible && !runtime.WindowIsMinimised(wctx)}, nil
	case CmdClose:
		w.set(func() { w.quitting = true })
		go runtime.Quit(wctx)
	default:
		return Args{}, fmt.Errorf("unknown command %q", command)
	}
	return Args{}, nil
}

func (w *childRuntime) set(fn func()) {
	w.mu.Lock()
	fn()
	w.mu.Unlock()
}
