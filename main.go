package main

import (
	"context"
	"embed"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	goruntime "runtime"

	"github.com/awsl-project/deskshell/internal/config"
	"github.com/awsl-project/deskshell/internal/desktop"
	"github.com/awsl-project/deskshell/internal/version"
	"github.com/awsl-project/deskshell/internal/winhost"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/menu"
	"github.com/wailsapp/wails/v2/pkg/menu/keys"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/linux"
	"github.com/wailsapp/wails/v2/pkg/options/mac"
	"github.com/wailsapp/wails/v2/pkg/options/windows"
	"github.com/wailsapp/wails/v2/pkg/runtime"
)

//go:embed all:frontend/dist
var frontendAssets embed.FS

func main() {
	assets, err := fs.Sub(frontendAssets, "frontend/dist")
	if err != nil {
		log.Fatalf("Failed to load frontend assets: %v", err)
	}

	// Secondary windows re-run this binary in child mode.
	if len(os.Args) > 1 && os.Args[1] == winhost.ChildCommand {
		if err := runChild(os.Args[2:], assets); err != nil {
			log.Fatalf("[Window] %v", err)
		}
		return
	}

	flags := config.Register(flag.CommandLine)
	showVersion := flag.Bool("version", false, "Show version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Name, version.Full())
		os.Exit(0)
	}

	cfg, err := flags.Resolve(os.Getenv)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if err := cfg.EnsureDataDir(); err != nil {
		log.Fatal(err)
	}
	logs := setupLogging(cfg)
	if logs != nil {
		defer logs.Close()
	}

	log.Printf("Starting %s %s", version.Name, version.Info())
	log.Printf("Data directory: %s", cfg.DataDir)
	log.Printf("  Database: %s", cfg.DBPath())
	log.Printf("  Log file: %s", cfg.LogPath())

	app, err := desktop.NewApp(cfg, desktop.Deps{Logs: logs})
	if err != nil {
		log.Fatalf("Failed to initialize desktop app: %v", err)
	}

	// The tray needs the Wails context, which only exists after startup.
	started := make(chan context.Context, 1)
	go func() {
		ctx := <-started
		desktop.NewTrayManager(ctx, app).Start()
	}()

	var appCtx context.Context

	// Application menu (macOS only)
	var appMenu *menu.Menu
	if goruntime.GOOS == "darwin" {
		appMenu = menu.NewMenu()
		appMenu.Append(menu.AppMenu())

		fileMenu := appMenu.AddSubmenu("File")
		fileMenu.AddText("Home", keys.CmdOrCtrl("h"), func(_ *menu.CallbackData) {
			if appCtx != nil {
				runtime.WindowExecJS(appCtx, `window.location.href = 'wails://wails/index.html';`)
			}
		})
		fileMenu.AddText("Toolbar", nil, func(_ *menu.CallbackData) {
			if err := app.ShowToolbar(); err != nil {
				log.Printf("[App] Show toolbar: %v", err)
			}
		})
		fileMenu.AddSeparator()
		fileMenu.AddText("Quit", keys.CmdOrCtrl("q"), func(_ *menu.CallbackData) {
			app.Quit()
		})

		appMenu.Append(menu.EditMenu())
	}

	w, h := mainWindowSize()
	err = wails.Run(&options.App{
		Title:     "deskshell",
		Width:     w,
		Height:    h,
		MinWidth:  640,
		MinHeight: 480,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		BackgroundColour: &options.RGBA{R: 27, G: 38, B: 54, A: 255},
		OnStartup: func(ctx context.Context) {
			appCtx = ctx
			app.Startup(ctx)
			started <- ctx
		},
		OnDomReady:    app.DomReady,
		OnBeforeClose: app.BeforeClose,
		OnShutdown:    app.Shutdown,
		Bind: []interface{}{
			app,
		},
		Menu: appMenu,
		Windows: &windows.Options{
			WebviewIsTransparent: false,
			WindowIsTranslucent:  false,
			DisableWindowIcon:    false,
		},
		Mac: &mac.Options{
			Appearance: mac.NSAppearanceNameDarkAqua,
			About: &mac.AboutInfo{
				Title:   "deskshell",
				Message: "Native desktop shell\n" + version.Info(),
			},
		},
		Linux: &linux.Options{
			ProgramName: version.Name,
		},
	})
	if err != nil {
		log.Fatal("Error:", err)
	}
}

func runChild(args []string, assets fs.FS) error {
	// Children get their settings from the environment the host passes.
	cfg, err := config.Register(flag.NewFlagSet(winhost.ChildCommand, flag.ContinueOnError)).Resolve(os.Getenv)
	if err != nil {
		return err
	}
	logs := setupLogging(cfg)
	if logs != nil {
		defer logs.Close()
	}

	return winhost.RunChild(args, assets, func(c *winhost.Client) (winhost.ChildHooks, error) {
		app, err := desktop.NewChildApp(cfg, desktop.Deps{}, c)
		if err != nil {
			return winhost.ChildHooks{}, err
		}
		log.SetPrefix(fmt.Sprintf("[%s] ", c.Label()))
		return winhost.ChildHooks{
			Bind:       []any{app},
			OnStartup:  app.ChildStartup,
			OnShutdown: app.ChildShutdown,
		}, nil
	})
}

// setupLogging tees the standard logger into the data directory. It falls
// back to stderr alone when the log file cannot be opened.
func setupLogging(cfg *config.Config) *desktop.LogWriter {
	logs, err := desktop.NewLogWriter(os.Stdout, cfg.LogPath())
	if err != nil {
		log.Printf("Warning: %v", err)
		return nil
	}
	log.SetOutput(logs)
	return logs
}

func mainWindowSize() (int, int) {
	if goruntime.GOOS == "windows" {
		return 1024, 768
	}
	return 1024, 720
}
