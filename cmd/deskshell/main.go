// Command deskshell runs the host utilities without the desktop UI. It is
// handy for scripting and for checking a machine before the app starts.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"

	"github.com/awsl-project/deskshell/internal/archive"
	"github.com/awsl-project/deskshell/internal/config"
	"github.com/awsl-project/deskshell/internal/hostcmd"
	"github.com/awsl-project/deskshell/internal/machine"
	"github.com/awsl-project/deskshell/internal/netcheck"
	"github.com/awsl-project/deskshell/internal/process"
	"github.com/awsl-project/deskshell/internal/prompt"
	"github.com/awsl-project/deskshell/internal/repository/sqlite"
	"github.com/awsl-project/deskshell/internal/supervisor"
	"github.com/awsl-project/deskshell/internal/version"
)

const usage = `Usage: deskshell [flags] <command> [args]

Commands:
  stop-pid <pid>            Terminate a process, escalating to a forced kill
  stop-name <name>          Terminate every process with the executable name
  stop-port <port>          Terminate the process listening on a TCP port
  reap                      Stop helper processes left by a previous run
  uid                       Print the anonymised machine identifier
  arch                      Print the CPU architecture
  unzip <zip> <dir>         Extract a zip archive
  extract-tgz <tgz> <dir>   Extract a gzip-compressed tarball
  test-proxy <url>          Fetch the probe URL through a proxy
  prompt <title> <message>  Show a native input prompt
  version                   Print version information

Flags:
`

func main() {
	flags := config.Register(flag.CommandLine)
	showVersion := flag.Bool("version", false, "Show version information and exit")
	sensitive := flag.Bool("sensitive", false, "Mask input for the prompt command")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion || flag.Arg(0) == "version" {
		fmt.Println(version.Name, version.Full())
		os.Exit(0)
	}
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := flags.Resolve(os.Getenv)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Interrupts cancel the running command. A termination cut short this
	// way exits with the context error and reports no outcome.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, flag.Args(), *sensitive); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, args []string, sensitive bool) error {
	runner := hostcmd.NewExecRunner()
	cmd, rest := args[0], args[1:]

	switch cmd {
	case "stop-pid":
		pid, err := intArg(rest, 0, "pid")
		if err != nil {
			return err
		}
		term, err := terminator(runner)
		if err != nil {
			return err
		}
		outcome, err := term.Terminate(ctx, pid, cfg.StopTimeout)
		if err != nil {
			return err
		}
		if err := outcome.Err(pid); err != nil {
			return err
		}
		fmt.Println(outcome)

	case "stop-name":
		if len(rest) < 1 {
			return fmt.Errorf("missing process name")
		}
		term, err := terminator(runner)
		if err != nil {
			return err
		}
		n, err := term.StopByName(ctx, process.NewLister(), rest[0], cfg.StopTimeout)
		if err != nil {
			return err
		}
		fmt.Printf("stopped %d process(es)\n", n)

	case "stop-port":
		port, err := intArg(rest, 0, "port")
		if err != nil {
			return err
		}
		term, err := terminator(runner)
		if err != nil {
			return err
		}
		pid, outcome, err := term.StopPortOwner(ctx, process.NewPortLocator(runner, runtime.GOOS), port, cfg.StopTimeout)
		if err != nil {
			return err
		}
		if pid == -1 {
			fmt.Printf("port %d is free\n", port)
			return nil
		}
		if err := outcome.Err(pid); err != nil {
			return fmt.Errorf("port %d: %w", port, err)
		}
		fmt.Printf("PID %d: %s\n", pid, outcome)

	case "reap":
		if err := cfg.EnsureDataDir(); err != nil {
			return err
		}
		db, err := sqlite.NewDB(cfg.DBPath())
		if err != nil {
			return err
		}
		defer db.Close()
		term, err := terminator(runner)
		if err != nil {
			return err
		}
		sup := supervisor.New(sqlite.NewManagedProcessRepository(db), term, cfg.StopTimeout)
		n, err := sup.ReapStale(ctx)
		if err != nil {
			return err
		}
		pruned, err := sup.Prune(cfg.Retention)
		if err != nil {
			return err
		}
		fmt.Printf("reaped %d helper(s), pruned %d record(s)\n", n, pruned)

	case "uid":
		uid, err := machine.NewIdentifier(runner, runtime.GOOS).UID(ctx)
		if err != nil {
			return err
		}
		fmt.Println(uid)

	case "arch":
		fmt.Println(machine.HostArch())

	case "unzip", "extract-tgz":
		if len(rest) < 2 {
			return fmt.Errorf("usage: %s <archive> <dir>", cmd)
		}
		if cmd == "unzip" {
			return archive.Unzip(rest[0], rest[1])
		}
		return archive.ExtractTgz(rest[0], rest[1])

	case "test-proxy":
		if len(rest) < 1 {
			return fmt.Errorf("missing proxy url")
		}
		status, err := netcheck.NewProxyTester(cfg.ProxyProbeURL).Test(ctx, rest[0])
		if err != nil {
			return err
		}
		fmt.Println(status)

	case "prompt":
		if len(rest) < 2 {
			return fmt.Errorf("usage: prompt <title> <message>")
		}
		answer, err := prompt.New(runner, runtime.GOOS).Prompt(ctx, prompt.Request{
			Title:     rest[0],
			Message:   rest[1],
			Sensitive: sensitive,
		})
		if err != nil {
			return err
		}
		if answer == nil {
			fmt.Fprintln(os.Stderr, "cancelled")
			os.Exit(3)
		}
		fmt.Println(*answer)

	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}

func terminator(runner hostcmd.Runner) (*process.Terminator, error) {
	ctrl, err := process.NewController(runner)
	if err != nil {
		return nil, err
	}
	return process.NewTerminator(ctrl, process.WithObserver(func(pid int, phase process.Phase) {
		log.Printf("[Process] PID %d: %s", pid, phase)
	})), nil
}

func intArg(args []string, i int, name string) (int, error) {
	if len(args) <= i {
		return 0, fmt.Errorf("missing %s", name)
	}
	n, err := strconv.Atoi(args[i])
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, args[i], err)
	}
	return n, nil
}
