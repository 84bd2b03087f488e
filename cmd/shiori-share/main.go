package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/hughe/shiori-share/internal/app"
	"github.com/hughe/shiori-share/internal/shiori"
)

var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

type cli struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	opts   app.Options
}

type command func(ctx context.Context, c *cli, args []string) error

var commands = map[string]command{
	"save":      runSave,
	"configure": runConfigure,
	"login":     runLogin,
	"logout":    runLogout,
	"status":    runStatus,
	"tags":      runTags,
	"logs":      runLogs,
	"reset":     runReset,
	"version":   runVersion,
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("shiori-share", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "override config path (optional)")
	prefsPath := fs.String("prefs", "", "override prefs path (optional)")
	debug := fs.Bool("debug", false, "enable debug logging to stderr")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: shiori-share [flags] [command] [args]\n\n")
		fmt.Fprintf(stderr, "commands: save (default), configure, login, logout, status, tags, logs, reset, version\n\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	c := &cli{
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		opts:   app.Options{ConfigPath: *configPath, PrefsPath: *prefsPath, Debug: *debug},
	}
	if *debug {
		c.opts.Console = stderr
	}

	name, rest := "save", fs.Args()
	if len(rest) > 0 {
		if _, ok := commands[rest[0]]; ok {
			name, rest = rest[0], rest[1:]
		}
	}

	if err := commands[name](ctx, c, rest); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		if errors.Is(err, errUsage) {
			return 2
		}
		fmt.Fprintf(stderr, "shiori-share: %v\n", err)
		if shiori.IsRetryable(err) {
			fmt.Fprintln(stderr, "This error may be temporary; run the same command again to retry.")
		}
		return 1
	}
	return 0
}

var errUsage = errors.New("usage")

// open builds the environment; callers must Close it.
func (c *cli) open() (*app.Env, error) {
	return app.Open(c.opts)
}

func newFlagSet(c *cli, name, usage string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	fs.Usage = func() {
		fmt.Fprintf(c.stderr, "usage: shiori-share %s %s\n", name, usage)
		fs.PrintDefaults()
	}
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return errUsage
	}
	return nil
}
