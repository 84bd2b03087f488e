package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hughe/shiori-share/internal/app"
	"github.com/hughe/shiori-share/internal/config"
	"github.com/hughe/shiori-share/internal/extract"
	"github.com/hughe/shiori-share/internal/logger"
	"github.com/hughe/shiori-share/internal/logtail"
	"github.com/hughe/shiori-share/internal/shiori"
)

// optionalBool is a bool flag that remembers whether it was given.
type optionalBool struct {
	value bool
	set   bool
}

func (b *optionalBool) String() string {
	if b == nil {
		return "false"
	}
	return strconv.FormatBool(b.value)
}

func (b *optionalBool) Set(s string) error {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	b.value, b.set = v, true
	return nil
}

func (b *optionalBool) IsBoolFlag() bool { return true }

func (b *optionalBool) or(fallback bool) bool {
	if b.set {
		return b.value
	}
	return fallback
}

const notConfiguredHint = "run `shiori-share configure -server URL -username NAME -password-stdin` first"

func runSave(ctx context.Context, c *cli, args []string) error {
	fs := newFlagSet(c, "save", "[flags] [URL | -]")
	title := fs.String("title", "", "bookmark title (default: taken from the shared text)")
	description := fs.String("description", "", "bookmark excerpt")
	tags := fs.String("tags", "", "comma separated keywords")
	batch := fs.Bool("batch", false, "save without the interactive form")
	var archive, public optionalBool
	fs.Var(&archive, "archive", "ask the server to create an offline archive")
	fs.Var(&public, "public", "make the bookmark public")
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() > 1 {
		fs.Usage()
		return errUsage
	}

	content, err := c.content(fs.Arg(0))
	if err != nil {
		return err
	}
	if *title != "" {
		content.Title = *title
	}

	env, err := c.open()
	if err != nil {
		return err
	}
	defer env.Close()

	if !env.Credentials.HasCredentials() {
		return fmt.Errorf("%w: %s", shiori.ErrNotConfigured, notConfiguredHint)
	}

	if *batch {
		bookmark, err := env.Save(ctx, shiori.BookmarkRequest{
			URL:           content.URL,
			Title:         content.Title,
			Description:   *description,
			Keywords:      *tags,
			CreateArchive: archive.or(env.Prefs.CreateArchive),
			Public:        public.or(env.Prefs.MakePublic),
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(c.stdout, "Saved bookmark %d: %s\n", bookmark.ID, bookmark.URL)
		return nil
	}

	if archive.set {
		env.Prefs.CreateArchive = archive.value
	}
	if public.set {
		env.Prefs.MakePublic = public.value
	}
	result, err := env.Share(ctx, content)
	if err != nil {
		return err
	}
	switch {
	case result.Saved:
		fmt.Fprintf(c.stdout, "Saved bookmark %d: %s\n", result.Bookmark.ID, result.Bookmark.URL)
		return nil
	case result.Err != nil:
		return result.Err
	default:
		return errors.New("cancelled")
	}
}

// content resolves the URL to share from an argument, stdin ("-") or the
// clipboard when no argument is given.
func (c *cli) content(arg string) (extract.Content, error) {
	var (
		content extract.Content
		err     error
	)
	switch arg {
	case "":
		content, err = extract.FromClipboard()
	case "-":
		data, readErr := io.ReadAll(io.LimitReader(c.stdin, 1<<20))
		if readErr != nil {
			return extract.Content{}, fmt.Errorf("read stdin: %w", readErr)
		}
		content, err = extract.FromText(string(data))
	default:
		content, err = extract.FromText(arg)
	}
	if errors.Is(err, extract.ErrNoURL) {
		return extract.Content{}, errors.New("no URL found to share; pass a URL, pipe text with `-`, or copy a link first")
	}
	return content, err
}

func runConfigure(ctx context.Context, c *cli, args []string) error {
	fs := newFlagSet(c, "configure", "[flags]")
	server := fs.String("server", "", "Shiori server URL (https:// is assumed)")
	username := fs.String("username", "", "Shiori username")
	passwordStdin := fs.Bool("password-stdin", false, "read the password from the first line of stdin")
	var trust, debug optionalBool
	fs.Var(&trust, "trust-self-signed", "accept a self-signed certificate from the configured server")
	fs.Var(&debug, "debug", "write debug entries to the log file")
	if err := parse(fs, args); err != nil {
		return err
	}

	env, err := c.open()
	if err != nil {
		return err
	}
	defer env.Close()

	settings := app.Settings{
		ServerURL:            *server,
		Username:             *username,
		TrustSelfSignedCerts: trust.or(env.Config.TrustSelfSignedCerts),
		DebugLogging:         debug.or(env.Config.DebugLogging),
	}
	if settings.ServerURL == "" {
		settings.ServerURL = env.Config.ServerURL
	}
	if settings.Username == "" {
		settings.Username = env.Config.Username
	}
	if *passwordStdin {
		line, err := bufio.NewReader(c.stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read password: %w", err)
		}
		settings.Password = strings.TrimRight(line, "\r\n")
		if settings.Password == "" {
			return errors.New("empty password on stdin")
		}
	}

	if err := env.Configure(ctx, settings); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "Saved settings to %s\n", configFile(env.ConfigPath))
	if settings.Password != "" {
		fmt.Fprintf(c.stdout, "Connected to %s as %s\n", env.Config.ServerURL, env.Config.Username)
	} else if !env.Credentials.HasCredentials() {
		fmt.Fprintln(c.stdout, "No password stored yet; rerun with -password-stdin")
	}
	return nil
}

func runLogin(ctx context.Context, c *cli, args []string) error {
	fs := newFlagSet(c, "login", "")
	if err := parse(fs, args); err != nil {
		return err
	}
	env, err := c.open()
	if err != nil {
		return err
	}
	defer env.Close()

	session, err := env.Client.Login(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "Logged in to %s as %s (session valid until %s)\n",
		env.Config.ServerURL, env.Config.Username,
		session.IssuedAt.Add(shiori.SessionExpiry).Local().Format("15:04"))
	return nil
}

func runLogout(ctx context.Context, c *cli, args []string) error {
	fs := newFlagSet(c, "logout", "[-forget]")
	forget := fs.Bool("forget", false, "also remove the stored password")
	if err := parse(fs, args); err != nil {
		return err
	}
	env, err := c.open()
	if err != nil {
		return err
	}
	defer env.Close()

	if err := env.Client.Logout(ctx); err != nil {
		return err
	}
	if *forget {
		if err := env.ClearPassword(); err != nil {
			return err
		}
		fmt.Fprintln(c.stdout, "Logged out and removed the stored password")
		return nil
	}
	fmt.Fprintln(c.stdout, "Logged out")
	return nil
}

func runStatus(_ context.Context, c *cli, args []string) error {
	fs := newFlagSet(c, "status", "")
	if err := parse(fs, args); err != nil {
		return err
	}
	env, err := c.open()
	if err != nil {
		return err
	}
	defer env.Close()

	now := time.Now()
	if c.opts.Now != nil {
		now = c.opts.Now()
	}
	server := env.Config.ServerURL
	if server == "" {
		server = "(not set)"
	}
	username := env.Config.Username
	if username == "" {
		username = "(not set)"
	}
	session := "none"
	if s, ok := env.Sessions.Session(); ok {
		if s.ValidAt(now) {
			session = "valid until " + s.IssuedAt.Add(shiori.SessionExpiry).Local().Format("15:04")
		} else {
			session = "expired"
		}
	}

	fmt.Fprintf(c.stdout, "config:    %s\n", configFile(env.ConfigPath))
	fmt.Fprintf(c.stdout, "server:    %s\n", server)
	fmt.Fprintf(c.stdout, "username:  %s\n", username)
	fmt.Fprintf(c.stdout, "password:  %s\n", yesNo(env.Credentials.HasCredentials(), "stored", "missing"))
	fmt.Fprintf(c.stdout, "self-signed certificates: %s\n", yesNo(env.Config.TrustSelfSignedCerts, "trusted", "rejected"))
	fmt.Fprintf(c.stdout, "session:   %s\n", session)
	fmt.Fprintf(c.stdout, "tags:      %d cached\n", len(env.Tags.RecentTags()))
	fmt.Fprintf(c.stdout, "logs:      %s\n", env.Config.LogDir)
	return nil
}

func configFile(path string) string {
	if resolved, err := config.ResolvePath(path); err == nil {
		return resolved
	}
	return path
}

func yesNo(v bool, yes, no string) string {
	if v {
		return yes
	}
	return no
}

func runTags(ctx context.Context, c *cli, args []string) error {
	fs := newFlagSet(c, "tags", "[-refresh] [-n N]")
	refresh := fs.Bool("refresh", false, "reload the most used tags from the server first")
	limit := fs.Int("n", 0, "show at most N tags (0 shows all)")
	if err := parse(fs, args); err != nil {
		return err
	}
	env, err := c.open()
	if err != nil {
		return err
	}
	defer env.Close()

	if *refresh {
		tags, err := env.Client.FetchTags(ctx)
		if err != nil {
			return err
		}
		if err := env.Tags.SetRecentTags(shiori.PopularTags(tags, shiori.MaxRecentTags)); err != nil {
			return fmt.Errorf("store tags: %w", err)
		}
	}

	names := env.Tags.RecentTags()
	if *limit > 0 && len(names) > *limit {
		names = names[:*limit]
	}
	for _, name := range names {
		fmt.Fprintln(c.stdout, name)
	}
	return nil
}

func runLogs(_ context.Context, c *cli, args []string) error {
	fs := newFlagSet(c, "logs", "[-n N] [-raw] [-export FILE] [-clear]")
	lines := fs.Int("n", 100, "number of lines to show")
	raw := fs.Bool("raw", false, "print the JSON entries unformatted")
	export := fs.String("export", "", "write every log file into FILE (- for stdout)")
	clearLogs := fs.Bool("clear", false, "delete all log files")
	if err := parse(fs, args); err != nil {
		return err
	}
	env, err := c.open()
	if err != nil {
		return err
	}
	defer env.Close()
	dir := env.Config.LogDir

	switch {
	case *clearLogs:
		if err := logger.Clear(dir); err != nil {
			return err
		}
		fmt.Fprintln(c.stdout, "Logs cleared")
		return nil
	case *export == "-":
		return logger.Export(dir, c.stdout, time.Now())
	case *export != "":
		return exportLogs(dir, *export)
	}

	tail, err := logtail.Tail(dir, *lines)
	if err != nil {
		return err
	}
	if !*raw {
		tail = logtail.FormatLines(tail, true)
	}
	for _, line := range tail {
		fmt.Fprintln(c.stdout, line)
	}
	return nil
}

func exportLogs(dir, path string) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create export: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return logger.Export(dir, f, time.Now())
}

func runReset(_ context.Context, c *cli, args []string) error {
	fs := newFlagSet(c, "reset", "")
	if err := parse(fs, args); err != nil {
		return err
	}
	env, err := c.open()
	if err != nil {
		return err
	}
	defer env.Close()

	if err := env.Reset(); err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, "Cleared the session, cached tags and preferences")
	return nil
}

func runVersion(_ context.Context, c *cli, _ []string) error {
	fmt.Fprintf(c.stdout, "shiori-share %s\n", version)
	return nil
}
