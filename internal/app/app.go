package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hughe/shiori-share/internal/config"
	"github.com/hughe/shiori-share/internal/credentials"
	"github.com/hughe/shiori-share/internal/extract"
	"github.com/hughe/shiori-share/internal/logger"
	"github.com/hughe/shiori-share/internal/prefs"
	"github.com/hughe/shiori-share/internal/shiori"
	"github.com/hughe/shiori-share/internal/state"
	"github.com/hughe/shiori-share/internal/ui"
)

// Options configure the application environment.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/shiori-share/prefs.toml
	Debug      bool   // force debug logging regardless of config
	Console    io.Writer

	// HTTPClient and Now are for tests.
	HTTPClient shiori.Doer
	Now        func() time.Time
}

// Env holds everything a command needs, built once per process.
type Env struct {
	ConfigPath string
	PrefsPath  string
	Config     config.Config
	Prefs      prefs.Prefs

	Log         logger.Logger
	Credentials *credentials.Store
	Sessions    *state.SessionCache
	Tags        *state.TagCache
	Client      *shiori.Client

	opts Options
}

// Open loads configuration and wires the client and its caches.
func Open(opts Options) (*Env, error) {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	userPrefs, _ := prefs.Load(opts.PrefsPath)

	log, err := logger.New(logger.Options{
		Dir:     cfg.LogDir,
		Debug:   cfg.DebugLogging || opts.Debug,
		Console: opts.Console,
		Now:     now,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	if err := logger.Cleanup(cfg.LogDir, logger.RetentionDays, now()); err != nil {
		log.Warn("log cleanup failed", logger.Error(err))
	}

	env := &Env{
		ConfigPath:  opts.ConfigPath,
		PrefsPath:   opts.PrefsPath,
		Config:      cfg,
		Prefs:       userPrefs,
		Log:         log,
		Credentials: credentials.New(opts.ConfigPath, cfg.SecretsDir()),
		Sessions:    state.NewSessionCache(cfg.SessionPath()),
		Tags:        state.NewTagCache(cfg.TagsPath()),
		opts:        opts,
	}
	env.Client, err = env.newClient(env.Credentials)
	if err != nil {
		return nil, err
	}
	return env, nil
}

func (e *Env) newClient(creds shiori.CredentialStore) (*shiori.Client, error) {
	client, err := shiori.New(shiori.Options{
		Credentials:          creds,
		Sessions:             e.Sessions,
		Tags:                 e.Tags,
		Logger:               e.Log.With(logger.String("component", "shiori")),
		HTTPClient:           e.opts.HTTPClient,
		TrustSelfSignedCerts: e.Config.TrustSelfSignedCerts,
		Now:                  e.opts.Now,
	})
	if err != nil {
		return nil, fmt.Errorf("init shiori client: %w", err)
	}
	return client, nil
}

// Close flushes the logger.
func (e *Env) Close() error {
	return e.Log.Sync()
}

// Save adds a bookmark without any UI.
func (e *Env) Save(ctx context.Context, req shiori.BookmarkRequest) (shiori.Bookmark, error) {
	bookmark, err := e.Client.AddBookmark(ctx, req)
	if err != nil {
		e.Log.Error("save bookmark failed",
			logger.String("url", req.URL),
			logger.String("kind", shiori.KindOf(err).String()),
			logger.Error(err))
		return shiori.Bookmark{}, err
	}
	e.Log.Info("bookmark saved", logger.Int("id", bookmark.ID), logger.String("url", bookmark.URL))
	return bookmark, nil
}

// Share shows the share form for content. The popular tags refresh starts
// first and runs alongside the form; the form reloads its chips when the
// refresh finishes.
func (e *Env) Share(ctx context.Context, content extract.Content) (ui.Result, error) {
	if !e.Credentials.HasCredentials() {
		return ui.Result{}, shiori.ErrNotConfigured
	}

	done := StartTagRefresh(ctx, e.Client, DefaultRefreshTimeout)

	result, err := ui.Run(ui.Options{
		Context: ctx,
		Saver:   e,
		Tags:    e.Tags,
		RefreshTags: func(ctx context.Context) {
			select {
			case <-done:
			case <-ctx.Done():
			}
		},
		Content:   content,
		Prefs:     e.Prefs,
		PrefsPath: e.PrefsPath,
		Server:    e.Config.ServerURL,
		Logger:    e.Log.With(logger.String("component", "ui")),
	})
	if err != nil {
		return ui.Result{}, fmt.Errorf("run share form: %w", err)
	}
	return result, nil
}

// AddBookmark lets the share form save through Env so saves are logged
// the same way in both paths.
func (e *Env) AddBookmark(ctx context.Context, req shiori.BookmarkRequest) (shiori.Bookmark, error) {
	return e.Save(ctx, req)
}

// Settings are the values accepted by Configure.
type Settings struct {
	ServerURL            string
	Username             string
	Password             string // empty keeps the stored password
	TrustSelfSignedCerts bool
	DebugLogging         bool
}

// Configure validates and saves connection settings. When a password is
// given it is verified by logging in before it is stored; a failed login
// leaves the previous password in place.
func (e *Env) Configure(ctx context.Context, s Settings) error {
	serverURL := shiori.NormalizeServerURL(s.ServerURL)
	if _, err := shiori.ParseServerURL(serverURL); err != nil {
		return &shiori.APIError{Kind: shiori.KindInvalidURL, Err: err}
	}
	username := strings.TrimSpace(s.Username)
	if username == "" {
		return errors.New("username is required")
	}

	cfg := e.Config
	cfg.ServerURL = serverURL
	cfg.Username = username
	cfg.TrustSelfSignedCerts = s.TrustSelfSignedCerts
	cfg.DebugLogging = s.DebugLogging
	if err := config.Save(e.ConfigPath, cfg); err != nil {
		return err
	}
	e.Config = cfg

	// A session belongs to the server and user it was issued for.
	if err := e.Sessions.Clear(); err != nil {
		e.Log.Warn("clear session failed", logger.Error(err))
	}

	client, err := e.newClient(e.Credentials)
	if err != nil {
		return err
	}
	e.Client = client

	if s.Password == "" {
		return nil
	}

	probe, err := e.newClient(fixedCredentials{shiori.Credentials{
		ServerURL: serverURL,
		Username:  username,
		Password:  s.Password,
	}})
	if err != nil {
		return err
	}
	if _, err := probe.Login(ctx); err != nil {
		e.Log.Warn("connection test failed", logger.String("kind", shiori.KindOf(err).String()))
		return err
	}
	if err := e.Credentials.SetPassword(s.Password); err != nil {
		return fmt.Errorf("store password: %w", err)
	}
	e.Log.Info("settings saved", logger.String("server", serverURL), logger.String("username", username))
	return nil
}

// ClearPassword removes the stored password and the cached session.
func (e *Env) ClearPassword() error {
	return errors.Join(e.Credentials.Clear(), e.Sessions.Clear())
}

// Reset clears the cached session and recent tags and restores the
// default preferences. Connection settings are kept.
func (e *Env) Reset() error {
	defaults := prefs.Default()
	err := errors.Join(
		e.Sessions.Clear(),
		e.Tags.SetRecentTags(nil),
		prefs.Save(e.PrefsPath, defaults),
	)
	e.Prefs = defaults
	return err
}

type fixedCredentials struct{ creds shiori.Credentials }

func (f fixedCredentials) Credentials() (shiori.Credentials, bool) {
	return f.creds, f.creds.Complete()
}
