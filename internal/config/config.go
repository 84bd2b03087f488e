package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/hughe/shiori-share/internal/shiori"
)

// Config holds the connection settings for the Shiori server and the
// locations of local state. Paths are always absolute after Load.
type Config struct {
	ServerURL            string
	Username             string
	TrustSelfSignedCerts bool
	DebugLogging         bool
	LogDir               string
	StateDir             string
}

const (
	defaultConfigPath = "~/.config/shiori-share/config.toml"
	defaultStateDir   = "~/.local/state/shiori-share"
	defaultLogDir     = "~/.local/state/shiori-share/logs"
)

type rawConfig struct {
	ServerURL            string `toml:"server_url"`
	Username             string `toml:"username"`
	TrustSelfSignedCerts bool   `toml:"trust_self_signed_certs"`
	DebugLogging         bool   `toml:"debug_logging"`
	LogDir               string `toml:"log_dir,omitempty"`
	StateDir             string `toml:"state_dir,omitempty"`
}

// DefaultPath returns the default config file path, unexpanded.
func DefaultPath() string {
	return defaultConfigPath
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		LogDir:   mustExpand(defaultLogDir),
		StateDir: mustExpand(defaultStateDir),
	}
}

// Load locates and parses the config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := ResolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw rawConfig
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg.ServerURL = shiori.NormalizeServerURL(raw.ServerURL)
	cfg.Username = strings.TrimSpace(raw.Username)
	cfg.TrustSelfSignedCerts = raw.TrustSelfSignedCerts
	cfg.DebugLogging = raw.DebugLogging

	if dir := strings.TrimSpace(raw.LogDir); dir != "" {
		cfg.LogDir = mustExpand(dir)
	}
	if dir := strings.TrimSpace(raw.StateDir); dir != "" {
		cfg.StateDir = mustExpand(dir)
	}

	return cfg, nil
}

// Save writes cfg to path with owner-only permissions. Directories that
// still hold their default value are left out of the file.
func Save(path string, cfg Config) error {
	resolved, err := ResolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	raw := rawConfig{
		ServerURL:            shiori.NormalizeServerURL(cfg.ServerURL),
		Username:             strings.TrimSpace(cfg.Username),
		TrustSelfSignedCerts: cfg.TrustSelfSignedCerts,
		DebugLogging:         cfg.DebugLogging,
	}
	defaults := Default()
	if cfg.LogDir != "" && cfg.LogDir != defaults.LogDir {
		raw.LogDir = cfg.LogDir
	}
	if cfg.StateDir != "" && cfg.StateDir != defaults.StateDir {
		raw.StateDir = cfg.StateDir
	}

	bytes, err := toml.Marshal(raw)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(resolved, bytes, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	// WriteFile keeps the mode of an existing file.
	if err := os.Chmod(resolved, 0o600); err != nil {
		return fmt.Errorf("chmod config: %w", err)
	}
	return nil
}

// Configured reports whether a server URL and username are set.
func (c Config) Configured() bool {
	return strings.TrimSpace(c.ServerURL) != "" && strings.TrimSpace(c.Username) != ""
}

// ServerHost returns the host name of the configured server, or "" when
// the URL does not parse.
func (c Config) ServerHost() string {
	u, err := shiori.ParseServerURL(c.ServerURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// SessionPath is where the session cache is persisted.
func (c Config) SessionPath() string {
	return filepath.Join(c.stateDir(), "session.toml")
}

// TagsPath is where recently used tags are persisted.
func (c Config) TagsPath() string {
	return filepath.Join(c.stateDir(), "tags.toml")
}

// SecretsDir holds the sealed password and its key.
func (c Config) SecretsDir() string {
	return filepath.Join(c.stateDir(), "secrets")
}

func (c Config) stateDir() string {
	if strings.TrimSpace(c.StateDir) == "" {
		return mustExpand(defaultStateDir)
	}
	return c.StateDir
}

// ResolvePath expands path, or the default config path when empty.
func ResolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
