// Package prefs stores the share form's remembered choices: the colour
// theme and the archive and visibility toggles offered for new bookmarks.
package prefs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Prefs are the starting values of the share form.
type Prefs struct {
	Theme string `toml:"theme"`
	// CreateArchive asks the server to keep an offline copy of the page.
	CreateArchive bool `toml:"create_archive"`
	// MakePublic marks new bookmarks as public (public = 1 on the wire).
	MakePublic bool `toml:"make_public"`
}

const (
	defaultPrefsPath = "~/.config/shiori-share/prefs.toml"
	defaultTheme     = "Nightfox"
)

// Default archives new bookmarks and keeps them private.
func Default() Prefs {
	return Prefs{Theme: defaultTheme, CreateArchive: true}
}

// DefaultPath returns the preferences file used when none is given.
func DefaultPath() string {
	return defaultPrefsPath
}

// Load reads the preferences at path (DefaultPath when empty). Preferences
// only seed the form, so an unreadable or malformed file yields Default
// instead of an error; fields absent from the file keep their defaults.
func Load(path string) (Prefs, error) {
	p := Default()
	resolved, err := resolvePath(path)
	if err != nil {
		return p, nil
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return p, nil
	}
	if err := toml.Unmarshal(data, &p); err != nil {
		return Default(), nil
	}
	if strings.TrimSpace(p.Theme) == "" {
		p.Theme = defaultTheme
	}
	return p, nil
}

// Save stores p at path, creating the config directory on first use.
func Save(path string, p Prefs) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve prefs path: %w", err)
	}
	data, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}
	if err := os.WriteFile(resolved, data, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	return nil
}

func resolvePath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = defaultPrefsPath
	}
	if rest, ok := strings.CutPrefix(path, "~"); ok {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		path = filepath.Join(home, rest)
	}
	return filepath.Abs(path)
}
