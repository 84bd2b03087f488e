package credentials

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hughe/shiori-share/internal/config"
)

func newStore(t *testing.T, cfg config.Config) *Store {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, config.Save(path, cfg))
	return New(path, filepath.Join(dir, "secrets"))
}

func TestStore_CredentialsRequireAllFields(t *testing.T) {
	s := newStore(t, config.Config{ServerURL: "shiori.example.com", Username: "gopher"})
	require.False(t, s.HasCredentials())

	require.NoError(t, s.SetPassword("hunter2"))
	creds, ok := s.Credentials()
	require.True(t, ok)
	require.Equal(t, "https://shiori.example.com", creds.ServerURL)
	require.Equal(t, "gopher", creds.Username)
	require.Equal(t, "hunter2", creds.Password)
}

func TestStore_MissingUsernameIsIncomplete(t *testing.T) {
	s := newStore(t, config.Config{ServerURL: "https://shiori.example.com"})
	require.NoError(t, s.SetPassword("hunter2"))
	require.False(t, s.HasCredentials())
}

func TestStore_PasswordIsSealedOnDisk(t *testing.T) {
	s := newStore(t, config.Config{})
	require.NoError(t, s.SetPassword("hunter2"))

	for _, name := range []string{passwordFile, keyFile} {
		info, err := os.Stat(filepath.Join(s.dir, name))
		require.NoError(t, err)
		require.Equal(t, os.FileMode(0o600), info.Mode().Perm(), name)
	}

	sealed, err := os.ReadFile(filepath.Join(s.dir, passwordFile))
	require.NoError(t, err)
	require.False(t, bytes.Contains(sealed, []byte("hunter2")))

	again := New(s.configPath, s.dir)
	got, err := again.Password()
	require.NoError(t, err)
	require.Equal(t, "hunter2", got)
}

func TestStore_SetPasswordReusesKey(t *testing.T) {
	s := newStore(t, config.Config{})
	require.NoError(t, s.SetPassword("first"))
	key1, err := os.ReadFile(filepath.Join(s.dir, keyFile))
	require.NoError(t, err)

	require.NoError(t, s.SetPassword("second"))
	key2, err := os.ReadFile(filepath.Join(s.dir, keyFile))
	require.NoError(t, err)
	require.Equal(t, key1, key2)

	got, err := s.Password()
	require.NoError(t, err)
	require.Equal(t, "second", got)
}

func TestStore_TamperedPasswordIsCorrupt(t *testing.T) {
	s := newStore(t, config.Config{})
	require.NoError(t, s.SetPassword("hunter2"))

	path := filepath.Join(s.dir, passwordFile)
	sealed, err := os.ReadFile(path)
	require.NoError(t, err)
	sealed[len(sealed)-1] ^= 0xff
	require.NoError(t, os.WriteFile(path, sealed, 0o600))

	_, err = s.Password()
	require.True(t, errors.Is(err, ErrCorrupt))
	require.False(t, s.HasCredentials())
}

func TestStore_ClearRemovesPassword(t *testing.T) {
	s := newStore(t, config.Config{ServerURL: "https://x", Username: "u"})
	require.NoError(t, s.SetPassword("hunter2"))
	require.NoError(t, s.Clear())
	require.NoError(t, s.Clear())

	got, err := s.Password()
	require.NoError(t, err)
	require.Empty(t, got)
	require.False(t, s.HasCredentials())
}

func TestStore_EmptyPasswordClears(t *testing.T) {
	s := newStore(t, config.Config{})
	require.NoError(t, s.SetPassword("hunter2"))
	require.NoError(t, s.SetPassword(""))
	got, err := s.Password()
	require.NoError(t, err)
	require.Empty(t, got)
}
