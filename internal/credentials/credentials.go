// Package credentials stores the Shiori password sealed on disk and
// combines it with the connection settings from the config file.
package credentials

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"

	"github.com/hughe/shiori-share/internal/config"
	"github.com/hughe/shiori-share/internal/shiori"
)

const (
	keyFile      = "key"
	passwordFile = "password.enc"
	keySize      = 32
	nonceSize    = 24
	hkdfInfo     = "shiori-share password v1"
)

// ErrCorrupt is returned when the sealed password cannot be opened.
var ErrCorrupt = errors.New("stored password is corrupt")

// Store implements shiori.CredentialStore. The config file is re-read on
// every call so edits made by `configure` apply to a running process.
type Store struct {
	configPath string
	dir        string

	mu sync.Mutex
}

// New returns a store reading settings from configPath and keeping the
// sealed password under dir.
func New(configPath, dir string) *Store {
	return &Store{configPath: configPath, dir: dir}
}

// Credentials returns the configured server URL, username and password.
// ok is false unless all three are present.
func (s *Store) Credentials() (shiori.Credentials, bool) {
	cfg, err := config.Load(s.configPath)
	if err != nil {
		return shiori.Credentials{}, false
	}
	password, err := s.Password()
	if err != nil {
		return shiori.Credentials{}, false
	}
	creds := shiori.Credentials{
		ServerURL: cfg.ServerURL,
		Username:  cfg.Username,
		Password:  password,
	}
	return creds, creds.Complete()
}

// HasCredentials reports whether Credentials would succeed.
func (s *Store) HasCredentials() bool {
	_, ok := s.Credentials()
	return ok
}

// SetPassword seals password and writes it with owner-only permissions.
// An empty password removes the stored one.
func (s *Store) SetPassword(password string) error {
	if password == "" {
		return s.Clear()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key, err := s.loadKey(true)
	if err != nil {
		return err
	}

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], []byte(password), &nonce, key)

	if err := writeFile(filepath.Join(s.dir, passwordFile), sealed); err != nil {
		return fmt.Errorf("write password: %w", err)
	}
	return nil
}

// Password returns the stored password, or "" when none is stored.
func (s *Store) Password() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sealed, err := os.ReadFile(filepath.Join(s.dir, passwordFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("read password: %w", err)
	}
	if len(sealed) < nonceSize+secretbox.Overhead {
		return "", ErrCorrupt
	}

	key, err := s.loadKey(false)
	if err != nil {
		return "", err
	}

	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	plain, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, key)
	if !ok {
		return "", ErrCorrupt
	}
	return string(plain), nil
}

// Clear removes the stored password and its key.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, name := range []string{passwordFile, keyFile} {
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// loadKey reads the master key and derives the secretbox key from it.
// With create set, a missing master key is generated.
func (s *Store) loadKey(create bool) (*[keySize]byte, error) {
	path := filepath.Join(s.dir, keyFile)
	master, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist) && create:
		master = make([]byte, keySize)
		if _, err := io.ReadFull(rand.Reader, master); err != nil {
			return nil, fmt.Errorf("generate key: %w", err)
		}
		if err := writeFile(path, master); err != nil {
			return nil, fmt.Errorf("write key: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
		return nil, ErrCorrupt
	case err != nil:
		return nil, fmt.Errorf("read key: %w", err)
	}
	if len(master) != keySize {
		return nil, ErrCorrupt
	}

	var key [keySize]byte
	if _, err := io.ReadFull(hkdf.New(sha256.New, master, nil, []byte(hkdfInfo)), key[:]); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return &key, nil
}

func writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+strings.TrimPrefix(filepath.Base(path), ".")+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
