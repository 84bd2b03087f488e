package state

import (
	"sync"
	"time"

	"github.com/hughe/shiori-share/internal/shiori"
)

// SessionCache keeps the current Shiori session in memory and mirrors it
// to a TOML file so separate invocations can share it.
type SessionCache struct {
	mu      sync.RWMutex
	path    string
	session shiori.Session
	has     bool
}

type sessionFile struct {
	Token    string    `toml:"token"`
	IssuedAt time.Time `toml:"issued_at"`
}

// NewSessionCache loads the cache from path. An empty path keeps the
// cache in memory only.
func NewSessionCache(path string) *SessionCache {
	c := &SessionCache{path: path}
	var raw sessionFile
	if loadFile(path, &raw) && raw.Token != "" && !raw.IssuedAt.IsZero() {
		c.session = shiori.Session{Token: raw.Token, IssuedAt: raw.IssuedAt}
		c.has = true
	}
	return c
}

// Session returns the cached session, if any, regardless of age.
func (c *SessionCache) Session() (shiori.Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session, c.has
}

// SetSession replaces the cached session. The in-memory value is updated
// even when persisting fails.
func (c *SessionCache) SetSession(s shiori.Session) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = s
	c.has = true
	return writeFile(c.path, sessionFile{Token: s.Token, IssuedAt: s.IssuedAt})
}

// Clear forgets the cached session.
func (c *SessionCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = shiori.Session{}
	c.has = false
	return removeFile(c.path)
}

// IsValid reports whether a cached session exists and is usable at now.
func (c *SessionCache) IsValid(now time.Time) bool {
	s, ok := c.Session()
	return ok && s.ValidAt(now)
}
