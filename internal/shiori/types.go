package shiori

import (
	"encoding/json"
	"time"
)

const (
	// SessionExpiry is how long a cached session id is reused before a
	// fresh login is forced.
	SessionExpiry = time.Hour

	// MaxRecentTags caps the tag suggestion cache.
	MaxRecentTags = 50
)

// Credentials identify the user against a Shiori server.
type Credentials struct {
	ServerURL string
	Username  string
	Password  string
}

// Complete reports whether every field is present.
func (c Credentials) Complete() bool {
	return c.ServerURL != "" && c.Username != "" && c.Password != ""
}

// Session is a cached session id and the moment it was issued.
type Session struct {
	Token    string
	IssuedAt time.Time
}

// ValidAt reports whether the session can still be used at now.
// A session is valid while now-IssuedAt < SessionExpiry.
func (s Session) ValidAt(now time.Time) bool {
	if s.Token == "" || s.IssuedAt.IsZero() {
		return false
	}
	return now.Sub(s.IssuedAt) < SessionExpiry
}

// BookmarkRequest describes a bookmark to create.
type BookmarkRequest struct {
	URL           string
	Title         string
	Description   string
	Keywords      string // comma separated
	CreateArchive bool
	Public        bool
}

// Bookmark is the server's view of a created bookmark.
type Bookmark struct {
	ID      int    `json:"id"`
	URL     string `json:"url"`
	Title   string `json:"title,omitempty"`
	Excerpt string `json:"excerpt,omitempty"`
}

// Tag is an entry of GET /api/tags.
type Tag struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	NBookmarks int    `json:"nBookmarks"`
}

// TagName is the tag shape accepted when creating a bookmark.
type TagName struct {
	Name string `json:"name"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

// loginResponse keeps message raw: on failure Shiori sends a plain string there.
type loginResponse struct {
	OK      bool            `json:"ok"`
	Message json.RawMessage `json:"message"`
}

type loginMessage struct {
	Token   string `json:"token"`
	Session string `json:"session"`
	Expires int64  `json:"expires,omitempty"`
}

// bookmarkPayload omits empty optional fields; Shiori treats null and ""
// differently from absent ones.
type bookmarkPayload struct {
	URL           string    `json:"url"`
	Title         string    `json:"title,omitempty"`
	Excerpt       string    `json:"excerpt,omitempty"`
	Tags          []TagName `json:"tags,omitempty"`
	CreateArchive bool      `json:"createArchive"`
	Public        int       `json:"public"`
}
