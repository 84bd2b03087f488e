// Package shioritest provides an in-process fake Shiori server and static
// collaborators for tests.
package shioritest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hughe/shiori-share/internal/shiori"
)

const (
	DefaultUsername = "shiori"
	DefaultPassword = "gopher"
)

// Request is a request received by the fake server.
type Request struct {
	Method    string
	Path      string
	SessionID string
	RequestID string
	Body      map[string]json.RawMessage
}

// Server is a fake Shiori server. Status overrides default to 0, meaning
// "behave like a healthy server".
type Server struct {
	*httptest.Server

	mu             sync.Mutex
	username       string
	password       string
	sessions       []string
	nextSession    int
	loginStatus    int
	loginBody      string
	bookmarkStatus int
	tagsStatus     int
	tags           []shiori.Tag
	nextID         int
	requests       []Request
}

// NewServer starts a fake server that is closed when the test ends.
func NewServer(t testing.TB) *Server {
	s := newServer()
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

// NewTLSServer is NewServer over TLS with a self-signed certificate.
func NewTLSServer(t testing.TB) *Server {
	s := newServer()
	s.Server = httptest.NewTLSServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

func newServer() *Server {
	return &Server{username: DefaultUsername, password: DefaultPassword, nextID: 1}
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/api/v1/auth/login", s.handleLogin)
	r.Post("/api/bookmarks", s.handleBookmark)
	r.Get("/api/tags", s.handleTags)
	r.Post("/api/logout", s.handleLogout)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.record(r, nil)
		http.NotFound(w, r)
	})
	return r
}

// SetLoginStatus forces the login endpoint to answer with status and an
// optional raw body.
func (s *Server) SetLoginStatus(status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loginStatus = status
	s.loginBody = body
}

// SetBookmarkStatus forces the bookmark endpoint to answer with status.
func (s *Server) SetBookmarkStatus(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookmarkStatus = status
}

// SetTagsStatus forces the tags endpoint to answer with status.
func (s *Server) SetTagsStatus(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tagsStatus = status
}

// SetTags sets the tag list returned by GET /api/tags.
func (s *Server) SetTags(tags []shiori.Tag) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tags = append([]shiori.Tag(nil), tags...)
}

// AddSession registers token as a valid session id.
func (s *Server) AddSession(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = append(s.sessions, token)
}

// ExpireSessions forgets every issued session id.
func (s *Server) ExpireSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = nil
}

// Requests returns every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// RequestsTo returns the requests received for path.
func (s *Server) RequestsTo(path string) []Request {
	var out []Request
	for _, r := range s.Requests() {
		if r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// Credentials returns a store pointing at this server.
func (s *Server) Credentials() Credentials {
	return Credentials{Value: shiori.Credentials{ServerURL: s.URL, Username: DefaultUsername, Password: DefaultPassword}, OK: true}
}

func (s *Server) record(r *http.Request, body map[string]json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, Request{
		Method:    r.Method,
		Path:      r.URL.Path,
		SessionID: r.Header.Get("X-Session-Id"),
		RequestID: r.Header.Get("X-Request-Id"),
		Body:      body,
	})
}

func (s *Server) validSession(token string) bool {
	for _, t := range s.sessions {
		if t == token {
			return true
		}
	}
	return false
}

func decodeBody(r *http.Request) (map[string]json.RawMessage, error) {
	var body map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, err
	}
	return body, nil
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody(r)
	s.record(r, body)
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loginStatus != 0 {
		w.WriteHeader(s.loginStatus)
		_, _ = w.Write([]byte(s.loginBody))
		return
	}

	var username, password string
	_ = json.Unmarshal(body["username"], &username)
	_ = json.Unmarshal(body["password"], &password)
	if username != s.username || password != s.password {
		writeJSON(w, http.StatusOK, map[string]any{"ok": false, "message": "username or password do not match"})
		return
	}

	s.nextSession++
	token := "session-" + strconv.Itoa(s.nextSession)
	s.sessions = append(s.sessions, token)
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"message": map[string]any{
			"token":   "jwt-" + strconv.Itoa(s.nextSession),
			"session": token,
			"expires": 1893456000,
		},
	})
}

func (s *Server) handleBookmark(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody(r)
	s.record(r, body)
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bookmarkStatus != 0 {
		http.Error(w, http.StatusText(s.bookmarkStatus), s.bookmarkStatus)
		return
	}
	if !s.validSession(r.Header.Get("X-Session-Id")) {
		http.Error(w, "session has been expired", http.StatusUnauthorized)
		return
	}

	var bookmark shiori.Bookmark
	_ = json.Unmarshal(body["url"], &bookmark.URL)
	_ = json.Unmarshal(body["title"], &bookmark.Title)
	_ = json.Unmarshal(body["excerpt"], &bookmark.Excerpt)
	bookmark.ID = s.nextID
	s.nextID++
	writeJSON(w, http.StatusCreated, bookmark)
}

func (s *Server) handleTags(w http.ResponseWriter, r *http.Request) {
	s.record(r, nil)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tagsStatus != 0 {
		http.Error(w, http.StatusText(s.tagsStatus), s.tagsStatus)
		return
	}
	if !s.validSession(r.Header.Get("X-Session-Id")) {
		http.Error(w, "session has been expired", http.StatusUnauthorized)
		return
	}
	tags := s.tags
	if tags == nil {
		tags = []shiori.Tag{}
	}
	writeJSON(w, http.StatusOK, tags)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.record(r, nil)

	s.mu.Lock()
	defer s.mu.Unlock()

	token := r.Header.Get("X-Session-Id")
	kept := s.sessions[:0]
	for _, t := range s.sessions {
		if t != token {
			kept = append(kept, t)
		}
	}
	s.sessions = kept
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
