package shiori

import (
	"bytes"
	"context"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hughe/shiori-share/internal/logger"
)

const (
	loginPath     = "/api/v1/auth/login"
	bookmarksPath = "/api/bookmarks"
	tagsPath      = "/api/tags"
	logoutPath    = "/api/logout"

	sessionHeader   = "X-Session-Id"
	requestIDHeader = "X-Request-Id"

	defaultUserAgent = "shiori-share/0.1"
	maxResponseBytes = 4 << 20
)

// CredentialStore supplies the server URL, username and password.
// It is consulted on every operation so edits take effect immediately.
type CredentialStore interface {
	Credentials() (Credentials, bool)
}

// SessionCache holds the current session. SetSession must replace the
// whole value at once so readers never see a token with another token's
// timestamp.
type SessionCache interface {
	Session() (Session, bool)
	SetSession(Session) error
	Clear() error
}

// TagCache holds recently used tag names, most recent first.
type TagCache interface {
	RecentTags() []string
	SetRecentTags(names []string) error
	AddRecentTags(names []string) error
}

// Doer sends HTTP requests. *http.Client implements it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Options configure a Client.
type Options struct {
	Credentials CredentialStore
	Sessions    SessionCache
	Tags        TagCache
	Logger      logger.Logger

	// HTTPClient replaces the built-in transport selection when set.
	HTTPClient Doer
	// TrustSelfSignedCerts skips certificate verification for the
	// configured server host only.
	TrustSelfSignedCerts bool
	RootCAs              *x509.CertPool

	Now       func() time.Time
	UserAgent string
}

// Client talks to the Shiori HTTP API. It is safe for concurrent use;
// overlapping logins are tolerated and the last one wins.
type Client struct {
	creds     CredentialStore
	sessions  SessionCache
	tags      TagCache
	log       logger.Logger
	now       func() time.Time
	userAgent string

	doer    Doer
	trust   bool
	rootCAs *x509.CertPool

	mu         sync.Mutex
	httpHost   string
	httpClient *http.Client
}

// New builds a Client from explicit collaborators.
func New(opts Options) (*Client, error) {
	if opts.Credentials == nil {
		return nil, errors.New("credential store is required")
	}
	if opts.Sessions == nil {
		return nil, errors.New("session cache is required")
	}
	c := &Client{
		creds:     opts.Credentials,
		sessions:  opts.Sessions,
		tags:      opts.Tags,
		log:       opts.Logger,
		now:       opts.Now,
		userAgent: opts.UserAgent,
		doer:      opts.HTTPClient,
		trust:     opts.TrustSelfSignedCerts,
		rootCAs:   opts.RootCAs,
	}
	if c.tags == nil {
		c.tags = discardTags{}
	}
	if c.log == nil {
		c.log = logger.Nop()
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.userAgent == "" {
		c.userAgent = defaultUserAgent
	}
	return c, nil
}

// Login authenticates with the stored credentials and caches the new
// session, replacing whatever was cached before.
func (c *Client) Login(ctx context.Context) (Session, error) {
	creds, base, err := c.server()
	if err != nil {
		return Session{}, err
	}
	return c.login(ctx, creds, base)
}

func (c *Client) login(ctx context.Context, creds Credentials, base *url.URL) (Session, error) {
	body := loginRequest{Username: creds.Username, Password: creds.Password, Remember: true}
	status, data, err := c.send(ctx, http.MethodPost, base.JoinPath(loginPath), "", body)
	if err != nil {
		return Session{}, err
	}

	switch {
	case status == http.StatusOK:
		token, err := parseLogin(data)
		if err != nil {
			if KindOf(err) == KindDecoding {
				c.log.Error("login decoding error", logger.Error(err))
			}
			return Session{}, err
		}
		session := Session{Token: token, IssuedAt: c.now()}
		if err := c.sessions.SetSession(session); err != nil {
			c.log.Warn("persist session failed", logger.Error(err))
		}
		c.log.Info("login successful", logger.String("username", creds.Username))
		return session, nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return Session{}, &APIError{Kind: KindInvalidCredentials}
	case status == http.StatusNotFound:
		return Session{}, &APIError{Kind: KindNotFound}
	default:
		return Session{}, statusError(status)
	}
}

func parseLogin(data []byte) (string, error) {
	var payload loginResponse
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", decodingError(fmt.Errorf("decode login response: %w", err))
	}
	raw := bytes.TrimSpace(payload.Message)
	if !payload.OK || len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", &APIError{Kind: KindInvalidCredentials}
	}
	var msg loginMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return "", decodingError(fmt.Errorf("decode login message: %w", err))
	}
	if msg.Session == "" {
		return "", &APIError{Kind: KindInvalidCredentials}
	}
	return msg.Session, nil
}

// AddBookmark creates a bookmark, logging in first when the cached
// session is missing or expired.
func (c *Client) AddBookmark(ctx context.Context, req BookmarkRequest) (Bookmark, error) {
	target := strings.TrimSpace(req.URL)
	if target == "" {
		return Bookmark{}, &APIError{Kind: KindInvalidURL, Err: errors.New("bookmark URL is empty")}
	}

	token, base, err := c.validSession(ctx)
	if err != nil {
		return Bookmark{}, err
	}

	tags := ParseKeywords(req.Keywords)
	payload := bookmarkPayload{
		URL:           target,
		Title:         strings.TrimSpace(req.Title),
		Excerpt:       strings.TrimSpace(req.Description),
		Tags:          tags,
		CreateArchive: req.CreateArchive,
	}
	if req.Public {
		payload.Public = 1
	}

	status, data, err := c.send(ctx, http.MethodPost, base.JoinPath(bookmarksPath), token, payload)
	if err != nil {
		return Bookmark{}, err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return Bookmark{}, c.statusFailure(status)
	}

	var bookmark Bookmark
	if err := json.Unmarshal(data, &bookmark); err != nil {
		c.log.Error("bookmark decoding error", logger.Error(err))
		return Bookmark{}, decodingError(fmt.Errorf("decode bookmark: %w", err))
	}
	if tags != nil {
		if err := c.tags.AddRecentTags(tagNames(tags)); err != nil {
			c.log.Warn("update recent tags failed", logger.Error(err))
		}
	}
	c.log.Info("bookmark saved", logger.Int("id", bookmark.ID))
	return bookmark, nil
}

// FetchTags lists the server's tags.
func (c *Client) FetchTags(ctx context.Context) ([]Tag, error) {
	token, base, err := c.validSession(ctx)
	if err != nil {
		return nil, err
	}
	status, data, err := c.send(ctx, http.MethodGet, base.JoinPath(tagsPath), token, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, c.statusFailure(status)
	}
	var tags []Tag
	if err := json.Unmarshal(data, &tags); err != nil {
		c.log.Error("tags decoding error", logger.Error(err))
		return nil, decodingError(fmt.Errorf("decode tags: %w", err))
	}
	c.log.Debug("fetched tags", logger.Int("count", len(tags)))
	return tags, nil
}

// RefreshPopularTags replaces the recent tag cache with the server's most
// used tags. Failures are logged and never returned.
func (c *Client) RefreshPopularTags(ctx context.Context) {
	tags, err := c.FetchTags(ctx)
	if err != nil {
		c.log.Warn("refresh popular tags failed", logger.Error(err))
		return
	}
	popular := PopularTags(tags, MaxRecentTags)
	if err := c.tags.SetRecentTags(popular); err != nil {
		c.log.Warn("store popular tags failed", logger.Error(err))
		return
	}
	c.log.Info("updated popular tags cache", logger.Int("count", len(popular)))
}

// PopularTags returns up to limit distinct normalised tag names ordered by
// bookmark count, highest first. Names that collide after normalising keep
// the position of the most used one.
func PopularTags(tags []Tag, limit int) []string {
	sorted := make([]Tag, len(tags))
	copy(sorted, tags)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].NBookmarks > sorted[j].NBookmarks
	})
	names := make([]string, 0, min(limit, len(sorted)))
	seen := make(map[string]bool, cap(names))
	for _, t := range sorted {
		if len(names) >= limit {
			break
		}
		name := NormalizeTag(t.Name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// Logout ends the cached session on the server when there is one and
// clears it locally. Server-side failures are only logged.
func (c *Client) Logout(ctx context.Context) error {
	if session, ok := c.sessions.Session(); ok && session.ValidAt(c.now()) {
		if _, base, err := c.server(); err == nil {
			status, _, err := c.send(ctx, http.MethodPost, base.JoinPath(logoutPath), session.Token, nil)
			switch {
			case err != nil:
				c.log.Warn("logout request failed", logger.Error(err))
			case status >= http.StatusMultipleChoices:
				c.log.Warn("logout rejected", logger.Int("status", status))
			}
		}
	}
	if err := c.sessions.Clear(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (c *Client) server() (Credentials, *url.URL, error) {
	creds, ok := c.creds.Credentials()
	if !ok || !creds.Complete() {
		return Credentials{}, nil, &APIError{Kind: KindNotConfigured}
	}
	base, err := ParseServerURL(creds.ServerURL)
	if err != nil {
		return Credentials{}, nil, &APIError{Kind: KindInvalidURL, Err: err}
	}
	return creds, base, nil
}

func (c *Client) validSession(ctx context.Context) (string, *url.URL, error) {
	creds, base, err := c.server()
	if err != nil {
		return "", nil, err
	}
	if session, ok := c.sessions.Session(); ok && session.ValidAt(c.now()) {
		return session.Token, base, nil
	}
	session, err := c.login(ctx, creds, base)
	if err != nil {
		return "", nil, err
	}
	return session.Token, base, nil
}

func (c *Client) statusFailure(status int) error {
	switch status {
	case http.StatusUnauthorized:
		if err := c.sessions.Clear(); err != nil {
			c.log.Warn("clear session failed", logger.Error(err))
		}
		return &APIError{Kind: KindUnauthorized}
	case http.StatusForbidden:
		return &APIError{Kind: KindInvalidCredentials}
	case http.StatusNotFound:
		return &APIError{Kind: KindNotFound}
	default:
		return statusError(status)
	}
}

// send performs one request and returns the status and body. Any error it
// returns is already classified.
func (c *Client) send(ctx context.Context, method string, endpoint *url.URL, session string, payload any) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, &APIError{Kind: KindUnknown, Err: fmt.Errorf("encode request: %w", err)}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return 0, nil, Classify(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if session != "" {
		req.Header.Set(sessionHeader, session)
	}
	requestID := uuid.NewString()
	req.Header.Set(requestIDHeader, requestID)

	log := c.log.With(logger.String("request_id", requestID))
	log.Debug("api request",
		logger.String("method", method),
		logger.String("url", endpoint.Redacted()),
		logger.Headers(req.Header),
	)

	start := time.Now()
	resp, err := c.httpClientFor(endpoint.Hostname()).Do(req)
	if err != nil {
		classified := Classify(err)
		log.Warn("api request failed",
			logger.String("method", method),
			logger.String("url", endpoint.Redacted()),
			logger.String("kind", KindOf(classified).String()),
			logger.Error(err),
		)
		return 0, nil, classified
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, Classify(fmt.Errorf("read response: %w", err))
	}
	log.Debug("api response",
		logger.String("method", method),
		logger.String("url", endpoint.Redacted()),
		logger.Int("status", resp.StatusCode),
		logger.Duration("duration", time.Since(start)),
	)
	return resp.StatusCode, data, nil
}

func (c *Client) httpClientFor(host string) Doer {
	if c.doer != nil {
		return c.doer
	}
	if !c.trust {
		host = ""
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.httpClient == nil || c.httpHost != host {
		c.httpClient = NewHTTPClient(TransportOptions{TrustedHost: host, RootCAs: c.rootCAs})
		c.httpHost = host
	}
	return c.httpClient
}

type discardTags struct{}

func (discardTags) RecentTags() []string          { return nil }
func (discardTags) SetRecentTags([]string) error { return nil }
func (discardTags) AddRecentTags([]string) error { return nil }
