package shiori_test

import (
	"io"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/hughe/shiori-share/internal/shiori"
)

type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(r *http.Request) (*http.Response, error) {
	return f(r)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

// countingCredentials counts how often the client asks for credentials.
type countingCredentials struct {
	inner shiori.CredentialStore
	calls atomic.Int32
}

func (c *countingCredentials) Credentials() (shiori.Credentials, bool) {
	c.calls.Add(1)
	return c.inner.Credentials()
}
