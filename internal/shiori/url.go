package shiori

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// NormalizeServerURL trims the input, defaults a missing scheme to https
// and strips trailing slashes. An explicit scheme is kept as given.
func NormalizeServerURL(raw string) string {
	result := strings.TrimSpace(raw)
	if result == "" {
		return ""
	}
	if !strings.Contains(result, "://") {
		result = "https://" + result
	}
	return strings.TrimRight(result, "/")
}

// ParseServerURL normalises raw and checks it is an absolute http(s) URL
// with a host. Query and fragment are dropped; a path prefix is kept for
// servers mounted below the root.
func ParseServerURL(raw string) (*url.URL, error) {
	normalized := NormalizeServerURL(raw)
	if normalized == "" {
		return nil, errors.New("server URL is empty")
	}
	u, err := url.Parse(normalized)
	if err != nil {
		return nil, fmt.Errorf("parse server URL %q: %w", raw, err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, fmt.Errorf("server URL %q must use http or https", raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("server URL %q has no host", raw)
	}
	u.Scheme = scheme
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

// IsValidHTTPURL reports whether raw is an absolute http or https URL with
// a host, without any normalisation.
func IsValidHTTPURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return (scheme == "http" || scheme == "https") && u.Host != ""
}
