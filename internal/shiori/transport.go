package shiori

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"net"
	"net/http"
	"strings"
	"time"
)

// RequestTimeout bounds every request made by the client.
const RequestTimeout = 30 * time.Second

// TransportOptions configure NewHTTPClient.
type TransportOptions struct {
	// TrustedHost disables certificate verification for this host only.
	// Empty means every host is verified.
	TrustedHost string
	// RootCAs overrides the system roots.
	RootCAs *x509.CertPool
	Timeout time.Duration
}

// NewHTTPClient builds the HTTP client used to reach the Shiori server.
func NewHTTPClient(opts TransportOptions) *http.Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = RequestTimeout
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	base := &tls.Config{MinVersion: tls.VersionTLS12, RootCAs: opts.RootCAs}
	transport.TLSClientConfig = base

	if trusted := strings.TrimSpace(opts.TrustedHost); trusted != "" {
		dialer := &net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}
		transport.DialTLSContext = pinnedDialer(dialer, base, trusted)
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// pinnedDialer performs the TLS handshake itself so the decision to skip
// verification is made on the host actually dialed. Redirects to any other
// host get full verification.
func pinnedDialer(dialer *net.Dialer, base *tls.Config, trusted string) func(ctx context.Context, network, addr string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			host = addr
		}
		cfg := base.Clone()
		cfg.ServerName = host
		cfg.InsecureSkipVerify = strings.EqualFold(host, trusted)

		raw, err := dialer.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}
		conn := tls.Client(raw, cfg)
		if err := conn.HandshakeContext(ctx); err != nil {
			_ = raw.Close()
			return nil, err
		}
		return conn, nil
	}
}
