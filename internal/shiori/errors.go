package shiori

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
)

// ErrorKind identifies a class of API failure.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindNotConfigured
	KindInvalidURL
	KindInvalidCredentials
	KindConnectionFailed
	KindServerError
	KindUnauthorized
	KindNotFound
	KindCertificate
	KindDecoding
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotConfigured:
		return "not_configured"
	case KindInvalidURL:
		return "invalid_url"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindConnectionFailed:
		return "connection_failed"
	case KindServerError:
		return "server_error"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindCertificate:
		return "certificate_error"
	case KindDecoding:
		return "decoding_error"
	default:
		return "unknown_error"
	}
}

// APIError is the only error type returned by Client operations.
// StatusCode is set for KindServerError; Err carries the underlying cause
// for connection, decoding and unknown failures.
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	Err        error
}

// Sentinels for use with errors.Is. Matching compares kinds only, so
// ErrServerError matches a server error with any status code.
var (
	ErrNotConfigured      = &APIError{Kind: KindNotConfigured}
	ErrInvalidURL         = &APIError{Kind: KindInvalidURL}
	ErrInvalidCredentials = &APIError{Kind: KindInvalidCredentials}
	ErrConnectionFailed   = &APIError{Kind: KindConnectionFailed}
	ErrServerError        = &APIError{Kind: KindServerError}
	ErrUnauthorized       = &APIError{Kind: KindUnauthorized}
	ErrNotFound           = &APIError{Kind: KindNotFound}
	ErrCertificate        = &APIError{Kind: KindCertificate}
	ErrDecoding           = &APIError{Kind: KindDecoding}
	ErrUnknown            = &APIError{Kind: KindUnknown}
)

func (e *APIError) Error() string {
	switch e.Kind {
	case KindNotConfigured:
		return "server not configured; run `shiori-share configure` first"
	case KindInvalidURL:
		if e.Err != nil {
			return fmt.Sprintf("invalid URL: %v", e.Err)
		}
		return "invalid server URL"
	case KindInvalidCredentials:
		return "invalid username or password"
	case KindConnectionFailed:
		if e.Err != nil {
			return fmt.Sprintf("connection failed: %v", e.Err)
		}
		return "connection failed"
	case KindServerError:
		return fmt.Sprintf("server error (%d)", e.StatusCode)
	case KindUnauthorized:
		return "session expired, please try again"
	case KindNotFound:
		return "shiori API not found, check the server URL"
	case KindCertificate:
		return "certificate error; enable trust_self_signed_certs if the server uses a self-signed certificate"
	case KindDecoding:
		return "invalid server response"
	default:
		if e.Err != nil {
			return e.Err.Error()
		}
		return "unknown error"
	}
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *APIError of the same kind.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.StatusCode == 0 || t.StatusCode == e.StatusCode
}

// Retryable reports whether the caller may offer to retry the operation
// as-is. Everything else needs the user to change something first.
func (e *APIError) Retryable() bool {
	switch e.Kind {
	case KindConnectionFailed, KindServerError, KindUnauthorized:
		return true
	default:
		return false
	}
}

// IsRetryable reports whether err is a retryable *APIError.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	return false
}

// KindOf returns the kind of err, or KindUnknown when err is not an *APIError.
func KindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindUnknown
}

func statusError(code int) *APIError {
	return &APIError{Kind: KindServerError, StatusCode: code}
}

func decodingError(err error) *APIError {
	return &APIError{Kind: KindDecoding, Err: err}
}

// Classify maps a transport error to an *APIError without doing any I/O.
// Errors that are already classified are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	switch {
	case errors.Is(err, context.Canceled):
		return &APIError{Kind: KindUnknown, Err: err}
	case isCertificateError(err):
		return &APIError{Kind: KindCertificate, Err: err}
	case isConnectionError(err):
		return &APIError{Kind: KindConnectionFailed, Err: err}
	default:
		return &APIError{Kind: KindUnknown, Err: err}
	}
}

func isCertificateError(err error) bool {
	var (
		verifyErr   *tls.CertificateVerificationError
		unknownCA   x509.UnknownAuthorityError
		invalidCert x509.CertificateInvalidError
		hostErr     x509.HostnameError
		rootsErr    x509.SystemRootsError
		recordErr   tls.RecordHeaderError
		alertErr    tls.AlertError
	)
	return errors.As(err, &verifyErr) ||
		errors.As(err, &unknownCA) ||
		errors.As(err, &invalidCert) ||
		errors.As(err, &hostErr) ||
		errors.As(err, &rootsErr) ||
		errors.As(err, &recordErr) ||
		errors.As(err, &alertErr)
}

var connectionErrnos = []syscall.Errno{
	syscall.ECONNREFUSED,
	syscall.ECONNRESET,
	syscall.ECONNABORTED,
	syscall.EHOSTUNREACH,
	syscall.ENETUNREACH,
	syscall.ENETDOWN,
	syscall.EPIPE,
}

func isConnectionError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	for _, errno := range connectionErrnos {
		if errors.Is(err, errno) {
			return true
		}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	return false
}
