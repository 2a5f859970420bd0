package failure

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"net/http"
	"strings"
)

// Kind categorizes a single fetch attempt's failure. Every transport error
// and every non-2xx HTTP status maps to exactly one Kind; all retry decisions
// are made from the Kind alone.
type Kind string

const (
	KindTimeout      Kind = "timeout"       // request or dial deadline hit
	KindTLSHandshake Kind = "tls_handshake" // HTTP 525 or a TLS/connect-level error
	KindRateLimited  Kind = "rate_limited"  // HTTP 429
	KindServerError  Kind = "server_error"  // HTTP 5xx (except 525)
	KindClientError  Kind = "client_error"  // any other non-2xx status, never retried
	KindTransport    Kind = "transport"     // any other network-level error
)

// String implements fmt.Stringer for logging
func (k Kind) String() string { return string(k) }

// Retryable reports whether a failure of this kind should be retried.
// KindClientError is the only terminal kind: the server answered and the
// answer will not change.
func (k Kind) Retryable() bool { return k != KindClientError }

// ClassifyStatus maps a non-2xx HTTP status code to a Kind.
// Cloudflare reports its own TLS handshake failures toward the origin as 525,
// so that status is grouped with connection-level TLS errors.
func ClassifyStatus(status int) Kind {
	switch {
	case status == 525:
		return KindTLSHandshake
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status >= 500 && status < 600:
		return KindServerError
	default:
		return KindClientError
	}
}

// ClassifyErr maps a transport-level error (from http.Client.Do) to a Kind.
// Context cancellation is not a failure and must be handled by the caller
// before classification; if it reaches here it is treated as a timeout.
func ClassifyErr(err error) Kind {
	if err == nil {
		return KindTransport
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	var recordErr tls.RecordHeaderError
	var certErr *tls.CertificateVerificationError
	var unknownAuthErr x509.UnknownAuthorityError
	var hostErr x509.HostnameError
	if errors.As(err, &recordErr) || errors.As(err, &certErr) ||
		errors.As(err, &unknownAuthErr) || errors.As(err, &hostErr) {
		return KindTLSHandshake
	}

	// url.Error from Do() wraps the dial/handshake error with only a message
	// in some paths, so fall back to substring checks.
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "tls") || strings.Contains(msg, "certificate") || strings.Contains(msg, "handshake") {
		return KindTLSHandshake
	}
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded") {
		return KindTimeout
	}

	return KindTransport
}
