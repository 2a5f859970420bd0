package failure

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeNetErr struct{ timeout bool }

func (e fakeNetErr) Error() string   { return "fake net error" }
func (e fakeNetErr) Timeout() bool   { return e.timeout }
func (e fakeNetErr) Temporary() bool { return false }

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   Kind
	}{
		{"cloudflare 525", 525, KindTLSHandshake},
		{"too many requests", http.StatusTooManyRequests, KindRateLimited},
		{"internal server error", http.StatusInternalServerError, KindServerError},
		{"service unavailable", http.StatusServiceUnavailable, KindServerError},
		{"bad gateway", http.StatusBadGateway, KindServerError},
		{"not found", http.StatusNotFound, KindClientError},
		{"forbidden", http.StatusForbidden, KindClientError},
		{"gone", http.StatusGone, KindClientError},
		{"redirect counts as client error", http.StatusFound, KindClientError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyStatus(tt.status))
		})
	}
}

func TestClassifyErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"deadline exceeded", context.DeadlineExceeded, KindTimeout},
		{"wrapped deadline", fmt.Errorf("do: %w", context.DeadlineExceeded), KindTimeout},
		{"net timeout", fakeNetErr{timeout: true}, KindTimeout},
		{"net non-timeout", fakeNetErr{timeout: false}, KindTransport},
		{"tls record header", tls.RecordHeaderError{Msg: "bad record"}, KindTLSHandshake},
		{"unknown authority", x509.UnknownAuthorityError{}, KindTLSHandshake},
		{"tls substring", errors.New("remote error: tls: internal error"), KindTLSHandshake},
		{"handshake substring", errors.New("EOF during handshake"), KindTLSHandshake},
		{"timeout substring", errors.New("dial tcp: i/o timeout"), KindTimeout},
		{"connection refused", errors.New("dial tcp 127.0.0.1:80: connect: connection refused"), KindTransport},
		{"nil error", nil, KindTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyErr(tt.err))
		})
	}
}

func TestRetryable(t *testing.T) {
	// Exactly one kind is terminal.
	kinds := []Kind{KindTimeout, KindTLSHandshake, KindRateLimited, KindServerError, KindClientError, KindTransport}
	for _, k := range kinds {
		assert.Equal(t, k != KindClientError, k.Retryable(), "kind %s", k)
	}
}
