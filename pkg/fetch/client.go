package fetch

import (
	"net"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/Lxr713/AO3-Crawler/pkg/config"
)

// NewClient creates the shared HTTP client from configuration. The overall
// request timeout doubles as the read timeout; the dialer carries the
// connect timeout.
func NewClient(cfg *config.AppConfig, log *logrus.Entry) *http.Client {
	dialer := &net.Dialer{
		Timeout:   cfg.ConnectionTimeout,
		KeepAlive: cfg.HTTPClientSettings.DialerKeepAlive,
	}

	transport := &http.Transport{
		Proxy:                  http.ProxyFromEnvironment,
		DialContext:            dialer.DialContext,
		ForceAttemptHTTP2:      true,
		MaxIdleConns:           cfg.HTTPClientSettings.MaxIdleConns,
		MaxIdleConnsPerHost:    cfg.HTTPClientSettings.MaxIdleConnsPerHost,
		IdleConnTimeout:        cfg.HTTPClientSettings.IdleConnTimeout,
		TLSHandshakeTimeout:    cfg.HTTPClientSettings.TLSHandshakeTimeout,
		ExpectContinueTimeout:  cfg.HTTPClientSettings.ExpectContinueTimeout,
		MaxResponseHeaderBytes: 1 << 20,
	}
	if cfg.HTTPClientSettings.ForceAttemptHTTP2 != nil {
		transport.ForceAttemptHTTP2 = *cfg.HTTPClientSettings.ForceAttemptHTTP2
	}

	log.WithFields(logrus.Fields{
		"read_timeout":    cfg.ReadTimeout,
		"connect_timeout": cfg.ConnectionTimeout,
		"idle_per_host":   cfg.HTTPClientSettings.MaxIdleConnsPerHost,
	}).Debug("HTTP client initialized")

	return &http.Client{
		Timeout:   cfg.ReadTimeout,
		Transport: transport,
	}
}
