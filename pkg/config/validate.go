package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Lxr713/AO3-Crawler/pkg/utils"
)

// Validate checks AppConfig fields and applies sensible defaults.
// Returns collected warnings and any fatal error.
// Modifies receiver in place to apply defaults.
func (c *AppConfig) Validate() (warnings []string, err error) {
	// BaseURL
	if c.BaseURL == "" {
		c.BaseURL = "https://archiveofourown.org"
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")

	// UserAgent: the archive serves challenge pages to clients without a
	// browser-like UA, so default to one.
	if c.UserAgent == "" {
		c.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
			"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	}

	// OutputDir
	if c.OutputDir == "" {
		warnings = append(warnings, "output_dir is empty, defaulting to './crawl_output'")
		c.OutputDir = "./crawl_output"
	}

	// Checkpoint files
	if c.CheckpointFile == "" {
		c.CheckpointFile = "batch_checkpoint.json"
	}
	if c.DiscoverCheckpointFile == "" {
		c.DiscoverCheckpointFile = "checkpoint.json"
	}
	if c.InputFile == "" {
		c.InputFile = c.DiscoverCheckpointFile
	}

	// MaxConcurrent: deliberately small; the target server is rate-limit
	// sensitive and politeness comes from this cap plus backoff.
	if c.MaxConcurrent <= 0 {
		warnings = append(warnings, "max_concurrent should be > 0, defaulting to 3")
		c.MaxConcurrent = 3
	}

	// MaxRetries
	if c.MaxRetries <= 0 {
		warnings = append(warnings, "max_retries should be > 0, defaulting to 5")
		c.MaxRetries = 5
	}

	// Retry delays
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = 1 * time.Second
	}
	if c.RetryMaxDelay <= 0 {
		c.RetryMaxDelay = 60 * time.Second
	}
	if c.RetryBaseDelay > c.RetryMaxDelay {
		warnings = append(warnings, fmt.Sprintf(
			"retry_base_delay (%v) > retry_max_delay (%v), using retry_max_delay for base",
			c.RetryBaseDelay, c.RetryMaxDelay))
		c.RetryBaseDelay = c.RetryMaxDelay
	}

	// Timeouts
	if c.ConnectionTimeout <= 0 {
		c.ConnectionTimeout = 10 * time.Second
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 30 * time.Second
	}

	// CheckpointInterval
	if c.CheckpointInterval <= 0 {
		warnings = append(warnings, "checkpoint_interval should be > 0, defaulting to 5")
		c.CheckpointInterval = 5
	}

	// Discover page range
	if c.StartPage <= 0 {
		c.StartPage = 1
	}
	if c.EndPage > 0 && c.EndPage < c.StartPage {
		return warnings, fmt.Errorf("%w: end_page (%d) < start_page (%d)",
			utils.ErrNoUnits, c.EndPage, c.StartPage)
	}

	c.validateHTTPClientSettings(&warnings)

	return warnings, nil
}

// validateHTTPClientSettings applies defaults to HTTP client settings.
func (c *AppConfig) validateHTTPClientSettings(warnings *[]string) {
	h := &c.HTTPClientSettings
	if h.MaxIdleConns <= 0 {
		h.MaxIdleConns = 100
	}
	// The pool's per-host cap must not be tighter than the concurrency
	// limiter, or the pool becomes a second, invisible bottleneck.
	if h.MaxIdleConnsPerHost < c.MaxConcurrent {
		if h.MaxIdleConnsPerHost > 0 {
			*warnings = append(*warnings, fmt.Sprintf(
				"max_idle_conns_per_host (%d) < max_concurrent (%d), raising to match",
				h.MaxIdleConnsPerHost, c.MaxConcurrent))
		}
		h.MaxIdleConnsPerHost = c.MaxConcurrent
	}
	if h.IdleConnTimeout <= 0 {
		h.IdleConnTimeout = 90 * time.Second
	}
	if h.TLSHandshakeTimeout <= 0 {
		h.TLSHandshakeTimeout = 10 * time.Second
	}
	if h.ExpectContinueTimeout <= 0 {
		h.ExpectContinueTimeout = 1 * time.Second
	}
	if h.DialerKeepAlive <= 0 {
		h.DialerKeepAlive = 30 * time.Second
	}
}
