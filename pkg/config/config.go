package config

import "time"

// AppConfig holds the global application configuration, loaded from YAML.
type AppConfig struct {
	// Target endpoints
	BaseURL   string `yaml:"base_url"`             // e.g. https://archiveofourown.org
	SearchURL string `yaml:"search_url,omitempty"` // full search URL for the discover phase
	StartPage int    `yaml:"start_page,omitempty"` // discover phase: first search page
	EndPage   int    `yaml:"end_page,omitempty"`   // discover phase: last search page (inclusive)
	UserAgent string `yaml:"user_agent,omitempty"`

	// Filesystem layout
	OutputDir              string `yaml:"output_dir"`
	CheckpointFile         string `yaml:"checkpoint_file,omitempty"`          // batch phase progress
	DiscoverCheckpointFile string `yaml:"discover_checkpoint_file,omitempty"` // discover phase progress
	InputFile              string `yaml:"input_file,omitempty"`               // work id list: text file or discover checkpoint

	// Orchestration knobs
	MaxConcurrent      int           `yaml:"max_concurrent,omitempty"`      // in-flight fetch ceiling
	MaxRetries         int           `yaml:"max_retries,omitempty"`         // attempts per unit
	RetryBaseDelay     time.Duration `yaml:"retry_base_delay,omitempty"`    // backoff curve base
	RetryMaxDelay      time.Duration `yaml:"retry_max_delay,omitempty"`     // backoff ceiling
	ConnectionTimeout  time.Duration `yaml:"connection_timeout,omitempty"`  // dial timeout
	ReadTimeout        time.Duration `yaml:"read_timeout,omitempty"`        // per-request overall timeout
	CheckpointInterval int           `yaml:"checkpoint_interval,omitempty"` // persist every N terminal outcomes

	HTTPClientSettings HTTPClientConfig `yaml:"http_client_settings,omitempty"`
}

// HTTPClientConfig holds settings for the shared HTTP client
type HTTPClientConfig struct {
	MaxIdleConns          int           `yaml:"max_idle_conns,omitempty"`
	MaxIdleConnsPerHost   int           `yaml:"max_idle_conns_per_host,omitempty"`
	IdleConnTimeout       time.Duration `yaml:"idle_conn_timeout,omitempty"`
	TLSHandshakeTimeout   time.Duration `yaml:"tls_handshake_timeout,omitempty"`
	ExpectContinueTimeout time.Duration `yaml:"expect_continue_timeout,omitempty"`
	ForceAttemptHTTP2     *bool         `yaml:"force_attempt_http2,omitempty"` // nil=default, true=force, false=disable
	DialerKeepAlive       time.Duration `yaml:"dialer_keep_alive,omitempty"`
}

// WorkURL builds the fetch URL for a single work.
func (c *AppConfig) WorkURL(workID string) string {
	return c.BaseURL + "/works/" + workID + "?view_full_work=true"
}
