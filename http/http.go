// Package http implements grabfile.URLProber and a single-stream
// grabfile.TransferTool on top of net/http.
package http

import (
	"net/http"
	"time"
)

// DefaultProbeTimeout bounds each metadata request.
const DefaultProbeTimeout = 10 * time.Second

// DefaultUserAgent is sent when the caller's headers carry none.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

type config struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
}

// Option configures a Prober or StreamTool.
type Option func(*config)

// WithClient sets the HTTP client. Timeouts set through WithTimeout are
// applied per request and do not modify the client.
func WithClient(c *http.Client) Option {
	return func(cfg *config) {
		cfg.client = c
	}
}

// WithTimeout sets the per-request timeout for probes.
// Defaults to DefaultProbeTimeout (10s) if not specified.
func WithTimeout(d time.Duration) Option {
	return func(cfg *config) {
		cfg.timeout = d
	}
}

// WithUserAgent sets the fallback User-Agent header.
func WithUserAgent(ua string) Option {
	return func(cfg *config) {
		cfg.userAgent = ua
	}
}

func newConfig(opts []Option) *config {
	cfg := &config{
		timeout:   DefaultProbeTimeout,
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.client == nil {
		cfg.client = &http.Client{}
	}
	return cfg
}

// setHeaders copies captured session headers onto req.
func (cfg *config) setHeaders(req *http.Request, headers map[string]string) {
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if req.Header.Get("User-Agent") == "" && cfg.userAgent != "" {
		req.Header.Set("User-Agent", cfg.userAgent)
	}
}
