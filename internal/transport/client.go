package transport

import (
	"net/http"
	"time"

	"github.com/gregjones/httpcache"
	"github.com/gregjones/httpcache/diskcache"
	"github.com/rs/zerolog"

	"github.com/mrushidany/scoop-pos-admin-sub001/internal/logger"
)

// Config holds common client configuration.
type Config struct {
	BaseURL  string
	Timeout  time.Duration
	Debug    bool
	CacheDir string
}

// DefaultConfig returns a default client configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL: "https://localhost:8080",
		Timeout: 30 * time.Second,
	}
}

// NewClient builds the authenticated HTTP client: the refreshing transport
// on the outside, request logging beneath it, and an RFC 7234 cache at the
// bottom so list-heavy GET endpoints with Cache-Control headers don't hit
// the network every time. The cache is disk-backed when CacheDir is set,
// in-memory otherwise.
func NewClient(cfg Config, tokens TokenSource, log zerolog.Logger) *http.Client {
	var cache httpcache.Cache
	if cfg.CacheDir != "" {
		cache = diskcache.New(cfg.CacheDir)
	} else {
		cache = httpcache.NewMemoryCache()
	}

	caching := httpcache.NewTransport(cache)
	caching.Transport = http.DefaultTransport

	var rt http.RoundTripper = caching
	if cfg.Debug {
		rt = logger.NewHTTPRequests(rt, log)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultConfig().Timeout
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: New(rt, tokens),
	}
}
