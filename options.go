package strata

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Embedder computes a vector for a piece of text. Used by NearText search
// and by object insertion when auto-vectorization is enabled.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	apiKey     string
	headers    map[string]string
	httpClient *http.Client

	embedder Embedder

	pollInterval       time.Duration
	backupTimeout      time.Duration
	replicationTimeout time.Duration
	maxBatchSize       int
	consistency        ConsistencyLevel

	logger     *slog.Logger
	wireLogger *zap.Logger
	metricsReg prometheus.Registerer
}

// WithAPIKey sets the bearer token sent with every request.
func WithAPIKey(key string) Option {
	return optionFunc(func(c *clientConfig) {
		c.apiKey = key
	})
}

// WithHeader adds a static header to every request.
func WithHeader(key, value string) Option {
	return optionFunc(func(c *clientConfig) {
		if c.headers == nil {
			c.headers = make(map[string]string)
		}
		c.headers[key] = value
	})
}

// WithHTTPClient replaces the default HTTP client (30s timeout).
func WithHTTPClient(hc *http.Client) Option {
	return optionFunc(func(c *clientConfig) {
		c.httpClient = hc
	})
}

// WithEmbedder sets the client-side vectorizer used by NearText search and
// auto-vectorized inserts. Collections with a server-side vectorizer do not
// need one.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithPollInterval sets the status polling interval for operation handles.
// Default: 250ms.
func WithPollInterval(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.pollInterval = d
	})
}

// WithBackupWaitTimeout sets the default Wait deadline for backup and
// restore operations. Default: 5s.
func WithBackupWaitTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.backupTimeout = d
	})
}

// WithReplicationWaitTimeout sets the default Wait deadline for replication
// operations. Default: 90s.
func WithReplicationWaitTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.replicationTimeout = d
	})
}

// WithMaxBatchSize sets the number of objects sent per batch request.
// Larger inputs are split client-side. Non-positive sizes are ignored.
// Default: 100.
func WithMaxBatchSize(size int) Option {
	return optionFunc(func(c *clientConfig) {
		if size > 0 {
			c.maxBatchSize = size
		}
	})
}

// WithConsistency sets the default write consistency level.
func WithConsistency(level ConsistencyLevel) Option {
	return optionFunc(func(c *clientConfig) {
		c.consistency = level
	})
}

// WithLogger enables structured logging for client operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithWireLogger enables request-level debug logging in the HTTP transport.
func WithWireLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.wireLogger = l
	})
}

// WithPrometheus registers client metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
