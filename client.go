package strata

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/kailas-cloud/strata-go/internal/transport/rest"
)

// Default knobs for operation handles and batching.
const (
	defaultBackupWaitTimeout      = 5 * time.Second
	defaultReplicationWaitTimeout = 90 * time.Second
	defaultMaxBatchSize           = 100
)

// transport is the narrow interface the services need from the REST layer.
// Satisfied by *rest.Client; substituted in tests.
type transport interface {
	Do(ctx context.Context, method, path string, query url.Values, body, out any) error
	Exists(ctx context.Context, path string, query url.Values) (bool, error)
}

// Client is the strata SDK entry point.
type Client struct {
	rest transport
	obs  *observer
	cfg  *clientConfig
}

// New creates a Strata client for the given server endpoint, e.g.
// "http://localhost:8080". No connection is established; use Ready to
// probe the server.
func New(endpoint string, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		pollInterval:       250 * time.Millisecond,
		backupTimeout:      defaultBackupWaitTimeout,
		replicationTimeout: defaultReplicationWaitTimeout,
		maxBatchSize:       defaultMaxBatchSize,
		consistency:        ConsistencyQuorum,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	rc, err := rest.New(rest.Config{
		BaseURL:    endpoint,
		APIKey:     cfg.apiKey,
		Headers:    cfg.headers,
		HTTPClient: cfg.httpClient,
		Logger:     cfg.wireLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("strata: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	return &Client{rest: rc, obs: obs, cfg: cfg}, nil
}

// Ready probes the server's readiness endpoint.
func (c *Client) Ready(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ready", start, err) }()

	if err = c.rest.Do(ctx, http.MethodGet, "/v1/.well-known/ready", nil, nil, nil); err != nil {
		return fmt.Errorf("ready: %w", err)
	}
	return nil
}

// Live probes the server's liveness endpoint.
func (c *Client) Live(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("live", start, err) }()

	if err = c.rest.Do(ctx, http.MethodGet, "/v1/.well-known/live", nil, nil, nil); err != nil {
		return fmt.Errorf("live: %w", err)
	}
	return nil
}

// Meta describes the connected server.
type Meta struct {
	Version  string         `json:"version"`
	Hostname string         `json:"hostname"`
	Modules  map[string]any `json:"modules"`
}

// GetMeta returns server version and module information.
func (c *Client) GetMeta(ctx context.Context) (_ Meta, err error) {
	start := time.Now()
	defer func() { c.obs.observe("meta", start, err) }()

	var m Meta
	if err = c.rest.Do(ctx, http.MethodGet, "/v1/meta", nil, nil, &m); err != nil {
		return Meta{}, fmt.Errorf("get meta: %w", err)
	}
	return m, nil
}

// Collections returns the collection management service.
func (c *Client) Collections() *CollectionService {
	return &CollectionService{rest: c.rest, obs: c.obs}
}

// Objects returns the object service for a given collection.
func (c *Client) Objects(collection string) *ObjectService {
	return &ObjectService{
		collection:  collection,
		rest:        c.rest,
		obs:         c.obs,
		embedder:    c.cfg.embedder,
		consistency: c.cfg.consistency,
	}
}

// Search returns the search service for a given collection.
func (c *Client) Search(collection string) *SearchService {
	return &SearchService{
		collection: collection,
		rest:       c.rest,
		obs:        c.obs,
		embedder:   c.cfg.embedder,
	}
}

// Aggregate returns the aggregation service for a given collection.
func (c *Client) Aggregate(collection string) *AggregateService {
	return &AggregateService{collection: collection, rest: c.rest, obs: c.obs}
}

// Batch returns the batch operation service.
func (c *Client) Batch() *BatchService {
	return &BatchService{
		rest:         c.rest,
		obs:          c.obs,
		maxBatchSize: c.cfg.maxBatchSize,
		consistency:  c.cfg.consistency,
	}
}

// Tenants returns the tenant service for a multi-tenant collection.
func (c *Client) Tenants(collection string) *TenantService {
	return &TenantService{collection: collection, rest: c.rest, obs: c.obs}
}

// Backups returns the backup service.
func (c *Client) Backups() *BackupService {
	return &BackupService{
		rest:         c.rest,
		obs:          c.obs,
		pollInterval: c.cfg.pollInterval,
		waitTimeout:  c.cfg.backupTimeout,
	}
}

// Replication returns the shard replication service.
func (c *Client) Replication() *ReplicationService {
	return &ReplicationService{
		rest:         c.rest,
		obs:          c.obs,
		pollInterval: c.cfg.pollInterval,
		waitTimeout:  c.cfg.replicationTimeout,
	}
}

// Roles returns the role management service.
func (c *Client) Roles() *RoleService {
	return &RoleService{rest: c.rest, obs: c.obs}
}

// Users returns the user management service.
func (c *Client) Users() *UserService {
	return &UserService{rest: c.rest, obs: c.obs}
}

// Aliases returns the collection alias service.
func (c *Client) Aliases() *AliasService {
	return &AliasService{rest: c.rest, obs: c.obs}
}
