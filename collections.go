package strata

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// DataType defines the type of a collection property.
type DataType string

// Property data types.
const (
	DataTypeText   DataType = "text"
	DataTypeInt    DataType = "int"
	DataTypeNumber DataType = "number"
	DataTypeBool   DataType = "boolean"
	DataTypeDate   DataType = "date"
	DataTypeUUID   DataType = "uuid"
)

// Distance selects the vector distance metric.
type Distance string

// Distance metrics.
const (
	DistanceCosine Distance = "cosine"
	DistanceDot    Distance = "dot"
	DistanceL2     Distance = "l2-squared"
)

// PropertyInfo describes one collection property.
type PropertyInfo struct {
	Name     string   `json:"name"`
	DataType DataType `json:"dataType"`
	Indexed  bool     `json:"indexed"`
}

// HNSWConfig holds vector index parameters.
type HNSWConfig struct {
	M              int `json:"m,omitempty"`
	EFConstruction int `json:"efConstruction,omitempty"`
	EF             int `json:"ef,omitempty"`
}

// BM25Config holds keyword ranking parameters.
type BM25Config struct {
	K1 float64 `json:"k1,omitempty"`
	B  float64 `json:"b,omitempty"`
}

// MultiTenancyConfig enables tenant isolation on a collection.
type MultiTenancyConfig struct {
	Enabled          bool `json:"enabled"`
	AutoTenantCreate bool `json:"autoTenantCreate,omitempty"`
}

// CollectionInfo represents collection metadata as the server reports it.
type CollectionInfo struct {
	Name              string             `json:"name"`
	Properties        []PropertyInfo     `json:"properties"`
	VectorDimensions  int                `json:"vectorDimensions"`
	Distance          Distance           `json:"distance"`
	VectorIndex       HNSWConfig         `json:"vectorIndex"`
	BM25              BM25Config         `json:"bm25"`
	ReplicationFactor int                `json:"replicationFactor"`
	MultiTenancy      MultiTenancyConfig `json:"multiTenancy"`
	CreatedAt         int64              `json:"createdAt"`
}

// CollectionService manages collections.
type CollectionService struct {
	rest transport
	obs  *observer
}

// Create creates a new collection. A collection with the same name already
// existing surfaces ErrConflict.
func (s *CollectionService) Create(
	ctx context.Context, name string, opts ...CollectionOption,
) (_ CollectionInfo, err error) {
	start := time.Now()
	defer func() { s.obs.observe("collection.create", start, err) }()

	body := collectionBody(name, opts)
	var out CollectionInfo
	if err = s.rest.Do(ctx, http.MethodPost, "/v1/collections", nil, body, &out); err != nil {
		return CollectionInfo{}, fmt.Errorf("create collection: %w", err)
	}
	return out, nil
}

// Get retrieves collection metadata by name.
func (s *CollectionService) Get(ctx context.Context, name string) (_ CollectionInfo, err error) {
	start := time.Now()
	defer func() { s.obs.observe("collection.get", start, err) }()

	var out CollectionInfo
	if err = s.rest.Do(ctx, http.MethodGet, "/v1/collections/"+url.PathEscape(name), nil, nil, &out); err != nil {
		return CollectionInfo{}, fmt.Errorf("get collection: %w", err)
	}
	return out, nil
}

// Exists reports whether a collection with the given name exists.
func (s *CollectionService) Exists(ctx context.Context, name string) (_ bool, err error) {
	start := time.Now()
	defer func() { s.obs.observe("collection.exists", start, err) }()

	ok, err := s.rest.Exists(ctx, "/v1/collections/"+url.PathEscape(name), nil)
	if err != nil {
		return false, fmt.Errorf("collection exists: %w", err)
	}
	return ok, nil
}

// List returns all collections.
func (s *CollectionService) List(ctx context.Context) (_ []CollectionInfo, err error) {
	start := time.Now()
	defer func() { s.obs.observe("collection.list", start, err) }()

	var out struct {
		Collections []CollectionInfo `json:"collections"`
	}
	if err = s.rest.Do(ctx, http.MethodGet, "/v1/collections", nil, nil, &out); err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	return out.Collections, nil
}

// Update applies mutable configuration changes (vector index search
// parameters, BM25 ranking, replication factor) to an existing collection.
// Immutable settings (properties, dimensions, distance) are rejected by the
// server.
func (s *CollectionService) Update(
	ctx context.Context, name string, opts ...CollectionOption,
) (_ CollectionInfo, err error) {
	start := time.Now()
	defer func() { s.obs.observe("collection.update", start, err) }()

	body := collectionBody(name, opts)
	var out CollectionInfo
	if err = s.rest.Do(ctx, http.MethodPut, "/v1/collections/"+url.PathEscape(name), nil, body, &out); err != nil {
		return CollectionInfo{}, fmt.Errorf("update collection: %w", err)
	}
	return out, nil
}

// Delete removes a collection and all its objects.
func (s *CollectionService) Delete(ctx context.Context, name string) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("collection.delete", start, err) }()

	if err = s.rest.Do(ctx, http.MethodDelete, "/v1/collections/"+url.PathEscape(name), nil, nil, nil); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	return nil
}

func collectionBody(name string, opts []CollectionOption) CollectionInfo {
	cfg := &collectionConfig{}
	for _, o := range opts {
		o.applyCollection(cfg)
	}
	return CollectionInfo{
		Name:              name,
		Properties:        cfg.properties,
		VectorDimensions:  cfg.vectorDimensions,
		Distance:          cfg.distance,
		VectorIndex:       cfg.vectorIndex,
		BM25:              cfg.bm25,
		ReplicationFactor: cfg.replicationFactor,
		MultiTenancy:      cfg.multiTenancy,
	}
}
