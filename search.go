package strata

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// SearchMode controls the search algorithm.
type SearchMode string

// Search mode constants.
const (
	ModeVector SearchMode = "vector"
	ModeHybrid SearchMode = "hybrid"
	ModeBM25   SearchMode = "bm25"
)

// SearchOptions tunes a search request. The zero value is usable.
type SearchOptions struct {
	Limit         int
	Offset        int
	Filters       *FilterExpression
	Tenant        string
	Alpha         *float64 // hybrid only: 0 = pure keyword, 1 = pure vector, nil = server default (0.5)
	Properties    []string // bm25/hybrid: properties to rank on (default: all text)
	IncludeVector bool
}

// Alpha builds the pointer SearchOptions.Alpha takes, so an explicit 0
// (pure keyword) stays distinguishable from "not set".
func Alpha(v float64) *float64 { return &v }

// SearchHit is a single search result.
type SearchHit struct {
	ID         string         `json:"id"`
	Score      float64        `json:"score"`
	Properties map[string]any `json:"properties"`
	Vector     []float32      `json:"vector,omitempty"`
}

// searchRequest is the wire shape of POST /v1/collections/{c}/search.
type searchRequest struct {
	Mode          SearchMode        `json:"mode"`
	Vector        []float32         `json:"vector,omitempty"`
	Query         string            `json:"query,omitempty"`
	Alpha         *float64          `json:"alpha,omitempty"`
	Limit         int               `json:"limit,omitempty"`
	Offset        int               `json:"offset,omitempty"`
	Filters       *FilterExpression `json:"filters,omitempty"`
	Properties    []string          `json:"properties,omitempty"`
	IncludeVector bool              `json:"includeVector,omitempty"`
}

// SearchService runs queries against a single collection.
type SearchService struct {
	collection string
	rest       transport
	obs        *observer
	embedder   Embedder
}

// NearVector returns the objects closest to the given vector.
func (s *SearchService) NearVector(
	ctx context.Context, vector []float32, opts *SearchOptions,
) (_ []SearchHit, err error) {
	start := time.Now()
	defer func() { s.obs.observe("search.near_vector", start, err) }()

	req := requestFromOptions(ModeVector, opts)
	req.Vector = vector
	hits, err := s.do(ctx, req, opts)
	if err != nil {
		return nil, fmt.Errorf("near vector search: %w", err)
	}
	return hits, nil
}

// NearText embeds the query text with the client-side vectorizer and runs
// a vector search. Requires WithEmbedder; otherwise ErrVectorizerNotConfigured.
func (s *SearchService) NearText(
	ctx context.Context, query string, opts *SearchOptions,
) (_ []SearchHit, err error) {
	start := time.Now()
	defer func() { s.obs.observe("search.near_text", start, err) }()

	if s.embedder == nil {
		return nil, fmt.Errorf("near text search: %w", ErrVectorizerNotConfigured)
	}
	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("near text search: embed query: %w", err)
	}

	req := requestFromOptions(ModeVector, opts)
	req.Vector = vector
	hits, err := s.do(ctx, req, opts)
	if err != nil {
		return nil, fmt.Errorf("near text search: %w", err)
	}
	return hits, nil
}

// Hybrid fuses keyword and vector rankings. Alpha in SearchOptions weights
// the fusion: 0 is pure keyword, 1 is pure vector, and leaving it nil lets
// the server apply its default (0.5). The vector may be nil when the
// collection has a server-side vectorizer for the query text.
func (s *SearchService) Hybrid(
	ctx context.Context, query string, vector []float32, opts *SearchOptions,
) (_ []SearchHit, err error) {
	start := time.Now()
	defer func() { s.obs.observe("search.hybrid", start, err) }()

	req := requestFromOptions(ModeHybrid, opts)
	req.Query = query
	req.Vector = vector
	hits, err := s.do(ctx, req, opts)
	if err != nil {
		return nil, fmt.Errorf("hybrid search: %w", err)
	}
	return hits, nil
}

// BM25 runs a pure keyword search.
func (s *SearchService) BM25(
	ctx context.Context, query string, opts *SearchOptions,
) (_ []SearchHit, err error) {
	start := time.Now()
	defer func() { s.obs.observe("search.bm25", start, err) }()

	req := requestFromOptions(ModeBM25, opts)
	req.Query = query
	hits, err := s.do(ctx, req, opts)
	if err != nil {
		return nil, fmt.Errorf("bm25 search: %w", err)
	}
	return hits, nil
}

func (s *SearchService) do(
	ctx context.Context, req searchRequest, opts *SearchOptions,
) ([]SearchHit, error) {
	q := url.Values{}
	if opts != nil && opts.Tenant != "" {
		q.Set("tenant", opts.Tenant)
	}

	var out struct {
		Hits []SearchHit `json:"hits"`
	}
	path := "/v1/collections/" + url.PathEscape(s.collection) + "/search"
	if err := s.rest.Do(ctx, http.MethodPost, path, q, req, &out); err != nil {
		return nil, err
	}
	return out.Hits, nil
}

func requestFromOptions(mode SearchMode, opts *SearchOptions) searchRequest {
	req := searchRequest{Mode: mode}
	if opts == nil {
		return req
	}
	req.Limit = opts.Limit
	req.Offset = opts.Offset
	req.Filters = opts.Filters
	req.Alpha = opts.Alpha
	req.Properties = opts.Properties
	req.IncludeVector = opts.IncludeVector
	return req
}
