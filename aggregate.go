package strata

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// AggregateRequest describes an aggregation over a collection.
type AggregateRequest struct {
	Properties []string          `json:"properties,omitempty"` // numeric properties to aggregate
	Filters    *FilterExpression `json:"filters,omitempty"`
	GroupBy    string            `json:"groupBy,omitempty"`
	Tenant     string            `json:"-"`
}

// PropertyAggregation holds numeric aggregations for one property.
type PropertyAggregation struct {
	Count int     `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
	Sum   float64 `json:"sum"`
}

// AggregateGroup is one group-by bucket.
type AggregateGroup struct {
	Value      any                            `json:"value"`
	Count      int                            `json:"count"`
	Properties map[string]PropertyAggregation `json:"properties,omitempty"`
}

// AggregateResult is the outcome of an aggregation request.
type AggregateResult struct {
	Count      int                            `json:"count"`
	Properties map[string]PropertyAggregation `json:"properties,omitempty"`
	Groups     []AggregateGroup               `json:"groups,omitempty"`
}

// AggregateService computes server-side aggregations for one collection.
type AggregateService struct {
	collection string
	rest       transport
	obs        *observer
}

// Count returns the number of objects matching the optional filter.
func (s *AggregateService) Count(
	ctx context.Context, filters *FilterExpression, opts ...RequestOption,
) (_ int, err error) {
	start := time.Now()
	defer func() { s.obs.observe("aggregate.count", start, err) }()

	o := applyRequestOptions(requestOptions{}, opts)
	res, err := s.do(ctx, AggregateRequest{Filters: filters, Tenant: o.tenant})
	if err != nil {
		return 0, fmt.Errorf("aggregate count: %w", err)
	}
	return res.Count, nil
}

// Over runs a full aggregation request: object count plus numeric
// aggregations for the named properties, optionally grouped.
func (s *AggregateService) Over(
	ctx context.Context, req AggregateRequest,
) (_ AggregateResult, err error) {
	start := time.Now()
	defer func() { s.obs.observe("aggregate.over", start, err) }()

	res, err := s.do(ctx, req)
	if err != nil {
		return AggregateResult{}, fmt.Errorf("aggregate: %w", err)
	}
	return res, nil
}

func (s *AggregateService) do(ctx context.Context, req AggregateRequest) (AggregateResult, error) {
	q := url.Values{}
	if req.Tenant != "" {
		q.Set("tenant", req.Tenant)
	}

	var out AggregateResult
	path := "/v1/collections/" + url.PathEscape(s.collection) + "/aggregate"
	if err := s.rest.Do(ctx, http.MethodPost, path, q, req, &out); err != nil {
		return AggregateResult{}, err
	}
	return out, nil
}
