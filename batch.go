package strata

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// BatchResult is the outcome of one object in a batch insert. A failed
// item never fails the whole batch; check Err per item.
type BatchResult struct {
	ID  string
	OK  bool
	Err error
}

// BatchDeleteSummary reports a delete-by-filter outcome.
type BatchDeleteSummary struct {
	Matched int `json:"matched"`
	Deleted int `json:"deleted"`
	Failed  int `json:"failed"`
}

// batchObjectsRequest is the wire shape of POST /v1/batch/objects.
type batchObjectsRequest struct {
	Objects []Object `json:"objects"`
}

// batchItemResult mirrors the server's per-item envelope.
type batchItemResult struct {
	ID     string `json:"id"`
	Status string `json:"status"` // "ok" | "error"
	Error  string `json:"error,omitempty"`
}

// batchDeleteRequest is the wire shape of DELETE /v1/batch/objects.
type batchDeleteRequest struct {
	Collection string           `json:"collection"`
	Filters    FilterExpression `json:"filters"`
}

// BatchService performs many-object operations in single requests.
type BatchService struct {
	rest         transport
	obs          *observer
	maxBatchSize int
	consistency  ConsistencyLevel
}

// InsertObjects creates or updates objects in batches. Inputs larger than
// the configured batch size are split client-side; results are returned in
// input order, one per object. Objects carry their collection in
// Object.Collection; missing IDs are assigned client-side so callers can
// correlate results.
func (s *BatchService) InsertObjects(
	ctx context.Context, objects []Object, opts ...RequestOption,
) (_ []BatchResult, err error) {
	start := time.Now()
	defer func() { s.obs.observe("batch.insert", start, err) }()

	for i := range objects {
		if objects[i].Collection == "" {
			return nil, fmt.Errorf("batch insert: object %d: collection required: %w", i, ErrInvalidInput)
		}
		if objects[i].ID == "" {
			objects[i].ID = uuid.NewString()
		}
	}

	q := s.query(opts)
	results := make([]BatchResult, 0, len(objects))
	for chunkStart := 0; chunkStart < len(objects); chunkStart += s.maxBatchSize {
		end := min(chunkStart+s.maxBatchSize, len(objects))
		chunk, err := s.insertChunk(ctx, objects[chunkStart:end], q)
		if err != nil {
			return nil, fmt.Errorf("batch insert: %w", err)
		}
		results = append(results, chunk...)
	}
	return results, nil
}

func (s *BatchService) insertChunk(
	ctx context.Context, objects []Object, q url.Values,
) ([]BatchResult, error) {
	var out struct {
		Results []batchItemResult `json:"results"`
	}
	if err := s.rest.Do(ctx, http.MethodPost, "/v1/batch/objects", q,
		batchObjectsRequest{Objects: objects}, &out); err != nil {
		return nil, err
	}

	results := make([]BatchResult, len(out.Results))
	for i, r := range out.Results {
		results[i] = BatchResult{ID: r.ID, OK: r.Status == "ok"}
		if r.Status != "ok" {
			results[i].Err = fmt.Errorf("batch item %s: %s", r.ID, r.Error)
		}
	}
	return results, nil
}

// DeleteObjects removes all objects in a collection matching the filter and
// returns a match/deleted/failed summary.
func (s *BatchService) DeleteObjects(
	ctx context.Context, collection string, filters FilterExpression, opts ...RequestOption,
) (_ BatchDeleteSummary, err error) {
	start := time.Now()
	defer func() { s.obs.observe("batch.delete", start, err) }()

	var out BatchDeleteSummary
	if err = s.rest.Do(ctx, http.MethodDelete, "/v1/batch/objects", s.query(opts),
		batchDeleteRequest{Collection: collection, Filters: filters}, &out); err != nil {
		return BatchDeleteSummary{}, fmt.Errorf("batch delete: %w", err)
	}
	return out, nil
}

func (s *BatchService) query(opts []RequestOption) url.Values {
	o := applyRequestOptions(requestOptions{consistency: s.consistency}, opts)
	q := url.Values{}
	if o.tenant != "" {
		q.Set("tenant", o.tenant)
	}
	if o.consistency != "" {
		q.Set("consistency_level", string(o.consistency))
	}
	return q
}
