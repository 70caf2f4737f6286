package strata

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Object is one record in a collection: a property map plus an optional
// vector. IDs are UUIDs; a missing ID is generated client-side on insert.
type Object struct {
	ID         string         `json:"id,omitempty"`
	Collection string         `json:"collection,omitempty"`
	Properties map[string]any `json:"properties"`
	Vector     []float32      `json:"vector,omitempty"`
	Tenant     string         `json:"tenant,omitempty"`
	CreatedAt  int64          `json:"createdAt,omitempty"`
	UpdatedAt  int64          `json:"updatedAt,omitempty"`
}

// ObjectPage is one page of a cursor-based object listing.
type ObjectPage struct {
	Objects    []Object `json:"objects"`
	NextCursor string   `json:"nextCursor"`
}

// ObjectService manages objects within a single collection.
type ObjectService struct {
	collection  string
	rest        transport
	obs         *observer
	embedder    Embedder
	consistency ConsistencyLevel
}

func (s *ObjectService) basePath() string {
	return "/v1/collections/" + url.PathEscape(s.collection) + "/objects"
}

func (s *ObjectService) query(opts []RequestOption) url.Values {
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

// Insert creates a new object. A missing ID is assigned client-side; a
// malformed ID is rejected before any request is made. An existing ID
// surfaces ErrConflict.
func (s *ObjectService) Insert(
	ctx context.Context, obj Object, opts ...RequestOption,
) (_ Object, err error) {
	start := time.Now()
	defer func() { s.obs.observe("object.insert", start, err) }()

	if obj.ID == "" {
		obj.ID = uuid.NewString()
	} else if _, err = uuid.Parse(obj.ID); err != nil {
		return Object{}, fmt.Errorf("insert object: invalid id %q: %w", obj.ID, ErrInvalidInput)
	}
	obj.Collection = s.collection

	var out Object
	if err = s.rest.Do(ctx, http.MethodPost, s.basePath(), s.query(opts), obj, &out); err != nil {
		return Object{}, fmt.Errorf("insert object: %w", err)
	}
	return out, nil
}

// Get retrieves an object by ID.
func (s *ObjectService) Get(
	ctx context.Context, id string, opts ...RequestOption,
) (_ Object, err error) {
	start := time.Now()
	defer func() { s.obs.observe("object.get", start, err) }()

	var out Object
	if err = s.rest.Do(ctx, http.MethodGet, s.basePath()+"/"+url.PathEscape(id), s.query(opts), nil, &out); err != nil {
		return Object{}, fmt.Errorf("get object: %w", err)
	}
	return out, nil
}

// Exists reports whether an object with the given ID exists.
func (s *ObjectService) Exists(
	ctx context.Context, id string, opts ...RequestOption,
) (_ bool, err error) {
	start := time.Now()
	defer func() { s.obs.observe("object.exists", start, err) }()

	ok, err := s.rest.Exists(ctx, s.basePath()+"/"+url.PathEscape(id), s.query(opts))
	if err != nil {
		return false, fmt.Errorf("object exists: %w", err)
	}
	return ok, nil
}

// Replace overwrites an object's properties and vector entirely.
func (s *ObjectService) Replace(
	ctx context.Context, obj Object, opts ...RequestOption,
) (_ Object, err error) {
	start := time.Now()
	defer func() { s.obs.observe("object.replace", start, err) }()

	if obj.ID == "" {
		return Object{}, fmt.Errorf("replace object: id required: %w", ErrInvalidInput)
	}
	obj.Collection = s.collection

	var out Object
	if err = s.rest.Do(ctx, http.MethodPut, s.basePath()+"/"+url.PathEscape(obj.ID), s.query(opts), obj, &out); err != nil {
		return Object{}, fmt.Errorf("replace object: %w", err)
	}
	return out, nil
}

// Merge applies a partial update: provided properties are merged into the
// stored object, a provided vector replaces the stored one.
func (s *ObjectService) Merge(
	ctx context.Context, obj Object, opts ...RequestOption,
) (_ Object, err error) {
	start := time.Now()
	defer func() { s.obs.observe("object.merge", start, err) }()

	if obj.ID == "" {
		return Object{}, fmt.Errorf("merge object: id required: %w", ErrInvalidInput)
	}
	obj.Collection = s.collection

	var out Object
	if err = s.rest.Do(ctx, http.MethodPatch, s.basePath()+"/"+url.PathEscape(obj.ID), s.query(opts), obj, &out); err != nil {
		return Object{}, fmt.Errorf("merge object: %w", err)
	}
	return out, nil
}

// Delete removes an object by ID.
func (s *ObjectService) Delete(
	ctx context.Context, id string, opts ...RequestOption,
) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("object.delete", start, err) }()

	if err = s.rest.Do(ctx, http.MethodDelete, s.basePath()+"/"+url.PathEscape(id), s.query(opts), nil, nil); err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// List returns a page of objects ordered by ID. Pass the previous page's
// NextCursor to continue; an empty NextCursor means end of listing.
func (s *ObjectService) List(
	ctx context.Context, cursor string, limit int, opts ...RequestOption,
) (_ ObjectPage, err error) {
	start := time.Now()
	defer func() { s.obs.observe("object.list", start, err) }()

	q := s.query(opts)
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var out ObjectPage
	if err = s.rest.Do(ctx, http.MethodGet, s.basePath(), q, nil, &out); err != nil {
		return ObjectPage{}, fmt.Errorf("list objects: %w", err)
	}
	return out, nil
}

// Count returns the number of objects in the collection.
func (s *ObjectService) Count(ctx context.Context, opts ...RequestOption) (_ int, err error) {
	start := time.Now()
	defer func() { s.obs.observe("object.count", start, err) }()

	var out struct {
		Count int `json:"count"`
	}
	if err = s.rest.Do(ctx, http.MethodGet, s.basePath()+"/count", s.query(opts), nil, &out); err != nil {
		return 0, fmt.Errorf("count objects: %w", err)
	}
	return out.Count, nil
}
