package strata

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Alias is an alternate name routing to a collection. Repointing an alias
// is the idiomatic way to swap a collection under readers atomically.
type Alias struct {
	Name       string `json:"name"`
	Collection string `json:"collection"`
}

// AliasService manages collection aliases.
type AliasService struct {
	rest transport
	obs  *observer
}

// Create creates an alias pointing at a collection. An alias name that is
// already taken (by an alias or a collection) surfaces ErrConflict.
func (s *AliasService) Create(ctx context.Context, alias, collection string) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("alias.create", start, err) }()

	body := Alias{Name: alias, Collection: collection}
	if err = s.rest.Do(ctx, http.MethodPost, "/v1/aliases", nil, body, nil); err != nil {
		return fmt.Errorf("create alias: %w", err)
	}
	return nil
}

// Get resolves an alias to its target collection.
func (s *AliasService) Get(ctx context.Context, alias string) (_ Alias, err error) {
	start := time.Now()
	defer func() { s.obs.observe("alias.get", start, err) }()

	var out Alias
	if err = s.rest.Do(ctx, http.MethodGet, "/v1/aliases/"+url.PathEscape(alias), nil, nil, &out); err != nil {
		return Alias{}, fmt.Errorf("get alias: %w", err)
	}
	return out, nil
}

// List returns aliases, optionally restricted to one target collection.
func (s *AliasService) List(ctx context.Context, collection string) (_ []Alias, err error) {
	start := time.Now()
	defer func() { s.obs.observe("alias.list", start, err) }()

	q := url.Values{}
	if collection != "" {
		q.Set("collection", collection)
	}
	var out struct {
		Aliases []Alias `json:"aliases"`
	}
	if err = s.rest.Do(ctx, http.MethodGet, "/v1/aliases", q, nil, &out); err != nil {
		return nil, fmt.Errorf("list aliases: %w", err)
	}
	return out.Aliases, nil
}

// Update repoints an alias at a different collection.
func (s *AliasService) Update(ctx context.Context, alias, collection string) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("alias.update", start, err) }()

	body := Alias{Name: alias, Collection: collection}
	if err = s.rest.Do(ctx, http.MethodPut, "/v1/aliases/"+url.PathEscape(alias), nil, body, nil); err != nil {
		return fmt.Errorf("update alias: %w", err)
	}
	return nil
}

// Delete removes an alias. The target collection is untouched.
func (s *AliasService) Delete(ctx context.Context, alias string) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("alias.delete", start, err) }()

	if err = s.rest.Do(ctx, http.MethodDelete, "/v1/aliases/"+url.PathEscape(alias), nil, nil, nil); err != nil {
		return fmt.Errorf("delete alias: %w", err)
	}
	return nil
}
