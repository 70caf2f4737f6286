package strata

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// TenantStatus is the activity state of a tenant's shard.
type TenantStatus string

// Tenant status constants. HOT tenants are active and queryable; COLD
// tenants are offloaded and reject reads and writes until reactivated.
const (
	TenantHot  TenantStatus = "HOT"
	TenantCold TenantStatus = "COLD"
)

// Tenant is one tenant of a multi-tenant collection.
type Tenant struct {
	Name   string       `json:"name"`
	Status TenantStatus `json:"status,omitempty"`
}

// TenantService manages tenants of a single multi-tenant collection.
type TenantService struct {
	collection string
	rest       transport
	obs        *observer
}

func (s *TenantService) basePath() string {
	return "/v1/collections/" + url.PathEscape(s.collection) + "/tenants"
}

// Create adds tenants to the collection. New tenants start HOT.
func (s *TenantService) Create(ctx context.Context, names ...string) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("tenant.create", start, err) }()

	tenants := make([]Tenant, len(names))
	for i, n := range names {
		tenants[i] = Tenant{Name: n, Status: TenantHot}
	}
	if err = s.rest.Do(ctx, http.MethodPost, s.basePath(), nil, tenants, nil); err != nil {
		return fmt.Errorf("create tenants: %w", err)
	}
	return nil
}

// Get retrieves one tenant by name.
func (s *TenantService) Get(ctx context.Context, name string) (_ Tenant, err error) {
	start := time.Now()
	defer func() { s.obs.observe("tenant.get", start, err) }()

	var out Tenant
	if err = s.rest.Do(ctx, http.MethodGet, s.basePath()+"/"+url.PathEscape(name), nil, nil, &out); err != nil {
		return Tenant{}, fmt.Errorf("get tenant: %w", err)
	}
	return out, nil
}

// Exists reports whether the tenant exists.
func (s *TenantService) Exists(ctx context.Context, name string) (_ bool, err error) {
	start := time.Now()
	defer func() { s.obs.observe("tenant.exists", start, err) }()

	ok, err := s.rest.Exists(ctx, s.basePath()+"/"+url.PathEscape(name), nil)
	if err != nil {
		return false, fmt.Errorf("tenant exists: %w", err)
	}
	return ok, nil
}

// List returns all tenants of the collection.
func (s *TenantService) List(ctx context.Context) (_ []Tenant, err error) {
	start := time.Now()
	defer func() { s.obs.observe("tenant.list", start, err) }()

	var out struct {
		Tenants []Tenant `json:"tenants"`
	}
	if err = s.rest.Do(ctx, http.MethodGet, s.basePath(), nil, nil, &out); err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	return out.Tenants, nil
}

// Delete removes tenants and their objects.
func (s *TenantService) Delete(ctx context.Context, names ...string) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("tenant.delete", start, err) }()

	if err = s.rest.Do(ctx, http.MethodDelete, s.basePath(), nil, names, nil); err != nil {
		return fmt.Errorf("delete tenants: %w", err)
	}
	return nil
}

// Activate marks tenants HOT, loading their shards back into memory.
func (s *TenantService) Activate(ctx context.Context, names ...string) error {
	return s.setStatus(ctx, TenantHot, names)
}

// Deactivate marks tenants COLD, releasing their shard resources.
func (s *TenantService) Deactivate(ctx context.Context, names ...string) error {
	return s.setStatus(ctx, TenantCold, names)
}

func (s *TenantService) setStatus(
	ctx context.Context, status TenantStatus, names []string,
) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("tenant.set_status", start, err) }()

	tenants := make([]Tenant, len(names))
	for i, n := range names {
		tenants[i] = Tenant{Name: n, Status: status}
	}
	if err = s.rest.Do(ctx, http.MethodPut, s.basePath(), nil, tenants, nil); err != nil {
		return fmt.Errorf("update tenant status: %w", err)
	}
	return nil
}
