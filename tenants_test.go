package strata_test

import (
	"context"
	"errors"
	"testing"

	strata "github.com/kailas-cloud/strata-go"
	"github.com/kailas-cloud/strata-go/stratatest"
)

func TestTenantLifecycle(t *testing.T) {
	srv := stratatest.New()
	defer srv.Close()
	c := newTestClient(t, srv)
	ctx := context.Background()
	mustCreateCollection(t, c, "Docs", strata.WithMultiTenancy(false))
	tenants := c.Tenants("Docs")

	if err := tenants.Create(ctx, "acme", "globex"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := tenants.Create(ctx, "acme"); !errors.Is(err, strata.ErrConflict) {
		t.Fatalf("expected ErrConflict on duplicate tenant, got %v", err)
	}

	got, err := tenants.Get(ctx, "acme")
	if err != nil || got.Status != strata.TenantHot {
		t.Fatalf("Get = %+v, %v; want HOT", got, err)
	}
	ok, err := tenants.Exists(ctx, "acme")
	if err != nil || !ok {
		t.Fatalf("Exists = %v, %v; want true", ok, err)
	}

	all, err := tenants.List(ctx)
	if err != nil || len(all) != 2 {
		t.Fatalf("List = %d, %v; want 2", len(all), err)
	}

	if err := tenants.Delete(ctx, "globex"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := tenants.Get(ctx, "globex"); !errors.Is(err, strata.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestTenantIsolation(t *testing.T) {
	srv := stratatest.New()
	defer srv.Close()
	c := newTestClient(t, srv)
	ctx := context.Background()
	mustCreateCollection(t, c, "Docs", strata.WithMultiTenancy(false))
	if err := c.Tenants("Docs").Create(ctx, "acme", "globex"); err != nil {
		t.Fatalf("Create tenants: %v", err)
	}
	objects := c.Objects("Docs")

	obj, err := objects.Insert(ctx, strata.Object{
		Properties: map[string]any{"title": "acme doc"},
	}, strata.WithTenant("acme"))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	// a tenant is required on a multi-tenant collection
	if _, err := objects.Insert(ctx, strata.Object{}); !errors.Is(err, strata.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput without tenant, got %v", err)
	}

	// objects are invisible to other tenants
	if _, err := objects.Get(ctx, obj.ID, strata.WithTenant("globex")); !errors.Is(err, strata.ErrNotFound) {
		t.Fatalf("expected ErrNotFound across tenants, got %v", err)
	}
	if _, err := objects.Get(ctx, obj.ID, strata.WithTenant("acme")); err != nil {
		t.Fatalf("Get in own tenant: %v", err)
	}

	n, err := objects.Count(ctx, strata.WithTenant("globex"))
	if err != nil || n != 0 {
		t.Fatalf("Count(globex) = %d, %v; want 0", n, err)
	}
}

func TestTenantDeactivation(t *testing.T) {
	srv := stratatest.New()
	defer srv.Close()
	c := newTestClient(t, srv)
	ctx := context.Background()
	mustCreateCollection(t, c, "Docs", strata.WithMultiTenancy(false))
	tenants := c.Tenants("Docs")
	objects := c.Objects("Docs")

	if err := tenants.Create(ctx, "acme"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := objects.Insert(ctx, strata.Object{}, strata.WithTenant("acme")); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	if err := tenants.Deactivate(ctx, "acme"); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	got, err := tenants.Get(ctx, "acme")
	if err != nil || got.Status != strata.TenantCold {
		t.Fatalf("Get = %+v, %v; want COLD", got, err)
	}

	// cold tenants reject reads and writes
	if _, err := objects.Insert(ctx, strata.Object{}, strata.WithTenant("acme")); !errors.Is(err, strata.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput writing to cold tenant, got %v", err)
	}
	if _, err := objects.Count(ctx, strata.WithTenant("acme")); !errors.Is(err, strata.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput reading cold tenant, got %v", err)
	}

	if err := tenants.Activate(ctx, "acme"); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	n, err := objects.Count(ctx, strata.WithTenant("acme"))
	if err != nil || n != 1 {
		t.Fatalf("Count after reactivation = %d, %v; want 1", n, err)
	}
}

func TestAutoTenantCreation(t *testing.T) {
	srv := stratatest.New()
	defer srv.Close()
	c := newTestClient(t, srv)
	ctx := context.Background()
	mustCreateCollection(t, c, "Docs", strata.WithMultiTenancy(true))

	// first write creates the tenant
	if _, err := c.Objects("Docs").Insert(ctx, strata.Object{}, strata.WithTenant("fresh")); err != nil {
		t.Fatalf("Insert with auto-create: %v", err)
	}
	got, err := c.Tenants("Docs").Get(ctx, "fresh")
	if err != nil || got.Status != strata.TenantHot {
		t.Fatalf("Get = %+v, %v; want auto-created HOT tenant", got, err)
	}
}

func TestTenantOpsOnSingleTenantCollection(t *testing.T) {
	srv := stratatest.New()
	defer srv.Close()
	c := newTestClient(t, srv)
	ctx := context.Background()
	mustCreateCollection(t, c, "Plain")

	if err := c.Tenants("Plain").Create(ctx, "acme"); !errors.Is(err, strata.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput on non-multi-tenant collection, got %v", err)
	}
	if _, err := c.Objects("Plain").Insert(ctx, strata.Object{}, strata.WithTenant("acme")); !errors.Is(err, strata.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput using tenant on plain collection, got %v", err)
	}
}
