package strata_test

import (
	"context"
	"errors"
	"testing"

	strata "github.com/kailas-cloud/strata-go"
	"github.com/kailas-cloud/strata-go/stratatest"
)

func TestRolePermissions(t *testing.T) {
	srv := stratatest.New()
	defer srv.Close()
	c := newTestClient(t, srv)
	ctx := context.Background()
	roles := c.Roles()

	reader := strata.Role{
		Name:        "articles-reader",
		Permissions: strata.PermitData("Articles", strata.ActionReadData),
	}
	if err := roles.Create(ctx, reader); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := roles.Create(ctx, reader); !errors.Is(err, strata.ErrConflict) {
		t.Fatalf("expected ErrConflict on duplicate role, got %v", err)
	}

	if err := roles.AddPermissions(ctx, "articles-reader",
		strata.PermitData("Articles", strata.ActionWriteData)...); err != nil {
		t.Fatalf("AddPermissions: %v", err)
	}
	got, err := roles.Get(ctx, "articles-reader")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Permissions) != 2 {
		t.Fatalf("permissions = %v, want read+write", got.Permissions)
	}

	if err := roles.RemovePermissions(ctx, "articles-reader",
		strata.PermitData("Articles", strata.ActionWriteData)...); err != nil {
		t.Fatalf("RemovePermissions: %v", err)
	}
	got, err = roles.Get(ctx, "articles-reader")
	if err != nil || len(got.Permissions) != 1 || got.Permissions[0].Action != strata.ActionReadData {
		t.Fatalf("Get after remove = %+v, %v; want read only", got, err)
	}

	all, err := roles.List(ctx)
	if err != nil || len(all) != 1 {
		t.Fatalf("List = %d, %v; want 1", len(all), err)
	}

	if err := roles.Delete(ctx, "articles-reader"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := roles.Get(ctx, "articles-reader"); !errors.Is(err, strata.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestUserKeysAndRoles(t *testing.T) {
	srv := stratatest.New()
	defer srv.Close()
	c := newTestClient(t, srv)
	ctx := context.Background()
	users := c.Users()

	key, err := users.Create(ctx, "ingester")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if key == "" {
		t.Fatal("expected an API key on creation")
	}
	if _, err := users.Create(ctx, "ingester"); !errors.Is(err, strata.ErrConflict) {
		t.Fatalf("expected ErrConflict on duplicate user, got %v", err)
	}

	rotated, err := users.RotateKey(ctx, "ingester")
	if err != nil {
		t.Fatalf("RotateKey: %v", err)
	}
	if rotated == key {
		t.Error("rotated key must differ from the original")
	}

	// role assignment requires an existing role
	if err := users.AssignRoles(ctx, "ingester", "missing-role"); !errors.Is(err, strata.ErrNotFound) {
		t.Fatalf("expected ErrNotFound assigning unknown role, got %v", err)
	}
	if err := c.Roles().Create(ctx, strata.Role{
		Name:        "writer",
		Permissions: strata.PermitCluster(strata.ActionManageCollections),
	}); err != nil {
		t.Fatalf("Create role: %v", err)
	}
	if err := users.AssignRoles(ctx, "ingester", "writer"); err != nil {
		t.Fatalf("AssignRoles: %v", err)
	}
	got, err := users.Get(ctx, "ingester")
	if err != nil || len(got.Roles) != 1 || got.Roles[0] != "writer" {
		t.Fatalf("Get = %+v, %v; want role writer", got, err)
	}

	// deleting a role strips it from its holders
	if err := c.Roles().Delete(ctx, "writer"); err != nil {
		t.Fatalf("Delete role: %v", err)
	}
	got, err = users.Get(ctx, "ingester")
	if err != nil || len(got.Roles) != 0 {
		t.Fatalf("Get after role delete = %+v, %v; want no roles", got, err)
	}

	if err := users.Delete(ctx, "ingester"); err != nil {
		t.Fatalf("Delete user: %v", err)
	}
	if _, err := users.Get(ctx, "ingester"); !errors.Is(err, strata.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestRevokeRoles(t *testing.T) {
	srv := stratatest.New()
	defer srv.Close()
	c := newTestClient(t, srv)
	ctx := context.Background()

	if err := c.Roles().Create(ctx, strata.Role{Name: "ops"}); err != nil {
		t.Fatalf("Create role: %v", err)
	}
	if _, err := c.Users().Create(ctx, "alex"); err != nil {
		t.Fatalf("Create user: %v", err)
	}
	if err := c.Users().AssignRoles(ctx, "alex", "ops"); err != nil {
		t.Fatalf("AssignRoles: %v", err)
	}
	if err := c.Users().RevokeRoles(ctx, "alex", "ops"); err != nil {
		t.Fatalf("RevokeRoles: %v", err)
	}
	got, err := c.Users().Get(ctx, "alex")
	if err != nil || len(got.Roles) != 0 {
		t.Fatalf("Get = %+v, %v; want no roles", got, err)
	}
}
