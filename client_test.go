package strata_test

import (
	"context"
	"errors"
	"testing"
	"time"

	strata "github.com/kailas-cloud/strata-go"
	"github.com/kailas-cloud/strata-go/stratatest"
)

// newTestClient wires a client to a fake server with fast polling so
// operation waits finish in milliseconds.
func newTestClient(t *testing.T, srv *stratatest.Server, opts ...strata.Option) *strata.Client {
	t.Helper()
	opts = append([]strata.Option{
		strata.WithPollInterval(5 * time.Millisecond),
		strata.WithBackupWaitTimeout(2 * time.Second),
		strata.WithReplicationWaitTimeout(2 * time.Second),
	}, opts...)
	c, err := strata.New(srv.URL(), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func mustCreateCollection(t *testing.T, c *strata.Client, name string, opts ...strata.CollectionOption) {
	t.Helper()
	if _, err := c.Collections().Create(context.Background(), name, opts...); err != nil {
		t.Fatalf("create collection %s: %v", name, err)
	}
}

func TestClientProbes(t *testing.T) {
	srv := stratatest.New()
	defer srv.Close()
	c := newTestClient(t, srv)
	ctx := context.Background()

	if err := c.Ready(ctx); err != nil {
		t.Fatalf("Ready: %v", err)
	}
	if err := c.Live(ctx); err != nil {
		t.Fatalf("Live: %v", err)
	}
	meta, err := c.GetMeta(ctx)
	if err != nil {
		t.Fatalf("GetMeta: %v", err)
	}
	if meta.Version == "" {
		t.Error("expected a server version in meta")
	}
}

func TestClientAuth(t *testing.T) {
	srv := stratatest.New(stratatest.WithAPIKey("secret"))
	defer srv.Close()

	c := newTestClient(t, srv) // no key
	if err := c.Ready(context.Background()); !errors.Is(err, strata.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized without key, got %v", err)
	}

	c = newTestClient(t, srv, strata.WithAPIKey("secret"))
	if err := c.Ready(context.Background()); err != nil {
		t.Fatalf("Ready with key: %v", err)
	}
}

func TestCollectionLifecycle(t *testing.T) {
	srv := stratatest.New()
	defer srv.Close()
	c := newTestClient(t, srv)
	ctx := context.Background()

	info, err := c.Collections().Create(ctx, "Articles",
		strata.WithProperty("title", strata.DataTypeText),
		strata.WithProperty("views", strata.DataTypeInt),
		strata.WithVectorDimensions(3),
		strata.WithDistance(strata.DistanceCosine),
	)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if info.Name != "Articles" || info.VectorDimensions != 3 {
		t.Errorf("unexpected collection info: %+v", info)
	}

	if _, err := c.Collections().Create(ctx, "Articles"); !errors.Is(err, strata.ErrConflict) {
		t.Fatalf("expected ErrConflict on duplicate create, got %v", err)
	}

	got, err := c.Collections().Get(ctx, "Articles")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Properties) != 2 {
		t.Errorf("expected 2 properties, got %d", len(got.Properties))
	}

	ok, err := c.Collections().Exists(ctx, "Articles")
	if err != nil || !ok {
		t.Fatalf("Exists(Articles) = %v, %v; want true", ok, err)
	}
	ok, err = c.Collections().Exists(ctx, "Nope")
	if err != nil || ok {
		t.Fatalf("Exists(Nope) = %v, %v; want false", ok, err)
	}

	all, err := c.Collections().List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("expected 1 collection, got %d", len(all))
	}

	updated, err := c.Collections().Update(ctx, "Articles", strata.WithReplicationFactor(3))
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.ReplicationFactor != 3 {
		t.Errorf("ReplicationFactor = %d, want 3", updated.ReplicationFactor)
	}

	// dimensions are immutable
	if _, err := c.Collections().Update(ctx, "Articles", strata.WithVectorDimensions(8)); !errors.Is(err, strata.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput changing dimensions, got %v", err)
	}

	if err := c.Collections().Delete(ctx, "Articles"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := c.Collections().Get(ctx, "Articles"); !errors.Is(err, strata.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestAliases(t *testing.T) {
	srv := stratatest.New()
	defer srv.Close()
	c := newTestClient(t, srv)
	ctx := context.Background()

	mustCreateCollection(t, c, "ArticlesV1")
	mustCreateCollection(t, c, "ArticlesV2")

	if err := c.Aliases().Create(ctx, "Articles", "ArticlesV1"); err != nil {
		t.Fatalf("Create alias: %v", err)
	}
	if err := c.Aliases().Create(ctx, "Articles", "ArticlesV2"); !errors.Is(err, strata.ErrConflict) {
		t.Fatalf("expected ErrConflict on duplicate alias, got %v", err)
	}

	// reads through the alias hit the target collection
	if _, err := c.Collections().Get(ctx, "Articles"); err != nil {
		t.Fatalf("Get through alias: %v", err)
	}
	if _, err := c.Objects("Articles").Insert(ctx, strata.Object{
		Properties: map[string]any{"title": "via alias"},
	}); err != nil {
		t.Fatalf("Insert through alias: %v", err)
	}
	n, err := c.Objects("ArticlesV1").Count(ctx)
	if err != nil || n != 1 {
		t.Fatalf("Count(ArticlesV1) = %d, %v; want 1", n, err)
	}

	// repoint and verify the swap
	if err := c.Aliases().Update(ctx, "Articles", "ArticlesV2"); err != nil {
		t.Fatalf("Update alias: %v", err)
	}
	a, err := c.Aliases().Get(ctx, "Articles")
	if err != nil || a.Collection != "ArticlesV2" {
		t.Fatalf("Get alias = %+v, %v; want target ArticlesV2", a, err)
	}
	n, err = c.Objects("Articles").Count(ctx)
	if err != nil || n != 0 {
		t.Fatalf("Count through repointed alias = %d, %v; want 0", n, err)
	}

	aliases, err := c.Aliases().List(ctx, "ArticlesV2")
	if err != nil || len(aliases) != 1 {
		t.Fatalf("List aliases = %v, %v; want one entry", aliases, err)
	}

	if err := c.Aliases().Delete(ctx, "Articles"); err != nil {
		t.Fatalf("Delete alias: %v", err)
	}
	if _, err := c.Aliases().Get(ctx, "Articles"); !errors.Is(err, strata.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after alias delete, got %v", err)
	}

	// deleting the target collection removes aliases pointing at it
	if err := c.Aliases().Create(ctx, "Current", "ArticlesV2"); err != nil {
		t.Fatalf("Create alias: %v", err)
	}
	if err := c.Collections().Delete(ctx, "ArticlesV2"); err != nil {
		t.Fatalf("Delete collection: %v", err)
	}
	if _, err := c.Aliases().Get(ctx, "Current"); !errors.Is(err, strata.ErrNotFound) {
		t.Fatalf("expected alias gone with its collection, got %v", err)
	}
}
