package strata_test

import (
	"context"
	"errors"
	"testing"

	strata "github.com/kailas-cloud/strata-go"
	"github.com/kailas-cloud/strata-go/stratatest"
)

func TestObjectCRUD(t *testing.T) {
	srv := stratatest.New()
	defer srv.Close()
	c := newTestClient(t, srv)
	ctx := context.Background()
	mustCreateCollection(t, c, "Articles",
		strata.WithProperty("title", strata.DataTypeText),
		strata.WithVectorDimensions(3),
	)
	objects := c.Objects("Articles")

	inserted, err := objects.Insert(ctx, strata.Object{
		Properties: map[string]any{"title": "hello"},
		Vector:     []float32{1, 0, 0},
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if inserted.ID == "" {
		t.Fatal("expected a generated id")
	}

	got, err := objects.Get(ctx, inserted.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Properties["title"] != "hello" {
		t.Errorf("title = %v, want hello", got.Properties["title"])
	}

	ok, err := objects.Exists(ctx, inserted.ID)
	if err != nil || !ok {
		t.Fatalf("Exists = %v, %v; want true", ok, err)
	}

	// replace drops unset properties
	replaced, err := objects.Replace(ctx, strata.Object{
		ID:         inserted.ID,
		Properties: map[string]any{"title": "replaced"},
	})
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if replaced.Properties["title"] != "replaced" {
		t.Errorf("title = %v, want replaced", replaced.Properties["title"])
	}
	if replaced.CreatedAt != inserted.CreatedAt {
		t.Error("Replace must preserve CreatedAt")
	}

	// merge keeps existing properties
	merged, err := objects.Merge(ctx, strata.Object{
		ID:         inserted.ID,
		Properties: map[string]any{"author": "bo"},
	})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if merged.Properties["title"] != "replaced" || merged.Properties["author"] != "bo" {
		t.Errorf("merged properties = %v", merged.Properties)
	}

	if err := objects.Delete(ctx, inserted.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := objects.Get(ctx, inserted.ID); !errors.Is(err, strata.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestObjectInsertValidation(t *testing.T) {
	srv := stratatest.New()
	defer srv.Close()
	c := newTestClient(t, srv)
	ctx := context.Background()
	mustCreateCollection(t, c, "Articles", strata.WithVectorDimensions(3))
	objects := c.Objects("Articles")

	// malformed id rejected client-side, no request made
	if _, err := objects.Insert(ctx, strata.Object{ID: "not-a-uuid"}); !errors.Is(err, strata.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for bad id, got %v", err)
	}

	// duplicate id conflicts
	obj, err := objects.Insert(ctx, strata.Object{Properties: map[string]any{}})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if _, err := objects.Insert(ctx, strata.Object{ID: obj.ID}); !errors.Is(err, strata.ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate id, got %v", err)
	}

	// wrong vector dimension rejected server-side
	_, err = objects.Insert(ctx, strata.Object{Vector: []float32{1, 2}})
	if !errors.Is(err, strata.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for dimension mismatch, got %v", err)
	}

	// operations against a missing collection
	if _, err := c.Objects("Missing").Insert(ctx, strata.Object{}); !errors.Is(err, strata.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing collection, got %v", err)
	}
}

func TestObjectListPagination(t *testing.T) {
	srv := stratatest.New()
	defer srv.Close()
	c := newTestClient(t, srv)
	ctx := context.Background()
	mustCreateCollection(t, c, "Articles")
	objects := c.Objects("Articles")

	const total = 7
	for i := 0; i < total; i++ {
		if _, err := objects.Insert(ctx, strata.Object{Properties: map[string]any{"n": i}}); err != nil {
			t.Fatalf("Insert %d: %v", i, err)
		}
	}

	n, err := objects.Count(ctx)
	if err != nil || n != total {
		t.Fatalf("Count = %d, %v; want %d", n, err, total)
	}

	seen := make(map[string]bool)
	cursor := ""
	pages := 0
	for {
		page, err := objects.List(ctx, cursor, 3)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		pages++
		for _, obj := range page.Objects {
			if seen[obj.ID] {
				t.Fatalf("object %s returned twice", obj.ID)
			}
			seen[obj.ID] = true
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}
	if len(seen) != total {
		t.Errorf("paged over %d objects, want %d", len(seen), total)
	}
	if pages != 3 {
		t.Errorf("walked %d pages of 3, want 3", pages)
	}
}
