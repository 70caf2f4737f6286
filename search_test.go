package strata_test

import (
	"context"
	"errors"
	"testing"

	strata "github.com/kailas-cloud/strata-go"
	"github.com/kailas-cloud/strata-go/stratatest"
)

// stubEmbedder maps known texts onto fixed vectors.
type stubEmbedder struct {
	vectors map[string][]float32
}

func (e *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	v, ok := e.vectors[text]
	if !ok {
		return nil, errors.New("no vector for " + text)
	}
	return v, nil
}

func seedArticles(t *testing.T, c *strata.Client) {
	t.Helper()
	ctx := context.Background()
	mustCreateCollection(t, c, "Articles",
		strata.WithProperty("title", strata.DataTypeText),
		strata.WithProperty("views", strata.DataTypeInt),
		strata.WithVectorDimensions(2),
	)
	docs := []strata.Object{
		{Properties: map[string]any{"title": "go concurrency patterns", "views": 100}, Vector: []float32{1, 0}},
		{Properties: map[string]any{"title": "rust borrow checker", "views": 50}, Vector: []float32{0, 1}},
		{Properties: map[string]any{"title": "go generics deep dive", "views": 10}, Vector: []float32{0.9, 0.1}},
	}
	for _, d := range docs {
		if _, err := c.Objects("Articles").Insert(ctx, d); err != nil {
			t.Fatalf("seed insert: %v", err)
		}
	}
}

func titleOf(hit strata.SearchHit) string {
	s, _ := hit.Properties["title"].(string)
	return s
}

func TestNearVectorRanking(t *testing.T) {
	srv := stratatest.New()
	defer srv.Close()
	c := newTestClient(t, srv)
	seedArticles(t, c)

	hits, err := c.Search("Articles").NearVector(context.Background(), []float32{1, 0},
		&strata.SearchOptions{Limit: 2})
	if err != nil {
		t.Fatalf("NearVector: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	if titleOf(hits[0]) != "go concurrency patterns" {
		t.Errorf("top hit = %q, want the aligned vector first", titleOf(hits[0]))
	}
	if hits[0].Score < hits[1].Score {
		t.Error("hits must be ordered by descending score")
	}
	if hits[0].Vector != nil {
		t.Error("vectors should be omitted unless IncludeVector is set")
	}
}

func TestBM25Search(t *testing.T) {
	srv := stratatest.New()
	defer srv.Close()
	c := newTestClient(t, srv)
	seedArticles(t, c)

	hits, err := c.Search("Articles").BM25(context.Background(), "borrow checker", nil)
	if err != nil {
		t.Fatalf("BM25: %v", err)
	}
	if len(hits) != 1 || titleOf(hits[0]) != "rust borrow checker" {
		t.Fatalf("hits = %v, want just the rust article", hits)
	}
}

func TestHybridSearch(t *testing.T) {
	srv := stratatest.New()
	defer srv.Close()
	c := newTestClient(t, srv)
	seedArticles(t, c)
	ctx := context.Background()

	// alpha 1: pure vector, keyword mismatch does not matter
	hits, err := c.Search("Articles").Hybrid(ctx, "zzz", []float32{0, 1},
		&strata.SearchOptions{Alpha: strata.Alpha(1), Limit: 1})
	if err != nil {
		t.Fatalf("Hybrid: %v", err)
	}
	if len(hits) != 1 || titleOf(hits[0]) != "rust borrow checker" {
		t.Fatalf("alpha=1 top = %v, want vector-nearest", hits)
	}

	// default alpha blends both signals
	hits, err = c.Search("Articles").Hybrid(ctx, "go generics", []float32{0.9, 0.1},
		&strata.SearchOptions{Limit: 1})
	if err != nil {
		t.Fatalf("Hybrid: %v", err)
	}
	if len(hits) != 1 || titleOf(hits[0]) != "go generics deep dive" {
		t.Fatalf("blended top = %v, want the generics article", hits)
	}
}

func TestHybridSearchExplicitZeroAlpha(t *testing.T) {
	srv := stratatest.New()
	defer srv.Close()
	c := newTestClient(t, srv)
	seedArticles(t, c)

	// An explicit alpha of 0 means pure keyword: the vector points straight
	// at the rust article, yet only the "go" keyword matches may rank.
	hits, err := c.Search("Articles").Hybrid(context.Background(), "go", []float32{0, 1},
		&strata.SearchOptions{Alpha: strata.Alpha(0)})
	if err != nil {
		t.Fatalf("Hybrid: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want the 2 keyword matches", len(hits))
	}
	for _, h := range hits {
		if titleOf(h) == "rust borrow checker" {
			t.Error("alpha=0 must not rank on vector similarity")
		}
	}
}

func TestSearchFilters(t *testing.T) {
	srv := stratatest.New()
	defer srv.Close()
	c := newTestClient(t, srv)
	seedArticles(t, c)

	gte := 50.0
	hits, err := c.Search("Articles").NearVector(context.Background(), []float32{1, 0},
		&strata.SearchOptions{
			Filters: &strata.FilterExpression{
				Must: []strata.FilterCondition{
					strata.WhereRange("views", strata.RangeFilter{GTE: &gte}),
				},
			},
		})
	if err != nil {
		t.Fatalf("NearVector with filter: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want the 2 with views >= 50", len(hits))
	}
	for _, h := range hits {
		if titleOf(h) == "go generics deep dive" {
			t.Error("filtered-out object returned")
		}
	}

	// must_not inverts
	hits, err = c.Search("Articles").NearVector(context.Background(), []float32{1, 0},
		&strata.SearchOptions{
			Filters: &strata.FilterExpression{
				MustNot: []strata.FilterCondition{strata.Where("title", "rust borrow checker")},
			},
		})
	if err != nil {
		t.Fatalf("NearVector with must_not: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2 after exclusion", len(hits))
	}
}

func TestNearText(t *testing.T) {
	srv := stratatest.New()
	defer srv.Close()

	embedder := &stubEmbedder{vectors: map[string][]float32{
		"concurrency": {1, 0},
	}}
	c := newTestClient(t, srv, strata.WithEmbedder(embedder))
	seedArticles(t, c)

	hits, err := c.Search("Articles").NearText(context.Background(), "concurrency",
		&strata.SearchOptions{Limit: 1})
	if err != nil {
		t.Fatalf("NearText: %v", err)
	}
	if len(hits) != 1 || titleOf(hits[0]) != "go concurrency patterns" {
		t.Fatalf("hits = %v, want the concurrency article", hits)
	}
}

func TestNearTextWithoutEmbedder(t *testing.T) {
	srv := stratatest.New()
	defer srv.Close()
	c := newTestClient(t, srv)
	seedArticles(t, c)

	_, err := c.Search("Articles").NearText(context.Background(), "anything", nil)
	if !errors.Is(err, strata.ErrVectorizerNotConfigured) {
		t.Fatalf("expected ErrVectorizerNotConfigured, got %v", err)
	}
}

func TestAggregate(t *testing.T) {
	srv := stratatest.New()
	defer srv.Close()
	c := newTestClient(t, srv)
	seedArticles(t, c)
	ctx := context.Background()

	n, err := c.Aggregate("Articles").Count(ctx, nil)
	if err != nil || n != 3 {
		t.Fatalf("Count = %d, %v; want 3", n, err)
	}

	gt := 20.0
	n, err = c.Aggregate("Articles").Count(ctx, &strata.FilterExpression{
		Must: []strata.FilterCondition{strata.WhereRange("views", strata.RangeFilter{GT: &gt})},
	})
	if err != nil || n != 2 {
		t.Fatalf("filtered Count = %d, %v; want 2", n, err)
	}

	res, err := c.Aggregate("Articles").Over(ctx, strata.AggregateRequest{
		Properties: []string{"views"},
	})
	if err != nil {
		t.Fatalf("Over: %v", err)
	}
	agg, ok := res.Properties["views"]
	if !ok {
		t.Fatal("missing views aggregation")
	}
	if agg.Min != 10 || agg.Max != 100 || agg.Sum != 160 {
		t.Errorf("views aggregation = %+v", agg)
	}
}
