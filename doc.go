// Package strata provides a Go client for the Strata vector database.
//
// The client wraps the server's REST API with typed, per-concern services:
// collections, objects, search, aggregation, batch operations, tenants,
// backups, replication, roles/users, and aliases.
//
//	client, _ := strata.New("http://localhost:8080",
//	    strata.WithAPIKey("secret"),
//	)
//	client.Collections().Create(ctx, "Articles",
//	    strata.WithVectorDimensions(768),
//	    strata.WithProperty("title", strata.DataTypeText),
//	)
//	client.Objects("Articles").Insert(ctx, strata.Object{
//	    Properties: map[string]any{"title": "hello"},
//	    Vector:     vec,
//	})
//	hits, _ := client.Search("Articles").NearVector(ctx, vec, nil)
//
// Long-running server operations (backups, restores, shard replication)
// return an *Operation handle that polls the server until the operation
// reaches a terminal status:
//
//	op, _ := client.Backups().Create(ctx, strata.BackendFilesystem,
//	    strata.BackupRequest{ID: "nightly"})
//	snap, err := op.Wait(ctx)
package strata
