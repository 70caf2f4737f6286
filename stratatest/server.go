// Package stratatest provides an in-memory fake Strata server for testing
// client code without a running cluster. It implements the REST surface the
// client speaks, including asynchronous backup, restore and replication
// jobs that progress through their statuses over (configurable) time.
package stratatest

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	strata "github.com/kailas-cloud/strata-go"
)

// Server is a fake Strata server. Create with New, point the client at
// URL(), and Close when done. All state lives in memory under one lock;
// the fake favors obviousness over speed.
type Server struct {
	mu sync.Mutex

	httpSrv *httptest.Server
	apiKey  string
	jobStep time.Duration

	collections  map[string]*fakeCollection
	aliases      map[string]string
	roles        map[string]strata.Role
	users        map[string]*fakeUser
	backups      map[string]*job // keyed backend + "/" + id
	restores     map[string]*job
	replications map[string]*replicationJob
}

type fakeCollection struct {
	config  strata.CollectionInfo
	tenants map[string]strata.TenantStatus
	// objects per tenant; key "" when multi-tenancy is off
	objects map[string]map[string]strata.Object
}

type fakeUser struct {
	user   strata.User
	apiKey string
}

// Option configures the fake server.
type Option func(*Server)

// WithAPIKey makes the server require the given bearer token.
func WithAPIKey(key string) Option {
	return func(s *Server) { s.apiKey = key }
}

// WithJobStep sets how long async jobs spend in each status stage.
// Default 25ms, fast enough for unit tests and slow enough to observe
// intermediate states.
func WithJobStep(d time.Duration) Option {
	return func(s *Server) { s.jobStep = d }
}

// New starts a fake server.
func New(opts ...Option) *Server {
	s := &Server{
		jobStep:      25 * time.Millisecond,
		collections:  make(map[string]*fakeCollection),
		aliases:      make(map[string]string),
		roles:        make(map[string]strata.Role),
		users:        make(map[string]*fakeUser),
		backups:      make(map[string]*job),
		restores:     make(map[string]*job),
		replications: make(map[string]*replicationJob),
	}
	for _, o := range opts {
		o(s)
	}
	s.httpSrv = httptest.NewServer(s.router())
	return s
}

// URL returns the base URL to hand to strata.New.
func (s *Server) URL() string { return s.httpSrv.URL }

// Close shuts the server down.
func (s *Server) Close() { s.httpSrv.Close() }

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.auth)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/.well-known/ready", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		r.Get("/.well-known/live", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		r.Get("/meta", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, strata.Meta{
				Version:  "fake",
				Hostname: "stratatest",
				Modules:  map[string]any{},
			})
		})

		r.Route("/collections", func(r chi.Router) {
			r.Post("/", s.createCollection)
			r.Get("/", s.listCollections)
			r.Route("/{collection}", func(r chi.Router) {
				r.Get("/", s.getCollection)
				r.Put("/", s.updateCollection)
				r.Delete("/", s.deleteCollection)

				r.Route("/objects", func(r chi.Router) {
					r.Post("/", s.insertObject)
					r.Get("/", s.listObjects)
					r.Get("/count", s.countObjects)
					r.Get("/{id}", s.getObject)
					r.Put("/{id}", s.replaceObject)
					r.Patch("/{id}", s.mergeObject)
					r.Delete("/{id}", s.deleteObject)
				})
				r.Post("/search", s.search)
				r.Post("/aggregate", s.aggregate)

				r.Route("/tenants", func(r chi.Router) {
					r.Post("/", s.createTenants)
					r.Get("/", s.listTenants)
					r.Put("/", s.updateTenants)
					r.Delete("/", s.deleteTenants)
					r.Get("/{name}", s.getTenant)
				})
			})
		})

		r.Post("/batch/objects", s.batchInsert)
		r.Delete("/batch/objects", s.batchDelete)

		r.Route("/backups/{backend}", func(r chi.Router) {
			r.Post("/", s.createBackup)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.backupStatus)
				r.Delete("/", s.cancelBackup)
				r.Post("/restore", s.startRestore)
				r.Get("/restore", s.restoreStatus)
			})
		})

		r.Route("/replications", func(r chi.Router) {
			r.Post("/", s.startReplication)
			r.Get("/", s.listReplications)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.getReplication)
				r.Delete("/", s.deleteReplication)
				r.Post("/cancel", s.cancelReplication)
			})
		})

		r.Route("/roles", func(r chi.Router) {
			r.Post("/", s.createRole)
			r.Get("/", s.listRoles)
			r.Get("/{name}", s.getRole)
			r.Delete("/{name}", s.deleteRole)
			r.Post("/{name}/permissions/add", s.addPermissions)
			r.Post("/{name}/permissions/remove", s.removePermissions)
		})

		r.Route("/users", func(r chi.Router) {
			r.Post("/", s.createUser)
			r.Get("/", s.listUsers)
			r.Get("/{id}", s.getUser)
			r.Delete("/{id}", s.deleteUser)
			r.Post("/{id}/rotate-key", s.rotateKey)
			r.Post("/{id}/roles/assign", s.assignRoles)
			r.Post("/{id}/roles/revoke", s.revokeRoles)
		})

		r.Route("/aliases", func(r chi.Router) {
			r.Post("/", s.createAlias)
			r.Get("/", s.listAliases)
			r.Get("/{alias}", s.getAlias)
			r.Put("/{alias}", s.updateAlias)
			r.Delete("/{alias}", s.deleteAlias)
		})
	})
	return r
}

func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey != "" && r.Header.Get("Authorization") != "Bearer "+s.apiKey {
			writeErr(w, http.StatusUnauthorized, "invalid api key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --- collections ---

func (s *Server) createCollection(w http.ResponseWriter, r *http.Request) {
	var cfg strata.CollectionInfo
	if !decode(w, r, &cfg) {
		return
	}
	if cfg.Name == "" {
		writeErr(w, http.StatusUnprocessableEntity, "collection name required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[cfg.Name]; ok {
		writeErr(w, http.StatusConflict, fmt.Sprintf("collection %s already exists", cfg.Name))
		return
	}
	if cfg.Distance == "" {
		cfg.Distance = strata.DistanceCosine
	}
	cfg.CreatedAt = time.Now().Unix()
	col := &fakeCollection{
		config:  cfg,
		tenants: make(map[string]strata.TenantStatus),
		objects: map[string]map[string]strata.Object{"": {}},
	}
	s.collections[cfg.Name] = col
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) listCollections(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]strata.CollectionInfo, 0, len(s.collections))
	for _, c := range s.collections {
		out = append(out, c.config)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	writeJSON(w, http.StatusOK, map[string]any{"collections": out})
}

func (s *Server) getCollection(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	col, ok := s.resolve(chi.URLParam(r, "collection"))
	if !ok {
		writeErr(w, http.StatusNotFound, "collection not found")
		return
	}
	writeJSON(w, http.StatusOK, col.config)
}

func (s *Server) updateCollection(w http.ResponseWriter, r *http.Request) {
	var cfg strata.CollectionInfo
	if !decode(w, r, &cfg) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	col, ok := s.resolve(chi.URLParam(r, "collection"))
	if !ok {
		writeErr(w, http.StatusNotFound, "collection not found")
		return
	}
	if len(cfg.Properties) > 0 || cfg.VectorDimensions != 0 ||
		(cfg.Distance != "" && cfg.Distance != col.config.Distance) {
		writeErr(w, http.StatusUnprocessableEntity, "properties, dimensions and distance are immutable")
		return
	}
	if cfg.VectorIndex != (strata.HNSWConfig{}) {
		col.config.VectorIndex = cfg.VectorIndex
	}
	if cfg.BM25 != (strata.BM25Config{}) {
		col.config.BM25 = cfg.BM25
	}
	if cfg.ReplicationFactor > 0 {
		col.config.ReplicationFactor = cfg.ReplicationFactor
	}
	writeJSON(w, http.StatusOK, col.config)
}

func (s *Server) deleteCollection(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := chi.URLParam(r, "collection")
	if _, ok := s.collections[name]; !ok {
		writeErr(w, http.StatusNotFound, "collection not found")
		return
	}
	delete(s.collections, name)
	for alias, target := range s.aliases {
		if target == name {
			delete(s.aliases, alias)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// resolve looks a collection up by name or alias. Callers hold s.mu.
func (s *Server) resolve(name string) (*fakeCollection, bool) {
	if col, ok := s.collections[name]; ok {
		return col, true
	}
	if target, ok := s.aliases[name]; ok {
		col, ok := s.collections[target]
		return col, ok
	}
	return nil, false
}

// bucket returns the object map for a tenant, honoring the collection's
// multi-tenancy config. Callers hold s.mu.
func (s *Server) bucket(col *fakeCollection, tenant string, createForWrite bool) (map[string]strata.Object, string) {
	if !col.config.MultiTenancy.Enabled {
		if tenant != "" {
			return nil, "collection is not multi-tenant"
		}
		return col.objects[""], ""
	}
	if tenant == "" {
		return nil, "tenant required for multi-tenant collection"
	}
	status, ok := col.tenants[tenant]
	if !ok {
		if !createForWrite || !col.config.MultiTenancy.AutoTenantCreate {
			return nil, "tenant not found"
		}
		col.tenants[tenant] = strata.TenantHot
		status = strata.TenantHot
	}
	if status == strata.TenantCold {
		return nil, "tenant is deactivated"
	}
	if col.objects[tenant] == nil {
		col.objects[tenant] = make(map[string]strata.Object)
	}
	return col.objects[tenant], ""
}

// --- objects ---

func (s *Server) insertObject(w http.ResponseWriter, r *http.Request) {
	var obj strata.Object
	if !decode(w, r, &obj) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	col, ok := s.resolve(chi.URLParam(r, "collection"))
	if !ok {
		writeErr(w, http.StatusNotFound, "collection not found")
		return
	}
	tenant := r.URL.Query().Get("tenant")
	bucket, msg := s.bucket(col, tenant, true)
	if bucket == nil {
		writeErr(w, http.StatusUnprocessableEntity, msg)
		return
	}
	if obj.ID == "" {
		obj.ID = uuid.NewString()
	}
	if _, exists := bucket[obj.ID]; exists {
		writeErr(w, http.StatusConflict, fmt.Sprintf("object %s already exists", obj.ID))
		return
	}
	if dim := col.config.VectorDimensions; dim > 0 && len(obj.Vector) > 0 && len(obj.Vector) != dim {
		writeErr(w, http.StatusUnprocessableEntity,
			fmt.Sprintf("vector dimension %d, collection expects %d", len(obj.Vector), dim))
		return
	}
	now := time.Now().UnixMilli()
	obj.CreatedAt, obj.UpdatedAt = now, now
	obj.Tenant = tenant
	bucket[obj.ID] = obj
	writeJSON(w, http.StatusOK, obj)
}

func (s *Server) objectBucket(w http.ResponseWriter, r *http.Request) (map[string]strata.Object, bool) {
	col, ok := s.resolve(chi.URLParam(r, "collection"))
	if !ok {
		writeErr(w, http.StatusNotFound, "collection not found")
		return nil, false
	}
	bucket, msg := s.bucket(col, r.URL.Query().Get("tenant"), false)
	if bucket == nil {
		code := http.StatusUnprocessableEntity
		if msg == "tenant not found" {
			code = http.StatusNotFound
		}
		writeErr(w, code, msg)
		return nil, false
	}
	return bucket, true
}

func (s *Server) getObject(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket, ok := s.objectBucket(w, r)
	if !ok {
		return
	}
	obj, ok := bucket[chi.URLParam(r, "id")]
	if !ok {
		writeErr(w, http.StatusNotFound, "object not found")
		return
	}
	writeJSON(w, http.StatusOK, obj)
}

func (s *Server) replaceObject(w http.ResponseWriter, r *http.Request) {
	var obj strata.Object
	if !decode(w, r, &obj) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	bucket, ok := s.objectBucket(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	prev, ok := bucket[id]
	if !ok {
		writeErr(w, http.StatusNotFound, "object not found")
		return
	}
	obj.ID = id
	obj.CreatedAt = prev.CreatedAt
	obj.UpdatedAt = time.Now().UnixMilli()
	obj.Tenant = prev.Tenant
	bucket[id] = obj
	writeJSON(w, http.StatusOK, obj)
}

func (s *Server) mergeObject(w http.ResponseWriter, r *http.Request) {
	var patch strata.Object
	if !decode(w, r, &patch) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	bucket, ok := s.objectBucket(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	obj, ok := bucket[id]
	if !ok {
		writeErr(w, http.StatusNotFound, "object not found")
		return
	}
	if obj.Properties == nil {
		obj.Properties = make(map[string]any)
	}
	for k, v := range patch.Properties {
		obj.Properties[k] = v
	}
	if len(patch.Vector) > 0 {
		obj.Vector = patch.Vector
	}
	obj.UpdatedAt = time.Now().UnixMilli()
	bucket[id] = obj
	writeJSON(w, http.StatusOK, obj)
}

func (s *Server) deleteObject(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket, ok := s.objectBucket(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if _, ok := bucket[id]; !ok {
		writeErr(w, http.StatusNotFound, "object not found")
		return
	}
	delete(bucket, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listObjects(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket, ok := s.objectBucket(w, r)
	if !ok {
		return
	}

	ids := make([]string, 0, len(bucket))
	for id := range bucket {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	cursor := r.URL.Query().Get("cursor")
	if cursor != "" {
		i := sort.SearchStrings(ids, cursor)
		if i < len(ids) && ids[i] == cursor {
			i++
		}
		ids = ids[i:]
	}
	limit := len(ids)
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n < limit {
			limit = n
		}
	}

	page := make([]strata.Object, 0, limit)
	for _, id := range ids[:limit] {
		page = append(page, bucket[id])
	}
	next := ""
	if limit < len(ids) {
		next = ids[limit-1]
	}
	writeJSON(w, http.StatusOK, strata.ObjectPage{Objects: page, NextCursor: next})
}

func (s *Server) countObjects(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket, ok := s.objectBucket(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": len(bucket)})
}

// --- helpers ---

func decode(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		writeErr(w, http.StatusUnprocessableEntity, "malformed body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": []map[string]string{{"message": msg}},
	})
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func terms(s string) []string {
	return strings.Fields(strings.ToLower(s))
}
