package stratatest

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	strata "github.com/kailas-cloud/strata-go"
)

// --- search ---

type searchRequest struct {
	Mode          string                   `json:"mode"`
	Vector        []float32                `json:"vector"`
	Query         string                   `json:"query"`
	Alpha         *float64                 `json:"alpha"`
	Limit         int                      `json:"limit"`
	Offset        int                      `json:"offset"`
	Filters       *strata.FilterExpression `json:"filters"`
	Properties    []string                 `json:"properties"`
	IncludeVector bool                     `json:"includeVector"`
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	bucket, ok := s.objectBucket(w, r)
	if !ok {
		return
	}

	hits := make([]strata.SearchHit, 0)
	for _, obj := range bucket {
		if !matchFilters(obj, req.Filters) {
			continue
		}
		var score float64
		switch req.Mode {
		case "vector":
			if len(obj.Vector) == 0 {
				continue
			}
			score = cosine(req.Vector, obj.Vector)
		case "bm25":
			score = keywordScore(obj, req.Query, req.Properties)
			if score == 0 {
				continue
			}
		case "hybrid":
			alpha := 0.5
			if req.Alpha != nil {
				alpha = *req.Alpha
			}
			vec := 0.0
			if len(obj.Vector) > 0 && len(req.Vector) > 0 {
				vec = cosine(req.Vector, obj.Vector)
			}
			kw := keywordScore(obj, req.Query, req.Properties)
			score = alpha*vec + (1-alpha)*kw
			if score == 0 {
				continue
			}
		default:
			writeErr(w, http.StatusUnprocessableEntity, "unknown search mode "+req.Mode)
			return
		}
		hit := strata.SearchHit{ID: obj.ID, Score: score, Properties: obj.Properties}
		if req.IncludeVector {
			hit.Vector = obj.Vector
		}
		hits = append(hits, hit)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if req.Offset > 0 {
		if req.Offset >= len(hits) {
			hits = nil
		} else {
			hits = hits[req.Offset:]
		}
	}
	if req.Limit > 0 && req.Limit < len(hits) {
		hits = hits[:req.Limit]
	}
	writeJSON(w, http.StatusOK, map[string]any{"hits": hits})
}

// keywordScore is the fraction of query terms present in the object's text
// properties. Not BM25, but ranks the obvious cases the same way.
func keywordScore(obj strata.Object, query string, props []string) float64 {
	qterms := terms(query)
	if len(qterms) == 0 {
		return 0
	}
	var text []string
	for name, v := range obj.Properties {
		str, ok := v.(string)
		if !ok {
			continue
		}
		if len(props) > 0 && !contains(props, name) {
			continue
		}
		text = append(text, terms(str)...)
	}
	matched := 0
	for _, t := range qterms {
		if contains(text, t) {
			matched++
		}
	}
	return float64(matched) / float64(len(qterms))
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

// --- filters ---

func matchFilters(obj strata.Object, f *strata.FilterExpression) bool {
	if f == nil {
		return true
	}
	for _, c := range f.Must {
		if !matchCondition(obj, c) {
			return false
		}
	}
	for _, c := range f.MustNot {
		if matchCondition(obj, c) {
			return false
		}
	}
	if len(f.Should) > 0 {
		any := false
		for _, c := range f.Should {
			if matchCondition(obj, c) {
				any = true
				break
			}
		}
		if !any {
			return false
		}
	}
	return true
}

func matchCondition(obj strata.Object, c strata.FilterCondition) bool {
	v, ok := obj.Properties[c.Property]
	if !ok {
		return false
	}
	if c.Match != "" {
		return fmt.Sprintf("%v", v) == c.Match
	}
	if c.Range != nil {
		n, ok := toFloat(v)
		if !ok {
			return false
		}
		r := c.Range
		if r.GT != nil && !(n > *r.GT) {
			return false
		}
		if r.GTE != nil && !(n >= *r.GTE) {
			return false
		}
		if r.LT != nil && !(n < *r.LT) {
			return false
		}
		if r.LTE != nil && !(n <= *r.LTE) {
			return false
		}
		return true
	}
	return true
}

// --- aggregate ---

type aggregateRequest struct {
	Properties []string                 `json:"properties"`
	Filters    *strata.FilterExpression `json:"filters"`
	GroupBy    string                   `json:"groupBy"`
}

func (s *Server) aggregate(w http.ResponseWriter, r *http.Request) {
	var req aggregateRequest
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	bucket, ok := s.objectBucket(w, r)
	if !ok {
		return
	}

	var matched []strata.Object
	for _, obj := range bucket {
		if matchFilters(obj, req.Filters) {
			matched = append(matched, obj)
		}
	}

	res := strata.AggregateResult{Count: len(matched)}
	res.Properties = aggregateProps(matched, req.Properties)

	if req.GroupBy != "" {
		groups := make(map[string][]strata.Object)
		var order []string
		for _, obj := range matched {
			key := fmt.Sprintf("%v", obj.Properties[req.GroupBy])
			if _, seen := groups[key]; !seen {
				order = append(order, key)
			}
			groups[key] = append(groups[key], obj)
		}
		sort.Strings(order)
		for _, key := range order {
			res.Groups = append(res.Groups, strata.AggregateGroup{
				Value:      key,
				Count:      len(groups[key]),
				Properties: aggregateProps(groups[key], req.Properties),
			})
		}
	}
	writeJSON(w, http.StatusOK, res)
}

func aggregateProps(objs []strata.Object, props []string) map[string]strata.PropertyAggregation {
	if len(props) == 0 {
		return nil
	}
	out := make(map[string]strata.PropertyAggregation, len(props))
	for _, name := range props {
		var agg strata.PropertyAggregation
		for _, obj := range objs {
			n, ok := toFloat(obj.Properties[name])
			if !ok {
				continue
			}
			if agg.Count == 0 || n < agg.Min {
				agg.Min = n
			}
			if agg.Count == 0 || n > agg.Max {
				agg.Max = n
			}
			agg.Sum += n
			agg.Count++
		}
		if agg.Count > 0 {
			agg.Mean = agg.Sum / float64(agg.Count)
		}
		out[name] = agg
	}
	return out
}

// --- batch ---

func (s *Server) batchInsert(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Objects []strata.Object `json:"objects"`
	}
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	tenant := r.URL.Query().Get("tenant")

	type itemResult struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Error  string `json:"error,omitempty"`
	}
	results := make([]itemResult, 0, len(req.Objects))
	fail := func(id, msg string) {
		results = append(results, itemResult{ID: id, Status: "error", Error: msg})
	}

	for _, obj := range req.Objects {
		col, ok := s.resolve(obj.Collection)
		if !ok {
			fail(obj.ID, "collection "+obj.Collection+" not found")
			continue
		}
		bucket, msg := s.bucket(col, tenant, true)
		if bucket == nil {
			fail(obj.ID, msg)
			continue
		}
		if obj.ID == "" {
			obj.ID = uuid.NewString()
		}
		if dim := col.config.VectorDimensions; dim > 0 && len(obj.Vector) > 0 && len(obj.Vector) != dim {
			fail(obj.ID, fmt.Sprintf("vector dimension %d, collection expects %d", len(obj.Vector), dim))
			continue
		}
		obj.Tenant = tenant
		bucket[obj.ID] = obj
		results = append(results, itemResult{ID: obj.ID, Status: "ok"})
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) batchDelete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Collection string                  `json:"collection"`
		Filters    strata.FilterExpression `json:"filters"`
	}
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	col, ok := s.resolve(req.Collection)
	if !ok {
		writeErr(w, http.StatusNotFound, "collection not found")
		return
	}
	bucket, msg := s.bucket(col, r.URL.Query().Get("tenant"), false)
	if bucket == nil {
		writeErr(w, http.StatusUnprocessableEntity, msg)
		return
	}

	matched := 0
	for id, obj := range bucket {
		if matchFilters(obj, &req.Filters) {
			matched++
			delete(bucket, id)
		}
	}
	writeJSON(w, http.StatusOK, strata.BatchDeleteSummary{
		Matched: matched,
		Deleted: matched,
	})
}

// --- tenants ---

func (s *Server) tenantCollection(w http.ResponseWriter, r *http.Request) (*fakeCollection, bool) {
	col, ok := s.resolve(chi.URLParam(r, "collection"))
	if !ok {
		writeErr(w, http.StatusNotFound, "collection not found")
		return nil, false
	}
	if !col.config.MultiTenancy.Enabled {
		writeErr(w, http.StatusUnprocessableEntity, "collection is not multi-tenant")
		return nil, false
	}
	return col, true
}

func (s *Server) createTenants(w http.ResponseWriter, r *http.Request) {
	var tenants []strata.Tenant
	if !decode(w, r, &tenants) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	col, ok := s.tenantCollection(w, r)
	if !ok {
		return
	}
	for _, t := range tenants {
		if _, exists := col.tenants[t.Name]; exists {
			writeErr(w, http.StatusConflict, "tenant "+t.Name+" already exists")
			return
		}
	}
	for _, t := range tenants {
		status := t.Status
		if status == "" {
			status = strata.TenantHot
		}
		col.tenants[t.Name] = status
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) listTenants(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	col, ok := s.tenantCollection(w, r)
	if !ok {
		return
	}
	out := make([]strata.Tenant, 0, len(col.tenants))
	for name, status := range col.tenants {
		out = append(out, strata.Tenant{Name: name, Status: status})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	writeJSON(w, http.StatusOK, map[string]any{"tenants": out})
}

func (s *Server) getTenant(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	col, ok := s.tenantCollection(w, r)
	if !ok {
		return
	}
	name := chi.URLParam(r, "name")
	status, ok := col.tenants[name]
	if !ok {
		writeErr(w, http.StatusNotFound, "tenant not found")
		return
	}
	writeJSON(w, http.StatusOK, strata.Tenant{Name: name, Status: status})
}

func (s *Server) updateTenants(w http.ResponseWriter, r *http.Request) {
	var tenants []strata.Tenant
	if !decode(w, r, &tenants) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	col, ok := s.tenantCollection(w, r)
	if !ok {
		return
	}
	for _, t := range tenants {
		if _, exists := col.tenants[t.Name]; !exists {
			writeErr(w, http.StatusNotFound, "tenant "+t.Name+" not found")
			return
		}
	}
	for _, t := range tenants {
		col.tenants[t.Name] = t.Status
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) deleteTenants(w http.ResponseWriter, r *http.Request) {
	var names []string
	if !decode(w, r, &names) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	col, ok := s.tenantCollection(w, r)
	if !ok {
		return
	}
	for _, name := range names {
		delete(col.tenants, name)
		delete(col.objects, name)
	}
	w.WriteHeader(http.StatusNoContent)
}
