package stratatest

import (
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	strata "github.com/kailas-cloud/strata-go"
)

// --- roles ---

func (s *Server) createRole(w http.ResponseWriter, r *http.Request) {
	var role strata.Role
	if !decode(w, r, &role) {
		return
	}
	if role.Name == "" {
		writeErr(w, http.StatusUnprocessableEntity, "role name required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.roles[role.Name]; ok {
		writeErr(w, http.StatusConflict, "role "+role.Name+" already exists")
		return
	}
	s.roles[role.Name] = role
	w.WriteHeader(http.StatusOK)
}

func (s *Server) getRole(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	role, ok := s.roles[chi.URLParam(r, "name")]
	if !ok {
		writeErr(w, http.StatusNotFound, "role not found")
		return
	}
	writeJSON(w, http.StatusOK, role)
}

func (s *Server) listRoles(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]strata.Role, 0, len(s.roles))
	for _, role := range s.roles {
		out = append(out, role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	writeJSON(w, http.StatusOK, map[string]any{"roles": out})
}

func (s *Server) deleteRole(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := chi.URLParam(r, "name")
	if _, ok := s.roles[name]; !ok {
		writeErr(w, http.StatusNotFound, "role not found")
		return
	}
	delete(s.roles, name)
	for _, u := range s.users {
		u.user.Roles = remove(u.user.Roles, name)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) addPermissions(w http.ResponseWriter, r *http.Request) {
	var perms []strata.Permission
	if !decode(w, r, &perms) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	name := chi.URLParam(r, "name")
	role, ok := s.roles[name]
	if !ok {
		writeErr(w, http.StatusNotFound, "role not found")
		return
	}
	for _, p := range perms {
		if !hasPermission(role.Permissions, p) {
			role.Permissions = append(role.Permissions, p)
		}
	}
	s.roles[name] = role
	writeJSON(w, http.StatusOK, role)
}

func (s *Server) removePermissions(w http.ResponseWriter, r *http.Request) {
	var perms []strata.Permission
	if !decode(w, r, &perms) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	name := chi.URLParam(r, "name")
	role, ok := s.roles[name]
	if !ok {
		writeErr(w, http.StatusNotFound, "role not found")
		return
	}
	kept := role.Permissions[:0]
	for _, existing := range role.Permissions {
		if !hasPermission(perms, existing) {
			kept = append(kept, existing)
		}
	}
	role.Permissions = kept
	s.roles[name] = role
	writeJSON(w, http.StatusOK, role)
}

func hasPermission(perms []strata.Permission, p strata.Permission) bool {
	for _, existing := range perms {
		if existing == p {
			return true
		}
	}
	return false
}

func remove(xs []string, x string) []string {
	out := xs[:0]
	for _, v := range xs {
		if v != x {
			out = append(out, v)
		}
	}
	return out
}

// --- users ---

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var u strata.User
	if !decode(w, r, &u) {
		return
	}
	if u.ID == "" {
		writeErr(w, http.StatusUnprocessableEntity, "user id required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; ok {
		writeErr(w, http.StatusConflict, "user "+u.ID+" already exists")
		return
	}
	key := "strata-" + uuid.NewString()
	s.users[u.ID] = &fakeUser{
		user:   strata.User{ID: u.ID, Active: true, CreatedAt: time.Now().Unix()},
		apiKey: key,
	}
	writeJSON(w, http.StatusOK, map[string]string{"apiKey": key})
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[chi.URLParam(r, "id")]
	if !ok {
		writeErr(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, u.user)
}

func (s *Server) listUsers(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]strata.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u.user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, map[string]any{"users": out})
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := chi.URLParam(r, "id")
	if _, ok := s.users[id]; !ok {
		writeErr(w, http.StatusNotFound, "user not found")
		return
	}
	delete(s.users, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) rotateKey(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[chi.URLParam(r, "id")]
	if !ok {
		writeErr(w, http.StatusNotFound, "user not found")
		return
	}
	u.apiKey = "strata-" + uuid.NewString()
	writeJSON(w, http.StatusOK, map[string]string{"apiKey": u.apiKey})
}

func (s *Server) assignRoles(w http.ResponseWriter, r *http.Request) {
	var roles []string
	if !decode(w, r, &roles) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[chi.URLParam(r, "id")]
	if !ok {
		writeErr(w, http.StatusNotFound, "user not found")
		return
	}
	for _, role := range roles {
		if _, ok := s.roles[role]; !ok {
			writeErr(w, http.StatusNotFound, "role "+role+" not found")
			return
		}
	}
	for _, role := range roles {
		if !contains(u.user.Roles, role) {
			u.user.Roles = append(u.user.Roles, role)
		}
	}
	writeJSON(w, http.StatusOK, u.user)
}

func (s *Server) revokeRoles(w http.ResponseWriter, r *http.Request) {
	var roles []string
	if !decode(w, r, &roles) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[chi.URLParam(r, "id")]
	if !ok {
		writeErr(w, http.StatusNotFound, "user not found")
		return
	}
	for _, role := range roles {
		u.user.Roles = remove(u.user.Roles, role)
	}
	writeJSON(w, http.StatusOK, u.user)
}

// --- aliases ---

func (s *Server) createAlias(w http.ResponseWriter, r *http.Request) {
	var a strata.Alias
	if !decode(w, r, &a) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.aliases[a.Name]; taken {
		writeErr(w, http.StatusConflict, "alias "+a.Name+" already exists")
		return
	}
	if _, taken := s.collections[a.Name]; taken {
		writeErr(w, http.StatusConflict, "name "+a.Name+" is taken by a collection")
		return
	}
	if _, ok := s.collections[a.Collection]; !ok {
		writeErr(w, http.StatusNotFound, "collection "+a.Collection+" not found")
		return
	}
	s.aliases[a.Name] = a.Collection
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) getAlias(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := chi.URLParam(r, "alias")
	target, ok := s.aliases[name]
	if !ok {
		writeErr(w, http.StatusNotFound, "alias not found")
		return
	}
	writeJSON(w, http.StatusOK, strata.Alias{Name: name, Collection: target})
}

func (s *Server) listAliases(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	collection := r.URL.Query().Get("collection")
	out := make([]strata.Alias, 0, len(s.aliases))
	for name, target := range s.aliases {
		if collection != "" && target != collection {
			continue
		}
		out = append(out, strata.Alias{Name: name, Collection: target})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	writeJSON(w, http.StatusOK, map[string]any{"aliases": out})
}

func (s *Server) updateAlias(w http.ResponseWriter, r *http.Request) {
	var a strata.Alias
	if !decode(w, r, &a) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	name := chi.URLParam(r, "alias")
	if _, ok := s.aliases[name]; !ok {
		writeErr(w, http.StatusNotFound, "alias not found")
		return
	}
	if _, ok := s.collections[a.Collection]; !ok {
		writeErr(w, http.StatusNotFound, "collection "+a.Collection+" not found")
		return
	}
	s.aliases[name] = a.Collection
	writeJSON(w, http.StatusOK, strata.Alias{Name: name, Collection: a.Collection})
}

func (s *Server) deleteAlias(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := chi.URLParam(r, "alias")
	if _, ok := s.aliases[name]; !ok {
		writeErr(w, http.StatusNotFound, "alias not found")
		return
	}
	delete(s.aliases, name)
	w.WriteHeader(http.StatusNoContent)
}
