package strata

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Action is a permission verb recognized by the server.
type Action string

// Permission actions.
const (
	ActionReadData          Action = "read_data"
	ActionWriteData         Action = "write_data"
	ActionManageCollections Action = "manage_collections"
	ActionManageTenants     Action = "manage_tenants"
	ActionManageBackups     Action = "manage_backups"
	ActionManageReplication Action = "manage_replication"
	ActionManageRoles       Action = "manage_roles"
	ActionManageAliases     Action = "manage_aliases"
)

// Permission grants an action, optionally scoped to one collection.
// An empty Collection means all collections.
type Permission struct {
	Action     Action `json:"action"`
	Collection string `json:"collection,omitempty"`
}

// PermitData grants read and/or write on a collection's objects.
func PermitData(collection string, actions ...Action) []Permission {
	perms := make([]Permission, len(actions))
	for i, a := range actions {
		perms[i] = Permission{Action: a, Collection: collection}
	}
	return perms
}

// PermitBackups grants backup management for a collection.
func PermitBackups(collection string) []Permission {
	return []Permission{{Action: ActionManageBackups, Collection: collection}}
}

// PermitCluster grants cluster-wide administrative actions.
func PermitCluster(actions ...Action) []Permission {
	perms := make([]Permission, len(actions))
	for i, a := range actions {
		perms[i] = Permission{Action: a}
	}
	return perms
}

// Role is a named set of permissions.
type Role struct {
	Name        string       `json:"name"`
	Permissions []Permission `json:"permissions"`
}

// RoleService manages roles and their permissions.
type RoleService struct {
	rest transport
	obs  *observer
}

// Create creates a role. An existing name surfaces ErrConflict.
func (s *RoleService) Create(ctx context.Context, role Role) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("role.create", start, err) }()

	if err = s.rest.Do(ctx, http.MethodPost, "/v1/roles", nil, role, nil); err != nil {
		return fmt.Errorf("create role: %w", err)
	}
	return nil
}

// Get retrieves a role by name.
func (s *RoleService) Get(ctx context.Context, name string) (_ Role, err error) {
	start := time.Now()
	defer func() { s.obs.observe("role.get", start, err) }()

	var out Role
	if err = s.rest.Do(ctx, http.MethodGet, "/v1/roles/"+url.PathEscape(name), nil, nil, &out); err != nil {
		return Role{}, fmt.Errorf("get role: %w", err)
	}
	return out, nil
}

// List returns all roles.
func (s *RoleService) List(ctx context.Context) (_ []Role, err error) {
	start := time.Now()
	defer func() { s.obs.observe("role.list", start, err) }()

	var out struct {
		Roles []Role `json:"roles"`
	}
	if err = s.rest.Do(ctx, http.MethodGet, "/v1/roles", nil, nil, &out); err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return out.Roles, nil
}

// Delete removes a role. Users holding it lose its permissions.
func (s *RoleService) Delete(ctx context.Context, name string) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("role.delete", start, err) }()

	if err = s.rest.Do(ctx, http.MethodDelete, "/v1/roles/"+url.PathEscape(name), nil, nil, nil); err != nil {
		return fmt.Errorf("delete role: %w", err)
	}
	return nil
}

// AddPermissions grants additional permissions to an existing role.
func (s *RoleService) AddPermissions(
	ctx context.Context, name string, perms ...Permission,
) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("role.add_permissions", start, err) }()

	path := "/v1/roles/" + url.PathEscape(name) + "/permissions/add"
	if err = s.rest.Do(ctx, http.MethodPost, path, nil, perms, nil); err != nil {
		return fmt.Errorf("add permissions: %w", err)
	}
	return nil
}

// RemovePermissions revokes permissions from an existing role.
func (s *RoleService) RemovePermissions(
	ctx context.Context, name string, perms ...Permission,
) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("role.remove_permissions", start, err) }()

	path := "/v1/roles/" + url.PathEscape(name) + "/permissions/remove"
	if err = s.rest.Do(ctx, http.MethodPost, path, nil, perms, nil); err != nil {
		return fmt.Errorf("remove permissions: %w", err)
	}
	return nil
}

// User is a database user identified by an API key.
type User struct {
	ID        string   `json:"id"`
	Roles     []string `json:"roles,omitempty"`
	Active    bool     `json:"active"`
	CreatedAt int64    `json:"createdAt,omitempty"`
}

// UserService manages users, API keys and role assignments.
type UserService struct {
	rest transport
	obs  *observer
}

// Create creates a user and returns its freshly minted API key. The key is
// shown exactly once; the server stores only a hash.
func (s *UserService) Create(ctx context.Context, id string) (_ string, err error) {
	start := time.Now()
	defer func() { s.obs.observe("user.create", start, err) }()

	var out struct {
		APIKey string `json:"apiKey"`
	}
	if err = s.rest.Do(ctx, http.MethodPost, "/v1/users", nil, User{ID: id}, &out); err != nil {
		return "", fmt.Errorf("create user: %w", err)
	}
	return out.APIKey, nil
}

// Get retrieves a user by id.
func (s *UserService) Get(ctx context.Context, id string) (_ User, err error) {
	start := time.Now()
	defer func() { s.obs.observe("user.get", start, err) }()

	var out User
	if err = s.rest.Do(ctx, http.MethodGet, "/v1/users/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return out, nil
}

// List returns all users.
func (s *UserService) List(ctx context.Context) (_ []User, err error) {
	start := time.Now()
	defer func() { s.obs.observe("user.list", start, err) }()

	var out struct {
		Users []User `json:"users"`
	}
	if err = s.rest.Do(ctx, http.MethodGet, "/v1/users", nil, nil, &out); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return out.Users, nil
}

// Delete removes a user and invalidates its API key.
func (s *UserService) Delete(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("user.delete", start, err) }()

	if err = s.rest.Do(ctx, http.MethodDelete, "/v1/users/"+url.PathEscape(id), nil, nil, nil); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// RotateKey invalidates the user's API key and returns a new one.
func (s *UserService) RotateKey(ctx context.Context, id string) (_ string, err error) {
	start := time.Now()
	defer func() { s.obs.observe("user.rotate_key", start, err) }()

	var out struct {
		APIKey string `json:"apiKey"`
	}
	path := "/v1/users/" + url.PathEscape(id) + "/rotate-key"
	if err = s.rest.Do(ctx, http.MethodPost, path, nil, nil, &out); err != nil {
		return "", fmt.Errorf("rotate key: %w", err)
	}
	return out.APIKey, nil
}

// AssignRoles grants roles to a user.
func (s *UserService) AssignRoles(
	ctx context.Context, id string, roles ...string,
) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("user.assign_roles", start, err) }()

	path := "/v1/users/" + url.PathEscape(id) + "/roles/assign"
	if err = s.rest.Do(ctx, http.MethodPost, path, nil, roles, nil); err != nil {
		return fmt.Errorf("assign roles: %w", err)
	}
	return nil
}

// RevokeRoles removes roles from a user.
func (s *UserService) RevokeRoles(
	ctx context.Context, id string, roles ...string,
) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("user.revoke_roles", start, err) }()

	path := "/v1/users/" + url.PathEscape(id) + "/roles/revoke"
	if err = s.rest.Do(ctx, http.MethodPost, path, nil, roles, nil); err != nil {
		return fmt.Errorf("revoke roles: %w", err)
	}
	return nil
}
