package resources

import (
	"context"
	"net/http"

	"studentinfo/sis-console/internal/apiclient"
	"studentinfo/sis-console/internal/session"
)

type UserListParams struct {
	ListParams `query:",squash"`
	Role       string `query:"role,omitempty"`
	Status     string `query:"status,omitempty"`
}

type UserInput struct {
	Username string   `json:"username" validate:"required,min=3,max=50"`
	Email    string   `json:"email" validate:"required,email"`
	Password string   `json:"password,omitempty" validate:"omitempty,min=6"`
	RealName string   `json:"real_name,omitempty"`
	Phone    string   `json:"phone,omitempty"`
	Roles    []string `json:"roles,omitempty"`
	Status   string   `json:"status,omitempty" validate:"omitempty,oneof=active inactive locked"`
}

type UserAccess struct {
	Permissions []string `json:"permissions"`
	Roles       []string `json:"roles"`
}

type Permission struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Code        string `json:"code"`
	Description string `json:"description,omitempty"`
	Module      string `json:"module,omitempty"`
}

type Role struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name" validate:"required"`
	Code        string       `json:"code" validate:"required"`
	Description string       `json:"description,omitempty"`
	Permissions []Permission `json:"permissions,omitempty"`
}

type Users struct {
	b *base
}

func (u *Users) List(ctx context.Context, params UserListParams) (Page[session.UserProfile], error) {
	return fetch[Page[session.UserProfile]](ctx, u.b, "/users", params)
}

func (u *Users) Get(ctx context.Context, id int64) (session.UserProfile, error) {
	return fetch[session.UserProfile](ctx, u.b, path("/users/%d", id), nil)
}

func (u *Users) Create(ctx context.Context, in UserInput) (session.UserProfile, error) {
	return send[session.UserProfile](ctx, u.b, http.MethodPost, "/users", in)
}

func (u *Users) Update(ctx context.Context, id int64, in UserInput) (session.UserProfile, error) {
	return send[session.UserProfile](ctx, u.b, http.MethodPut, path("/users/%d", id), in)
}

func (u *Users) Delete(ctx context.Context, id int64) error {
	return exec(ctx, u.b, http.MethodDelete, path("/users/%d", id), nil)
}

func (u *Users) BatchDelete(ctx context.Context, ids []int64) error {
	return exec(ctx, u.b, http.MethodPost, "/users/batch-delete", IDs{IDs: ids})
}

func (u *Users) SetStatus(ctx context.Context, id int64, status string) error {
	return exec(ctx, u.b, http.MethodPatch, path("/users/%d/status", id), struct {
		Status string `json:"status" validate:"required,oneof=active inactive locked"`
	}{status})
}

func (u *Users) ResetPassword(ctx context.Context, id int64, newPassword string) error {
	return exec(ctx, u.b, http.MethodPost, path("/users/%d/reset-password", id), struct {
		NewPassword string `json:"new_password" validate:"required,min=6"`
	}{newPassword})
}

func (u *Users) Access(ctx context.Context, id int64) (UserAccess, error) {
	return fetch[UserAccess](ctx, u.b, path("/users/%d/permissions", id), nil)
}

func (u *Users) SetRoles(ctx context.Context, id int64, roles []string) error {
	return exec(ctx, u.b, http.MethodPut, path("/users/%d/permissions", id), map[string][]string{"roles": roles})
}

func (u *Users) Stats(ctx context.Context) (map[string]any, error) {
	return fetch[map[string]any](ctx, u.b, "/users/stats", nil)
}

func (u *Users) Import(ctx context.Context, f File) (ImportResult, error) {
	return importFile(ctx, u.b, "/users/import", f)
}

func (u *Users) Export(ctx context.Context, params UserListParams) (*apiclient.Raw, error) {
	return download(ctx, u.b, http.MethodGet, "/users/export", params, nil)
}

// Catalog returns every permission and role the server knows about.
func (u *Users) Catalog(ctx context.Context) ([]Permission, []Role, error) {
	out, err := fetch[struct {
		Permissions []Permission `json:"permissions"`
		Roles       []Role       `json:"roles"`
	}](ctx, u.b, "/permissions", nil)
	return out.Permissions, out.Roles, err
}

func (u *Users) Roles(ctx context.Context) ([]Role, error) {
	return fetch[[]Role](ctx, u.b, "/roles", nil)
}

func (u *Users) Role(ctx context.Context, id int64) (Role, error) {
	return fetch[Role](ctx, u.b, path("/roles/%d", id), nil)
}

func (u *Users) CreateRole(ctx context.Context, in Role) (Role, error) {
	return send[Role](ctx, u.b, http.MethodPost, "/roles", in)
}

func (u *Users) UpdateRole(ctx context.Context, id int64, in Role) (Role, error) {
	return send[Role](ctx, u.b, http.MethodPut, path("/roles/%d", id), in)
}

func (u *Users) DeleteRole(ctx context.Context, id int64) error {
	return exec(ctx, u.b, http.MethodDelete, path("/roles/%d", id), nil)
}

func (u *Users) SetRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	return exec(ctx, u.b, http.MethodPut, path("/roles/%d/permissions", roleID), map[string][]int64{"permission_ids": permissionIDs})
}
