package resources

import (
	"context"
	"net/http"

	"studentinfo/sis-console/internal/apiclient"
)

type Teacher struct {
	ID             int64   `json:"id"`
	TeacherID      string  `json:"teacher_id"`
	Name           string  `json:"name"`
	Gender         string  `json:"gender"`
	Phone          string  `json:"phone,omitempty"`
	Email          string  `json:"email,omitempty"`
	Department     string  `json:"department,omitempty"`
	Title          string  `json:"title,omitempty"`
	Education      string  `json:"education,omitempty"`
	Specialization string  `json:"specialization,omitempty"`
	HireDate       string  `json:"hire_date,omitempty"`
	Status         string  `json:"status"`
	Salary         float64 `json:"salary,omitempty"`
	CreatedAt      string  `json:"created_at,omitempty"`
	UpdatedAt      string  `json:"updated_at,omitempty"`
}

type TeacherListParams struct {
	ListParams `query:",squash"`
	Department string `query:"department,omitempty"`
	Title      string `query:"title,omitempty"`
	Status     string `query:"status,omitempty"`
}

type TeacherInput struct {
	TeacherID      string  `json:"teacher_id" validate:"required"`
	Name           string  `json:"name" validate:"required,max=100"`
	Gender         string  `json:"gender" validate:"required"`
	Phone          string  `json:"phone,omitempty"`
	Email          string  `json:"email,omitempty" validate:"omitempty,email"`
	Department     string  `json:"department,omitempty"`
	Title          string  `json:"title,omitempty"`
	Education      string  `json:"education,omitempty"`
	Specialization string  `json:"specialization,omitempty"`
	HireDate       string  `json:"hire_date,omitempty"`
	Status         string  `json:"status,omitempty" validate:"omitempty,oneof=active inactive retired"`
	Salary         float64 `json:"salary,omitempty" validate:"gte=0"`
}

type Teachers struct {
	b *base
}

func (t *Teachers) List(ctx context.Context, params TeacherListParams) (Page[Teacher], error) {
	return fetch[Page[Teacher]](ctx, t.b, "/teachers", params)
}

func (t *Teachers) Get(ctx context.Context, id int64) (Teacher, error) {
	return fetch[Teacher](ctx, t.b, path("/teachers/%d", id), nil)
}

func (t *Teachers) Create(ctx context.Context, in TeacherInput) (Teacher, error) {
	return send[Teacher](ctx, t.b, http.MethodPost, "/teachers", in)
}

func (t *Teachers) Update(ctx context.Context, id int64, in TeacherInput) (Teacher, error) {
	return send[Teacher](ctx, t.b, http.MethodPut, path("/teachers/%d", id), in)
}

func (t *Teachers) Delete(ctx context.Context, id int64) error {
	return exec(ctx, t.b, http.MethodDelete, path("/teachers/%d", id), nil)
}

func (t *Teachers) BatchDelete(ctx context.Context, ids []int64) error {
	return exec(ctx, t.b, http.MethodDelete, "/teachers/batch", IDs{IDs: ids})
}

func (t *Teachers) Courses(ctx context.Context, id int64) ([]Course, error) {
	return fetch[[]Course](ctx, t.b, path("/teachers/%d/courses", id), nil)
}

func (t *Teachers) Statistics(ctx context.Context, id int64) (map[string]any, error) {
	return fetch[map[string]any](ctx, t.b, path("/teachers/%d/statistics", id), nil)
}

func (t *Teachers) Import(ctx context.Context, f File) (ImportResult, error) {
	return importFile(ctx, t.b, "/teachers/import", f)
}

func (t *Teachers) Export(ctx context.Context, params TeacherListParams) (*apiclient.Raw, error) {
	return download(ctx, t.b, http.MethodGet, "/teachers/export", params, nil)
}
