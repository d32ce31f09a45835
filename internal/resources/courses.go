package resources

import (
	"context"
	"net/http"

	"studentinfo/sis-console/internal/apiclient"
)

type Course struct {
	ID            int64   `json:"id"`
	CourseCode    string  `json:"course_code"`
	Name          string  `json:"name"`
	Description   string  `json:"description,omitempty"`
	Credits       float64 `json:"credits"`
	Hours         int     `json:"hours,omitempty"`
	CourseType    string  `json:"course_type,omitempty"`
	Department    string  `json:"department,omitempty"`
	TeacherID     int64   `json:"teacher_id,omitempty"`
	TeacherName   string  `json:"teacher_name,omitempty"`
	Semester      string  `json:"semester,omitempty"`
	MaxStudents   int     `json:"max_students,omitempty"`
	EnrolledCount int     `json:"enrolled_count,omitempty"`
	Schedule      string  `json:"schedule,omitempty"`
	Classroom     string  `json:"classroom,omitempty"`
	Status        string  `json:"status"`
	CreatedAt     string  `json:"created_at,omitempty"`
	UpdatedAt     string  `json:"updated_at,omitempty"`
}

type CourseListParams struct {
	ListParams `query:",squash"`
	Semester   string `query:"semester,omitempty"`
	Department string `query:"department,omitempty"`
	TeacherID  int64  `query:"teacher_id,omitempty"`
	CourseType string `query:"course_type,omitempty"`
	Status     string `query:"status,omitempty"`
}

type CourseInput struct {
	CourseCode  string  `json:"course_code" validate:"required"`
	Name        string  `json:"name" validate:"required,max=200"`
	Description string  `json:"description,omitempty"`
	Credits     float64 `json:"credits" validate:"gte=0,lte=20"`
	Hours       int     `json:"hours,omitempty" validate:"gte=0"`
	CourseType  string  `json:"course_type,omitempty" validate:"omitempty,oneof=required elective public"`
	Department  string  `json:"department,omitempty"`
	TeacherID   int64   `json:"teacher_id,omitempty"`
	Semester    string  `json:"semester,omitempty"`
	MaxStudents int     `json:"max_students,omitempty" validate:"gte=0"`
	Schedule    string  `json:"schedule,omitempty"`
	Classroom   string  `json:"classroom,omitempty"`
	Status      string  `json:"status,omitempty"`
}

type Courses struct {
	b *base
}

func (c *Courses) List(ctx context.Context, params CourseListParams) (Page[Course], error) {
	return fetch[Page[Course]](ctx, c.b, "/courses", params)
}

func (c *Courses) Get(ctx context.Context, id int64) (Course, error) {
	return fetch[Course](ctx, c.b, path("/courses/%d", id), nil)
}

func (c *Courses) Create(ctx context.Context, in CourseInput) (Course, error) {
	return send[Course](ctx, c.b, http.MethodPost, "/courses", in)
}

func (c *Courses) Update(ctx context.Context, id int64, in CourseInput) (Course, error) {
	return send[Course](ctx, c.b, http.MethodPut, path("/courses/%d", id), in)
}

func (c *Courses) Delete(ctx context.Context, id int64) error {
	return exec(ctx, c.b, http.MethodDelete, path("/courses/%d", id), nil)
}

func (c *Courses) BatchDelete(ctx context.Context, ids []int64) error {
	return exec(ctx, c.b, http.MethodDelete, "/courses/batch", IDs{IDs: ids})
}

func (c *Courses) Students(ctx context.Context, id int64, params ListParams) (Page[Student], error) {
	return fetch[Page[Student]](ctx, c.b, path("/courses/%d/students", id), params)
}

func (c *Courses) Statistics(ctx context.Context, id int64) (map[string]any, error) {
	return fetch[map[string]any](ctx, c.b, path("/courses/%d/statistics", id), nil)
}

func (c *Courses) Import(ctx context.Context, f File) (ImportResult, error) {
	return importFile(ctx, c.b, "/courses/import", f)
}

func (c *Courses) Export(ctx context.Context, params CourseListParams) (*apiclient.Raw, error) {
	return download(ctx, c.b, http.MethodGet, "/courses/export", params, nil)
}
