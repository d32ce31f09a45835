package resources

import (
	"context"
	"net/http"
	"net/url"

	"studentinfo/sis-console/internal/apiclient"
)

type Student struct {
	ID                   int64  `json:"id"`
	StudentID            string `json:"student_id"`
	Name                 string `json:"name"`
	Gender               string `json:"gender"`
	BirthDate            string `json:"birth_date,omitempty"`
	Phone                string `json:"phone,omitempty"`
	Email                string `json:"email,omitempty"`
	Address              string `json:"address,omitempty"`
	ClassID              string `json:"class_id,omitempty"`
	ClassName            string `json:"class_name,omitempty"`
	Major                string `json:"major,omitempty"`
	EnrollmentDate       string `json:"enrollment_date,omitempty"`
	GraduationDate       string `json:"graduation_date,omitempty"`
	Status               string `json:"status"`
	GuardianName         string `json:"guardian_name,omitempty"`
	GuardianPhone        string `json:"guardian_phone,omitempty"`
	GuardianRelationship string `json:"guardian_relationship,omitempty"`
	Notes                string `json:"notes,omitempty"`
	CreatedAt            string `json:"created_at,omitempty"`
	UpdatedAt            string `json:"updated_at,omitempty"`
}

type StudentListParams struct {
	ListParams `query:",squash"`
	ClassID    string `query:"class_id,omitempty"`
	Status     string `query:"status,omitempty"`
	Major      string `query:"major,omitempty"`
}

type StudentInput struct {
	StudentID            string `json:"student_id" validate:"required"`
	Name                 string `json:"name" validate:"required,max=100"`
	Gender               string `json:"gender" validate:"required"`
	BirthDate            string `json:"birth_date,omitempty"`
	Phone                string `json:"phone,omitempty"`
	Email                string `json:"email,omitempty" validate:"omitempty,email"`
	Address              string `json:"address,omitempty"`
	ClassID              string `json:"class_id,omitempty"`
	Major                string `json:"major,omitempty"`
	EnrollmentDate       string `json:"enrollment_date,omitempty"`
	Status               string `json:"status,omitempty" validate:"omitempty,oneof=active graduated suspended dropped"`
	GuardianName         string `json:"guardian_name,omitempty"`
	GuardianPhone        string `json:"guardian_phone,omitempty"`
	GuardianRelationship string `json:"guardian_relationship,omitempty"`
	Notes                string `json:"notes,omitempty"`
}

type GPA struct {
	GPA     float64 `json:"gpa"`
	Credits float64 `json:"credits"`
	Rank    int     `json:"rank,omitempty"`
}

type Students struct {
	b *base
}

func (s *Students) List(ctx context.Context, params StudentListParams) (Page[Student], error) {
	return fetch[Page[Student]](ctx, s.b, "/students", params)
}

func (s *Students) Get(ctx context.Context, id int64) (Student, error) {
	return fetch[Student](ctx, s.b, path("/students/%d", id), nil)
}

func (s *Students) Search(ctx context.Context, q string) ([]Student, error) {
	return fetch[[]Student](ctx, s.b, "/students/search", url.Values{"q": {q}})
}

func (s *Students) Create(ctx context.Context, in StudentInput) (Student, error) {
	return send[Student](ctx, s.b, http.MethodPost, "/students", in)
}

func (s *Students) Update(ctx context.Context, id int64, in StudentInput) (Student, error) {
	return send[Student](ctx, s.b, http.MethodPut, path("/students/%d", id), in)
}

func (s *Students) SetStatus(ctx context.Context, id int64, status string) error {
	return exec(ctx, s.b, http.MethodPatch, path("/students/%d/status", id), map[string]string{"status": status})
}

func (s *Students) Delete(ctx context.Context, id int64) error {
	return exec(ctx, s.b, http.MethodDelete, path("/students/%d", id), nil)
}

func (s *Students) BatchDelete(ctx context.Context, ids []int64) error {
	return exec(ctx, s.b, http.MethodDelete, "/students/batch", IDs{IDs: ids})
}

func (s *Students) Enrollments(ctx context.Context, id int64) ([]Enrollment, error) {
	return fetch[[]Enrollment](ctx, s.b, path("/students/%d/enrollments", id), nil)
}

func (s *Students) Grades(ctx context.Context, id int64, semester string) ([]Grade, error) {
	return fetch[[]Grade](ctx, s.b, path("/students/%d/grades", id), struct {
		Semester string `query:"semester,omitempty"`
	}{semester})
}

func (s *Students) GPA(ctx context.Context, id int64) (GPA, error) {
	return fetch[GPA](ctx, s.b, path("/students/%d/gpa", id), nil)
}

func (s *Students) Stats(ctx context.Context) (map[string]any, error) {
	return fetch[map[string]any](ctx, s.b, "/students/stats", nil)
}

func (s *Students) Import(ctx context.Context, f File) (ImportResult, error) {
	return importFile(ctx, s.b, "/students/import", f)
}

func (s *Students) Export(ctx context.Context, params StudentListParams) (*apiclient.Raw, error) {
	return download(ctx, s.b, http.MethodGet, "/students/export", params, nil)
}
