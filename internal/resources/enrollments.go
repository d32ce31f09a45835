package resources

import (
	"context"
	"net/http"

	"studentinfo/sis-console/internal/apiclient"
)

type Enrollment struct {
	ID             int64  `json:"id"`
	StudentID      int64  `json:"student_id"`
	StudentName    string `json:"student_name,omitempty"`
	CourseID       int64  `json:"course_id"`
	CourseName     string `json:"course_name,omitempty"`
	Semester       string `json:"semester,omitempty"`
	Status         string `json:"status"`
	EnrollmentDate string `json:"enrollment_date,omitempty"`
	ApprovedBy     int64  `json:"approved_by,omitempty"`
	ApprovedAt     string `json:"approved_at,omitempty"`
	Notes          string `json:"notes,omitempty"`
}

type EnrollmentListParams struct {
	ListParams `query:",squash"`
	StudentID  int64  `query:"student_id,omitempty"`
	CourseID   int64  `query:"course_id,omitempty"`
	Semester   string `query:"semester,omitempty"`
	Status     string `query:"status,omitempty"`
}

type EnrollmentInput struct {
	StudentID int64  `json:"student_id" validate:"required"`
	CourseID  int64  `json:"course_id" validate:"required"`
	Semester  string `json:"semester,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

type Conflict struct {
	HasConflict bool     `json:"has_conflict"`
	Conflicts   []string `json:"conflicts,omitempty"`
}

type Enrollments struct {
	b *base
}

func (e *Enrollments) List(ctx context.Context, params EnrollmentListParams) (Page[Enrollment], error) {
	return fetch[Page[Enrollment]](ctx, e.b, "/enrollments", params)
}

func (e *Enrollments) Get(ctx context.Context, id int64) (Enrollment, error) {
	return fetch[Enrollment](ctx, e.b, path("/enrollments/%d", id), nil)
}

func (e *Enrollments) Create(ctx context.Context, in EnrollmentInput) (Enrollment, error) {
	return send[Enrollment](ctx, e.b, http.MethodPost, "/enrollments", in)
}

func (e *Enrollments) Update(ctx context.Context, id int64, in EnrollmentInput) (Enrollment, error) {
	return send[Enrollment](ctx, e.b, http.MethodPut, path("/enrollments/%d", id), in)
}

func (e *Enrollments) Delete(ctx context.Context, id int64) error {
	return exec(ctx, e.b, http.MethodDelete, path("/enrollments/%d", id), nil)
}

func (e *Enrollments) Approve(ctx context.Context, id int64) error {
	return exec(ctx, e.b, http.MethodPost, path("/enrollments/%d/approve", id), nil)
}

func (e *Enrollments) Reject(ctx context.Context, id int64, reason string) error {
	return exec(ctx, e.b, http.MethodPost, path("/enrollments/%d/reject", id), map[string]string{"reason": reason})
}

func (e *Enrollments) BatchApprove(ctx context.Context, ids []int64) error {
	return exec(ctx, e.b, http.MethodPost, "/enrollments/batch-approve", IDs{IDs: ids})
}

func (e *Enrollments) CheckConflict(ctx context.Context, studentID, courseID int64) (Conflict, error) {
	return fetch[Conflict](ctx, e.b, "/enrollments/check-conflict", struct {
		StudentID int64 `query:"student_id"`
		CourseID  int64 `query:"course_id"`
	}{studentID, courseID})
}

func (e *Enrollments) AvailableCourses(ctx context.Context, studentID int64, semester string) ([]Course, error) {
	return fetch[[]Course](ctx, e.b, path("/students/%d/available-courses", studentID), struct {
		Semester string `query:"semester,omitempty"`
	}{semester})
}

func (e *Enrollments) Import(ctx context.Context, f File) (ImportResult, error) {
	return importFile(ctx, e.b, "/enrollments/import", f)
}

func (e *Enrollments) Export(ctx context.Context, params EnrollmentListParams) (*apiclient.Raw, error) {
	return download(ctx, e.b, http.MethodGet, "/enrollments/export", params, nil)
}
