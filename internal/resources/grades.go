package resources

import (
	"context"
	"net/http"

	"studentinfo/sis-console/internal/apiclient"
)

type Grade struct {
	ID           int64   `json:"id"`
	StudentID    int64   `json:"student_id"`
	StudentName  string  `json:"student_name,omitempty"`
	CourseID     int64   `json:"course_id"`
	CourseName   string  `json:"course_name,omitempty"`
	Semester     string  `json:"semester,omitempty"`
	RegularScore float64 `json:"regular_score,omitempty"`
	MidtermScore float64 `json:"midterm_score,omitempty"`
	FinalScore   float64 `json:"final_score,omitempty"`
	TotalScore   float64 `json:"total_score"`
	GradeLevel   string  `json:"grade_level,omitempty"`
	GradePoint   float64 `json:"grade_point,omitempty"`
	IsPublished  bool    `json:"is_published"`
	IsLocked     bool    `json:"is_locked"`
	Comments     string  `json:"comments,omitempty"`
	CreatedAt    string  `json:"created_at,omitempty"`
	UpdatedAt    string  `json:"updated_at,omitempty"`
}

type GradeListParams struct {
	ListParams  `query:",squash"`
	StudentID   int64  `query:"student_id,omitempty"`
	CourseID    int64  `query:"course_id,omitempty"`
	Semester    string `query:"semester,omitempty"`
	IsPublished string `query:"is_published,omitempty"`
}

type GradeInput struct {
	StudentID    int64   `json:"student_id" validate:"required"`
	CourseID     int64   `json:"course_id" validate:"required"`
	Semester     string  `json:"semester,omitempty"`
	RegularScore float64 `json:"regular_score,omitempty" validate:"gte=0,lte=100"`
	MidtermScore float64 `json:"midterm_score,omitempty" validate:"gte=0,lte=100"`
	FinalScore   float64 `json:"final_score,omitempty" validate:"gte=0,lte=100"`
	TotalScore   float64 `json:"total_score,omitempty" validate:"gte=0,lte=100"`
	Comments     string  `json:"comments,omitempty"`
}

type BulkGrades struct {
	CourseID int64        `json:"course_id" validate:"required"`
	Semester string       `json:"semester,omitempty"`
	Grades   []GradeInput `json:"grades" validate:"required,min=1,dive"`
}

type GradeSummary struct {
	StudentID    int64   `json:"student_id"`
	GPA          float64 `json:"gpa"`
	TotalCredits float64 `json:"total_credits"`
	AverageScore float64 `json:"average_score"`
	CourseCount  int     `json:"course_count"`
	Grades       []Grade `json:"grades,omitempty"`
}

type GradeStatistics struct {
	Count        int            `json:"count"`
	AverageScore float64        `json:"average_score"`
	MaxScore     float64        `json:"max_score"`
	MinScore     float64        `json:"min_score"`
	PassRate     float64        `json:"pass_rate"`
	Distribution map[string]int `json:"distribution,omitempty"`
}

type Grades struct {
	b *base
}

func (g *Grades) List(ctx context.Context, params GradeListParams) (Page[Grade], error) {
	return fetch[Page[Grade]](ctx, g.b, "/grades", params)
}

func (g *Grades) Get(ctx context.Context, id int64) (Grade, error) {
	return fetch[Grade](ctx, g.b, path("/grades/%d", id), nil)
}

func (g *Grades) Create(ctx context.Context, in GradeInput) (Grade, error) {
	return send[Grade](ctx, g.b, http.MethodPost, "/grades", in)
}

func (g *Grades) Update(ctx context.Context, id int64, in GradeInput) (Grade, error) {
	return send[Grade](ctx, g.b, http.MethodPut, path("/grades/%d", id), in)
}

func (g *Grades) Delete(ctx context.Context, id int64) error {
	return exec(ctx, g.b, http.MethodDelete, path("/grades/%d", id), nil)
}

func (g *Grades) Publish(ctx context.Context, id int64) error {
	return exec(ctx, g.b, http.MethodPost, path("/grades/%d/publish", id), nil)
}

func (g *Grades) Lock(ctx context.Context, id int64) error {
	return exec(ctx, g.b, http.MethodPost, path("/grades/%d/lock", id), nil)
}

func (g *Grades) Bulk(ctx context.Context, in BulkGrades) (ImportResult, error) {
	return send[ImportResult](ctx, g.b, http.MethodPost, "/grades/bulk", in)
}

func (g *Grades) StudentSummary(ctx context.Context, studentID int64) (GradeSummary, error) {
	return fetch[GradeSummary](ctx, g.b, path("/grades/student/%d/summary", studentID), nil)
}

func (g *Grades) CourseStatistics(ctx context.Context, courseID int64) (GradeStatistics, error) {
	return fetch[GradeStatistics](ctx, g.b, path("/grades/course/%d/statistics", courseID), nil)
}

func (g *Grades) Statistics(ctx context.Context) (GradeStatistics, error) {
	return fetch[GradeStatistics](ctx, g.b, "/grades/statistics", nil)
}

func (g *Grades) Import(ctx context.Context, f File) (ImportResult, error) {
	return importFile(ctx, g.b, "/grades/import", f)
}

func (g *Grades) Export(ctx context.Context, params GradeListParams) (*apiclient.Raw, error) {
	return download(ctx, g.b, http.MethodGet, "/grades/export", params, nil)
}
