package resources

import (
	"context"
	"fmt"
	"net/http"

	"studentinfo/sis-console/internal/apiclient"
)

type ReportKind string

const (
	ReportStudents    ReportKind = "students"
	ReportTeachers    ReportKind = "teachers"
	ReportCourses     ReportKind = "courses"
	ReportGrades      ReportKind = "grades"
	ReportEnrollments ReportKind = "enrollments"
	ReportSystem      ReportKind = "system"
)

func (k ReportKind) valid() bool {
	switch k {
	case ReportStudents, ReportTeachers, ReportCourses, ReportGrades, ReportEnrollments, ReportSystem:
		return true
	}
	return false
}

type ReportParams struct {
	StartDate    string `query:"start_date,omitempty"`
	EndDate      string `query:"end_date,omitempty"`
	Semester     string `query:"semester,omitempty"`
	AcademicYear string `query:"academic_year,omitempty"`
	Department   string `query:"department,omitempty"`
	ClassID      string `query:"class_id,omitempty"`
	Format       string `query:"format,omitempty"`
}

type ComprehensiveParams struct {
	ReportParams `query:",squash"`
	Sections     []string `query:"sections,omitempty"`
}

type TrendParams struct {
	Metric    string `query:"metric"`
	Period    string `query:"period"`
	StartDate string `query:"start_date,omitempty"`
	EndDate   string `query:"end_date,omitempty"`
}

type ComparisonParams struct {
	Metric      string   `query:"metric"`
	CompareType string   `query:"compare_type"`
	Periods     []string `query:"periods,omitempty"`
	Departments []string `query:"departments,omitempty"`
	Classes     []string `query:"classes,omitempty"`
}

type Aggregation struct {
	Field     string `json:"field" validate:"required"`
	Operation string `json:"operation" validate:"required"`
	Alias     string `json:"alias,omitempty"`
}

type OrderBy struct {
	Field     string `json:"field" validate:"required"`
	Direction string `json:"direction" validate:"oneof=asc desc"`
}

type CustomReport struct {
	Name         string         `json:"name" validate:"required"`
	Description  string         `json:"description,omitempty"`
	DataSources  []string       `json:"data_sources" validate:"required,min=1"`
	Filters      map[string]any `json:"filters,omitempty"`
	Aggregations []Aggregation  `json:"aggregations,omitempty" validate:"dive"`
	GroupBy      []string       `json:"group_by,omitempty"`
	OrderBy      []OrderBy      `json:"order_by,omitempty" validate:"dive"`
}

type Reports struct {
	b *base
}

func (r *Reports) Get(ctx context.Context, kind ReportKind, params ReportParams) (map[string]any, error) {
	if !kind.valid() {
		return nil, fmt.Errorf("unknown report %q", kind)
	}
	return fetch[map[string]any](ctx, r.b, "/reports/"+string(kind), params)
}

// Export downloads a report file. The system report has no export.
func (r *Reports) Export(ctx context.Context, kind ReportKind, params ReportParams) (*apiclient.Raw, error) {
	if !kind.valid() || kind == ReportSystem {
		return nil, fmt.Errorf("report %q cannot be exported", kind)
	}
	return download(ctx, r.b, http.MethodGet, "/reports/"+string(kind)+"/export", params, nil)
}

func (r *Reports) ExportComprehensive(ctx context.Context, params ComprehensiveParams) (*apiclient.Raw, error) {
	return download(ctx, r.b, http.MethodGet, "/reports/comprehensive/export", params, nil)
}

func (r *Reports) Dashboard(ctx context.Context) (map[string]any, error) {
	return fetch[map[string]any](ctx, r.b, "/reports/dashboard", nil)
}

func (r *Reports) RealtimeStats(ctx context.Context) (map[string]any, error) {
	return fetch[map[string]any](ctx, r.b, "/reports/realtime-stats", nil)
}

func (r *Reports) Trends(ctx context.Context, params TrendParams) (map[string]any, error) {
	return fetch[map[string]any](ctx, r.b, "/reports/trends", params)
}

func (r *Reports) Comparison(ctx context.Context, params ComparisonParams) (map[string]any, error) {
	return fetch[map[string]any](ctx, r.b, "/reports/comparison", params)
}

func (r *Reports) Custom(ctx context.Context, in CustomReport) (map[string]any, error) {
	return send[map[string]any](ctx, r.b, http.MethodPost, "/reports/custom", in)
}
