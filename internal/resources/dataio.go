package resources

import (
	"context"
	"net/http"

	"studentinfo/sis-console/internal/apiclient"
)

type Schema struct {
	Fields   []string `json:"fields"`
	Required []string `json:"required"`
}

type ImportData struct {
	Type string           `json:"type" validate:"required"`
	Rows []map[string]any `json:"data" validate:"required,min=1"`
}

type ImportPreview struct {
	TotalRows  int              `json:"total_rows"`
	ValidRows  int              `json:"valid_rows"`
	ErrorCount int              `json:"error_count"`
	Errors     []string         `json:"errors,omitempty"`
	Preview    []map[string]any `json:"preview_data,omitempty"`
	Schema     Schema           `json:"schema"`
}

type ImportOutcome struct {
	TotalRows    int      `json:"total_rows"`
	SuccessCount int      `json:"success_count"`
	ErrorCount   int      `json:"error_count"`
	Errors       []string `json:"errors,omitempty"`
}

type ExportConfig struct {
	Type    string         `json:"type" validate:"required"`
	Format  string         `json:"format" validate:"required,oneof=xlsx csv json"`
	Filters map[string]any `json:"filters,omitempty"`
	Fields  []string       `json:"fields,omitempty"`
}

type ImportTemplate struct {
	Schema      Schema         `json:"schema"`
	Example     map[string]any `json:"example,omitempty"`
	Description string         `json:"description,omitempty"`
}

type DataIO struct {
	b *base
}

func (d *DataIO) Preview(ctx context.Context, in ImportData) (ImportPreview, error) {
	return send[ImportPreview](ctx, d.b, http.MethodPost, "/data-import-export/import/preview", in)
}

func (d *DataIO) Execute(ctx context.Context, in ImportData) (ImportOutcome, error) {
	return send[ImportOutcome](ctx, d.b, http.MethodPost, "/data-import-export/import/execute", in)
}

func (d *DataIO) Export(ctx context.Context, in ExportConfig) (*apiclient.Raw, error) {
	return download(ctx, d.b, http.MethodPost, "/data-import-export/export", nil, in)
}

func (d *DataIO) Templates(ctx context.Context) (map[string]ImportTemplate, error) {
	return fetch[map[string]ImportTemplate](ctx, d.b, "/data-import-export/templates", nil)
}
