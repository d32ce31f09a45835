package resources

import (
	"context"
	"net/http"

	"studentinfo/sis-console/internal/apiclient"
)

type SystemLog struct {
	ID         int64          `json:"id"`
	UserID     int64          `json:"user_id"`
	UserName   string         `json:"user_name"`
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	ResourceID int64          `json:"resource_id,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	IP         string         `json:"ip_address"`
	UserAgent  string         `json:"user_agent"`
	CreatedAt  string         `json:"created_at"`
}

type LogParams struct {
	ListParams `query:",squash"`
	UserID     int64  `query:"user_id,omitempty"`
	Action     string `query:"action,omitempty"`
	Resource   string `query:"resource,omitempty"`
	StartDate  string `query:"start_date,omitempty"`
	EndDate    string `query:"end_date,omitempty"`
}

type Backup struct {
	ID          int64  `json:"id"`
	Filename    string `json:"filename"`
	FileSize    int64  `json:"file_size"`
	Type        string `json:"type"`
	Status      string `json:"status"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at"`
	CompletedAt string `json:"completed_at,omitempty"`
}

type BackupParams struct {
	ListParams `query:",squash"`
	Type       string `query:"type,omitempty"`
}

type BackupRequest struct {
	Type        string `json:"type" validate:"required,oneof=full incremental"`
	Description string `json:"description,omitempty"`
}

type Health struct {
	Status    string            `json:"status"`
	Version   string            `json:"version,omitempty"`
	Timestamp string            `json:"timestamp,omitempty"`
	Checks    map[string]string `json:"checks,omitempty"`
}

type OnlineUser struct {
	UserID     int64  `json:"user_id"`
	Username   string `json:"username"`
	IP         string `json:"ip_address,omitempty"`
	LastActive string `json:"last_active,omitempty"`
}

type System struct {
	b *base
}

func (s *System) Logs(ctx context.Context, params LogParams) (Page[SystemLog], error) {
	return fetch[Page[SystemLog]](ctx, s.b, "/system-logs", params)
}

func (s *System) CleanLogs(ctx context.Context, before string) error {
	return exec(ctx, s.b, http.MethodDelete, "/system-logs/clean", struct {
		BeforeDate string `json:"before_date" validate:"required"`
	}{before})
}

func (s *System) Statistics(ctx context.Context) (map[string]any, error) {
	return fetch[map[string]any](ctx, s.b, "/system-statistics", nil)
}

func (s *System) Backups(ctx context.Context, params BackupParams) (Page[Backup], error) {
	return fetch[Page[Backup]](ctx, s.b, "/backups", params)
}

func (s *System) CreateBackup(ctx context.Context, in BackupRequest) (Backup, error) {
	return send[Backup](ctx, s.b, http.MethodPost, "/backups", in)
}

func (s *System) RestoreBackup(ctx context.Context, id int64) error {
	return exec(ctx, s.b, http.MethodPost, path("/backups/%d/restore", id), nil)
}

func (s *System) DownloadBackup(ctx context.Context, id int64) (*apiclient.Raw, error) {
	return download(ctx, s.b, http.MethodGet, path("/backups/%d/download", id), nil, nil)
}

func (s *System) DeleteBackup(ctx context.Context, id int64) error {
	return exec(ctx, s.b, http.MethodDelete, path("/backups/%d", id), nil)
}

// Health never shows the loading indicator or error toasts; it is polled.
func (s *System) Health(ctx context.Context) (Health, error) {
	resp, err := s.b.c.Send(ctx, http.MethodGet, "/health", apiclient.RequestOptions{SkipAuth: true, SkipErrorHandler: true, NoLoading: true})
	if err != nil {
		return Health{}, err
	}
	if resp.Raw != nil {
		return Health{Status: "ok"}, nil
	}
	return decode[Health](resp)
}

func (s *System) Info(ctx context.Context) (map[string]any, error) {
	return fetch[map[string]any](ctx, s.b, "/system-info", nil)
}

// ClearCache accepts all, config, session or template; empty means all.
func (s *System) ClearCache(ctx context.Context, kind string) error {
	if kind == "" {
		kind = "all"
	}
	return exec(ctx, s.b, http.MethodPost, "/cache/clear", struct {
		Type string `json:"type" validate:"oneof=all config session template"`
	}{kind})
}

func (s *System) SendTestEmail(ctx context.Context, email string) error {
	return exec(ctx, s.b, http.MethodPost, "/system/test-email", struct {
		Email string `json:"email" validate:"required,email"`
	}{email})
}

func (s *System) DatabaseMaintenance(ctx context.Context, action string) error {
	return exec(ctx, s.b, http.MethodPost, "/database/maintenance", struct {
		Action string `json:"action" validate:"oneof=optimize repair analyze"`
	}{action})
}

func (s *System) OnlineUsers(ctx context.Context) ([]OnlineUser, error) {
	return fetch[[]OnlineUser](ctx, s.b, "/system/online-users", nil)
}

func (s *System) ForceOffline(ctx context.Context, userID int64) error {
	return exec(ctx, s.b, http.MethodPost, path("/system/users/%d/offline", userID), nil)
}
