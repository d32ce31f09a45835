package resources

import (
	"context"
	"net/http"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"studentinfo/sis-console/internal/apiclient"
)

const (
	publicConfigKey = "public"
	configCacheSize = 64
	configCacheTTL  = 5 * time.Minute
)

type ConfigItem struct {
	ID              string `json:"id,omitempty"`
	Key             string `json:"key" validate:"required"`
	Name            string `json:"name" validate:"required"`
	Description     string `json:"description,omitempty"`
	Category        string `json:"category" validate:"required"`
	ConfigType      string `json:"config_type,omitempty"`
	ValueType       string `json:"value_type,omitempty"`
	Value           any    `json:"value"`
	DisplayValue    string `json:"display_value,omitempty"`
	IsActive        bool   `json:"is_active"`
	IsRequired      bool   `json:"is_required"`
	IsPublic        bool   `json:"is_public"`
	IsEditable      bool   `json:"is_editable"`
	RequiresRestart bool   `json:"requires_restart"`
	SortOrder       int    `json:"sort_order,omitempty"`
	Version         string `json:"version,omitempty"`
	UpdatedAt       string `json:"updated_at,omitempty"`
}

type ConfigUpdate struct {
	Value       any    `json:"value"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	IsActive    *bool  `json:"is_active,omitempty"`
	IsPublic    *bool  `json:"is_public,omitempty"`
	ChangeLog   string `json:"change_log,omitempty"`
}

type ConfigSearch struct {
	Keyword    string `query:"keyword,omitempty"`
	ConfigType string `query:"config_type,omitempty"`
	Category   string `query:"category,omitempty"`
	IsActive   string `query:"is_active,omitempty"`
	IsPublic   string `query:"is_public,omitempty"`
	Page       int    `query:"page,omitempty"`
	PerPage    int    `query:"per_page,omitempty"`
	SortBy     string `query:"sort_by,omitempty"`
	SortOrder  string `query:"sort_order,omitempty"`
}

type ConfigPage struct {
	Configs    []ConfigItem `json:"configs"`
	Pagination struct {
		Page    int   `json:"page"`
		PerPage int   `json:"per_page"`
		Total   int64 `json:"total"`
		Pages   int   `json:"pages"`
	} `json:"pagination"`
}

type ConfigCategory struct {
	Category string `json:"category"`
	Count    int    `json:"config_count"`
}

type KeyValue struct {
	Key   string `json:"key" validate:"required"`
	Value any    `json:"value"`
}

// SystemConfig caches public settings and single keys for a few minutes.
// Any write through this wrapper drops the cache.
type SystemConfig struct {
	b     *base
	cache *expirable.LRU[string, any]
}

func newSystemConfig(b *base) *SystemConfig {
	return &SystemConfig{b: b, cache: expirable.NewLRU[string, any](configCacheSize, nil, configCacheTTL)}
}

func (s *SystemConfig) List(ctx context.Context, params ConfigSearch) (ConfigPage, error) {
	return fetch[ConfigPage](ctx, s.b, "/system-config", params)
}

func (s *SystemConfig) Create(ctx context.Context, in ConfigItem) (ConfigItem, error) {
	out, err := send[ConfigItem](ctx, s.b, http.MethodPost, "/system-config", in)
	if err == nil {
		s.cache.Purge()
	}
	return out, err
}

func (s *SystemConfig) BatchUpdate(ctx context.Context, items []KeyValue) error {
	err := exec(ctx, s.b, http.MethodPut, "/system-config/batch", struct {
		Configs []KeyValue `json:"configs" validate:"required,min=1,dive"`
	}{items})
	if err == nil {
		s.cache.Purge()
	}
	return err
}

func (s *SystemConfig) Categories(ctx context.Context) ([]ConfigCategory, error) {
	return fetch[[]ConfigCategory](ctx, s.b, "/system-config/categories", nil)
}

func (s *SystemConfig) Public(ctx context.Context) (map[string]any, error) {
	if v, ok := s.cache.Get(publicConfigKey); ok {
		if m, ok := v.(map[string]any); ok {
			return m, nil
		}
	}
	out, err := fetch[map[string]any](ctx, s.b, "/system-config/public", nil)
	if err != nil {
		return nil, err
	}
	s.cache.Add(publicConfigKey, out)
	return out, nil
}

func (s *SystemConfig) Export(ctx context.Context, params ConfigSearch) (*apiclient.Raw, error) {
	return download(ctx, s.b, http.MethodGet, "/system-config/export", params, nil)
}

func (s *SystemConfig) Get(ctx context.Context, key string) (ConfigItem, error) {
	if v, ok := s.cache.Get("key:" + key); ok {
		if item, ok := v.(ConfigItem); ok {
			return item, nil
		}
	}
	out, err := fetch[ConfigItem](ctx, s.b, path("/system-config/%s", key), nil)
	if err != nil {
		return ConfigItem{}, err
	}
	s.cache.Add("key:"+key, out)
	return out, nil
}

func (s *SystemConfig) Update(ctx context.Context, key string, in ConfigUpdate) (ConfigItem, error) {
	out, err := send[ConfigItem](ctx, s.b, http.MethodPut, path("/system-config/%s", key), in)
	if err == nil {
		s.cache.Purge()
	}
	return out, err
}

func (s *SystemConfig) Reset(ctx context.Context, key string) error {
	err := exec(ctx, s.b, http.MethodPost, path("/system-config/%s/reset", key), nil)
	if err == nil {
		s.cache.Purge()
	}
	return err
}

func (s *SystemConfig) Delete(ctx context.Context, key string) error {
	err := exec(ctx, s.b, http.MethodDelete, path("/system-config/%s", key), nil)
	if err == nil {
		s.cache.Purge()
	}
	return err
}

// ClearCache clears the server side config cache and the local one.
func (s *SystemConfig) ClearCache(ctx context.Context) error {
	s.cache.Purge()
	return exec(ctx, s.b, http.MethodPost, "/system-config/cache/clear", nil)
}
