package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func isolateConfig(t *testing.T) {
	t.Helper()
	t.Setenv("SIS_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
}

func TestLoadDefaults(t *testing.T) {
	isolateConfig(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.HTTP.Addr != ":8080" {
		t.Fatalf("expected default HTTP addr :8080, got %q", cfg.HTTP.Addr)
	}
	if cfg.HTTP.ReadTimeout != 10*time.Second {
		t.Fatalf("expected default read timeout 10s, got %v", cfg.HTTP.ReadTimeout)
	}
	if cfg.HTTP.WriteTimeout != 15*time.Second {
		t.Fatalf("expected default write timeout 15s, got %v", cfg.HTTP.WriteTimeout)
	}
	if cfg.HTTP.ShutdownTimeout != 20*time.Second {
		t.Fatalf("expected default shutdown timeout 20s, got %v", cfg.HTTP.ShutdownTimeout)
	}
	if cfg.API.BaseURL != "http://localhost:5000/api" {
		t.Fatalf("expected default api base url, got %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 30*time.Second {
		t.Fatalf("expected default api timeout 30s, got %v", cfg.API.Timeout)
	}
	if cfg.Session.Storage != StorageFile {
		t.Fatalf("expected default session storage file, got %q", cfg.Session.Storage)
	}
	if cfg.Session.StateFile != "./data/session.json" {
		t.Fatalf("expected default session state file ./data/session.json, got %q", cfg.Session.StateFile)
	}
	if cfg.Session.Profile != "default" {
		t.Fatalf("expected default session profile, got %q", cfg.Session.Profile)
	}
	if cfg.FrontendDistDir != "./web/dist" {
		t.Fatalf("expected default frontend dist dir ./web/dist, got %q", cfg.FrontendDistDir)
	}
	if cfg.AuditLogFile != "./data/audit.log" {
		t.Fatalf("expected default audit log file ./data/audit.log, got %q", cfg.AuditLogFile)
	}
	if !cfg.MetricsEnabled {
		t.Fatalf("expected metrics enabled by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	isolateConfig(t)
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("HTTP_READ_TIMEOUT", "3s")
	t.Setenv("SIS_API_BASE_URL", "https://sis.example.edu/api/")
	t.Setenv("SIS_API_TIMEOUT", "5s")
	t.Setenv("SESSION_STORAGE", "SQLite")
	t.Setenv("SESSION_SQLITE_PATH", "/var/lib/sis/session.db")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.HTTP.Addr != ":9090" {
		t.Fatalf("expected HTTP addr :9090, got %q", cfg.HTTP.Addr)
	}
	if cfg.HTTP.ReadTimeout != 3*time.Second {
		t.Fatalf("expected read timeout 3s, got %v", cfg.HTTP.ReadTimeout)
	}
	if cfg.API.BaseURL != "https://sis.example.edu/api" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 5*time.Second {
		t.Fatalf("expected api timeout 5s, got %v", cfg.API.Timeout)
	}
	if cfg.Session.Storage != StorageSQLite {
		t.Fatalf("expected sqlite storage, got %q", cfg.Session.Storage)
	}
	if cfg.Session.SQLitePath != "/var/lib/sis/session.db" {
		t.Fatalf("unexpected sqlite path %q", cfg.Session.SQLitePath)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected log level lowered to debug, got %q", cfg.LogLevel)
	}
}

func TestLoadFromYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console.yaml")
	yaml := strings.Join([]string{
		"http:",
		"  addr: \":7070\"",
		"api:",
		"  base_url: \"http://api.internal:5000/api\"",
		"session:",
		"  storage: memory",
		"",
	}, "\n")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	t.Setenv("SIS_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.HTTP.Addr != ":7070" {
		t.Fatalf("expected addr from yaml, got %q", cfg.HTTP.Addr)
	}
	if cfg.API.BaseURL != "http://api.internal:5000/api" {
		t.Fatalf("expected base url from yaml, got %q", cfg.API.BaseURL)
	}
	if cfg.Session.Storage != StorageMemory {
		t.Fatalf("expected memory storage from yaml, got %q", cfg.Session.Storage)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{name: "relative api url", key: "SIS_API_BASE_URL", value: "/api", wantErr: "SIS_API_BASE_URL"},
		{name: "unknown storage", key: "SESSION_STORAGE", value: "redis", wantErr: "SESSION_STORAGE"},
		{name: "postgres without dsn", key: "SESSION_STORAGE", value: "postgres", wantErr: "DATABASE_URL"},
		{name: "zero api timeout", key: "SIS_API_TIMEOUT", value: "0s", wantErr: "SIS_API_TIMEOUT"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			isolateConfig(t)
			t.Setenv("DATABASE_URL", "")
			t.Setenv(tc.key, tc.value)

			_, err := Load()
			if err == nil {
				t.Fatalf("expected error for %s=%q", tc.key, tc.value)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error mentioning %s, got %v", tc.wantErr, err)
			}
		})
	}
}
