package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const defaultConfigPath = "config/console.yaml"

const (
	StorageMemory   = "memory"
	StorageFile     = "file"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

type Config struct {
	HTTP            HTTPConfig    `yaml:"http"`
	API             APIConfig     `yaml:"api"`
	Session         SessionConfig `yaml:"session"`
	DatabaseURL     string        `yaml:"database_url" env:"DATABASE_URL"`
	FrontendDistDir string        `yaml:"frontend_dist_dir" env:"FRONTEND_DIST_DIR" env-default:"./web/dist"`
	AuditLogFile    string        `yaml:"audit_log_file" env:"AUDIT_LOG_FILE" env-default:"./data/audit.log"`
	LogLevel        string        `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	MetricsEnabled  bool          `yaml:"metrics_enabled" env:"METRICS_ENABLED" env-default:"true"`
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr" env:"HTTP_ADDR" env-default:":8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"15s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"20s"`
}

// APIConfig points at the remote SIS REST API.
type APIConfig struct {
	BaseURL string        `yaml:"base_url" env:"SIS_API_BASE_URL" env-default:"http://localhost:5000/api"`
	Timeout time.Duration `yaml:"timeout" env:"SIS_API_TIMEOUT" env-default:"30s"`
}

type SessionConfig struct {
	Storage    string `yaml:"storage" env:"SESSION_STORAGE" env-default:"file"`
	StateFile  string `yaml:"state_file" env:"SESSION_STATE_FILE" env-default:"./data/session.json"`
	SQLitePath string `yaml:"sqlite_path" env:"SESSION_SQLITE_PATH" env-default:"./data/session.db"`
	Profile    string `yaml:"profile" env:"SESSION_PROFILE" env-default:"default"`
}

func Load() (Config, error) {
	var cfg Config
	path := resolveConfigPath()
	if st, err := os.Stat(path); err == nil && !st.IsDir() {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read config env: %w", err)
	}

	normalize(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.HTTP.Addr == "" {
		return fmt.Errorf("HTTP_ADDR must not be empty")
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		return fmt.Errorf("HTTP_SHUTDOWN_TIMEOUT must be > 0")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("SIS_API_BASE_URL must be an absolute http(s) URL, got %q", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("SIS_API_TIMEOUT must be > 0")
	}
	switch c.Session.Storage {
	case StorageMemory:
	case StorageFile:
		if c.Session.StateFile == "" {
			return fmt.Errorf("SESSION_STATE_FILE must not be empty for file storage")
		}
	case StorageSQLite:
		if c.Session.SQLitePath == "" {
			return fmt.Errorf("SESSION_SQLITE_PATH must not be empty for sqlite storage")
		}
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL must be set for postgres storage")
		}
	default:
		return fmt.Errorf("SESSION_STORAGE must be one of memory, file, sqlite, postgres; got %q", c.Session.Storage)
	}
	if c.Session.Profile == "" {
		return fmt.Errorf("SESSION_PROFILE must not be empty")
	}
	return nil
}

func normalize(cfg *Config) {
	cfg.HTTP.Addr = strings.TrimSpace(cfg.HTTP.Addr)
	cfg.API.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.API.BaseURL), "/")
	cfg.Session.Storage = strings.ToLower(strings.TrimSpace(cfg.Session.Storage))
	cfg.Session.StateFile = strings.TrimSpace(cfg.Session.StateFile)
	cfg.Session.SQLitePath = strings.TrimSpace(cfg.Session.SQLitePath)
	cfg.Session.Profile = strings.TrimSpace(cfg.Session.Profile)
	cfg.DatabaseURL = strings.TrimSpace(cfg.DatabaseURL)
	cfg.FrontendDistDir = strings.TrimSpace(cfg.FrontendDistDir)
	cfg.AuditLogFile = strings.TrimSpace(cfg.AuditLogFile)
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if cfg.Session.Storage == "" {
		cfg.Session.Storage = StorageFile
	}
	if cfg.Session.Profile == "" {
		cfg.Session.Profile = "default"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

func resolveConfigPath() string {
	if v := strings.TrimSpace(os.Getenv("SIS_CONFIG")); v != "" {
		return v
	}
	return defaultConfigPath
}
