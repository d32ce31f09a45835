// Package app wires configuration, storage, the API client, the session and
// the console server together.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"studentinfo/sis-console/internal/apiclient"
	"studentinfo/sis-console/internal/audit"
	"studentinfo/sis-console/internal/config"
	"studentinfo/sis-console/internal/guard"
	"studentinfo/sis-console/internal/httpserver"
	"studentinfo/sis-console/internal/notify"
	"studentinfo/sis-console/internal/observability"
	"studentinfo/sis-console/internal/resources"
	"studentinfo/sis-console/internal/session"
)

const readyTimeout = 3 * time.Second

// Console is the client side object graph shared by the web console and the
// command line tool.
type Console struct {
	Config   config.Config
	Log      *slog.Logger
	Registry *prometheus.Registry
	Client   *apiclient.Client
	API      *resources.API
	Session  *session.Manager
	Guard    *guard.Guard
	History  *guard.History
	Toasts   *notify.Queue
	Titles   *guard.DocumentTitle
	Progress *guard.ProgressBar
	Loading  *apiclient.FlagIndicator
	Audit    *audit.Logger

	pinger  interface{ Ping() error }
	closers []io.Closer
}

func Build(cfg config.Config, logger *slog.Logger) (*Console, error) {
	if logger == nil {
		logger = observability.NewLogger(cfg.LogLevel)
	}
	c := &Console{
		Config:   cfg,
		Log:      logger,
		Registry: observability.NewRegistry(),
		History:  guard.NewHistory(session.LoginRoute),
		Toasts:   notify.NewQueue(logger, 0),
		Titles:   guard.NewDocumentTitle(),
		Progress: &guard.ProgressBar{},
		Loading:  &apiclient.FlagIndicator{},
		Audit:    audit.NewLogger(cfg.AuditLogFile),
	}

	var clientMetrics *apiclient.Metrics
	var guardMetrics *guard.Metrics
	if cfg.MetricsEnabled {
		clientMetrics = apiclient.NewMetrics(c.Registry)
		guardMetrics = guard.NewMetrics(c.Registry)
	}

	client, err := apiclient.New(apiclient.Options{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.API.Timeout,
		Notifier:  c.Toasts,
		Indicator: c.Loading,
		Metrics:   clientMetrics,
		Logger:    logger.With("component", "apiclient"),
	})
	if err != nil {
		return nil, fmt.Errorf("create api client: %w", err)
	}
	c.Client = client
	c.API = resources.New(client)

	storage, err := c.openStorage()
	if err != nil {
		return nil, err
	}

	mgr, err := session.NewManager(session.Deps{
		Storage:   storage,
		Auth:      c.API.Auth,
		Navigator: c.History,
		Notifier:  c.Toasts,
		Audit:     c.Audit,
		Logger:    logger.With("component", "session"),
	})
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("create session manager: %w", err), c.Close())
	}
	client.UseCredentials(mgr)
	c.Session = mgr

	g, err := guard.New(guard.Options{
		Session:  mgr,
		Titles:   c.Titles,
		Progress: c.Progress,
		Metrics:  guardMetrics,
		Logger:   logger.With("component", "guard"),
	})
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("create navigation guard: %w", err), c.Close())
	}
	c.Guard = g
	return c, nil
}

func (c *Console) openStorage() (session.Storage, error) {
	switch c.Config.Session.Storage {
	case config.StorageMemory:
		return session.NewMemoryStorage(), nil
	case config.StorageFile:
		s, err := session.NewFileStorage(c.Config.Session.StateFile)
		if err != nil {
			return nil, fmt.Errorf("create file session storage: %w", err)
		}
		if derr := s.Discarded(); derr != nil {
			c.Log.Warn("discarded corrupt session state", "path", c.Config.Session.StateFile, "error", derr)
		}
		return s, nil
	case config.StorageSQLite:
		s, err := session.OpenSQLiteStorage(c.Config.Session.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("create sqlite session storage: %w", err)
		}
		c.closers = append(c.closers, s)
		return s, nil
	case config.StoragePostgres:
		db, err := sql.Open("postgres", c.Config.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		if err := db.Ping(); err != nil {
			return nil, multierr.Append(fmt.Errorf("ping database: %w", err), db.Close())
		}
		s, err := session.NewPostgresStorage(db, c.Config.Session.Profile)
		if err != nil {
			return nil, multierr.Append(fmt.Errorf("create postgres session storage: %w", err), db.Close())
		}
		c.closers = append(c.closers, db)
		c.pinger = s
		return s, nil
	default:
		return nil, fmt.Errorf("unknown session storage %q", c.Config.Session.Storage)
	}
}

// Ready checks the remote API and, when configured, the session database.
func (c *Console) Ready(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()
	var err error
	if _, herr := c.API.System.Health(ctx); herr != nil {
		err = multierr.Append(err, fmt.Errorf("sis api: %w", herr))
	}
	if c.pinger != nil {
		if perr := c.pinger.Ping(); perr != nil {
			err = multierr.Append(err, fmt.Errorf("session database: %w", perr))
		}
	}
	return err
}

func (c *Console) Close() error {
	var err error
	for i := len(c.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, c.closers[i].Close())
	}
	c.closers = nil
	return err
}

type App struct {
	cfg     config.Config
	log     *slog.Logger
	console *Console
	server  *httpserver.Server
}

func New(cfg config.Config) (*App, error) {
	logger := observability.NewLogger(cfg.LogLevel)
	console, err := Build(cfg, logger)
	if err != nil {
		return nil, err
	}

	deps := httpserver.Deps{
		Session:         console.Session,
		Guard:           console.Guard,
		History:         console.History,
		API:             console.Client,
		Toasts:          console.Toasts,
		Loading:         console.Loading,
		Audit:           console.Audit,
		Ready:           console.Ready,
		FrontendDistDir: cfg.FrontendDistDir,
		Logger:          logger.With("component", "http"),
	}
	if cfg.MetricsEnabled {
		deps.Gatherer = console.Registry
	}

	return &App{
		cfg:     cfg,
		log:     logger,
		console: console,
		server:  httpserver.New(cfg.HTTP, deps),
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	defer func() {
		if err := a.console.Close(); err != nil {
			a.log.Error("close console resources", "error", err)
		}
	}()

	if err := a.console.Session.EnsureRestored(ctx); err != nil {
		a.log.Warn("session restore failed", "error", err)
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("http server starting", "addr", a.cfg.HTTP.Addr, "api", a.cfg.API.BaseURL, "storage", a.cfg.Session.Storage)
		errCh <- a.server.Start()
	}()

	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server exited: %w", err)
	}
}
