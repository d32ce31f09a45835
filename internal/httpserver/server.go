// Package httpserver is the operator console: a chi router that exposes the
// session, the guarded page routes and a pass-through to the SIS API.
package httpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"studentinfo/sis-console/internal/apiclient"
	"studentinfo/sis-console/internal/config"
	"studentinfo/sis-console/internal/guard"
	"studentinfo/sis-console/internal/notify"
	"studentinfo/sis-console/internal/observability"
	"studentinfo/sis-console/internal/session"
)

// SessionService is the part of session.Manager the console drives.
type SessionService interface {
	guard.Session
	Login(ctx context.Context, creds session.LoginCredentials, redirect string) error
	Logout(ctx context.Context) error
	Snapshot() session.Snapshot
}

type Navigator interface {
	Current() string
}

type Sender interface {
	Send(ctx context.Context, method, path string, opts apiclient.RequestOptions) (*apiclient.Response, error)
}

type Toasts interface {
	Drain() []notify.Toast
}

// LoadingView reports the API client's loading indicator.
type LoadingView interface {
	Visible() bool
}

type AuditLogger interface {
	Log(actor, action, target, outcome, detail string) error
}

type Deps struct {
	Session         SessionService
	Guard           *guard.Guard
	History         Navigator
	API             Sender
	Toasts          Toasts
	Loading         LoadingView
	Audit           AuditLogger
	Gatherer        prometheus.Gatherer
	Ready           func(ctx context.Context) error
	FrontendDistDir string
	Logger          *slog.Logger
}

type Server struct {
	httpServer *http.Server
}

func New(cfg config.HTTPConfig, deps Deps) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Addr,
			Handler:      NewHandler(deps),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  60 * time.Second,
		},
	}
}

func NewHandler(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = observability.Discard()
	}
	r := chi.NewRouter()
	r.Use(loggingMiddleware(deps.Logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":         "ok",
			"uptime_seconds": int64(observability.Uptime().Seconds()),
		})
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if deps.Ready != nil {
			if err := deps.Ready(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "error": err.Error()})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/console", func(cr chi.Router) {
		registerConsoleHandlers(cr, deps)
	})
	r.Handle("/api/*", proxyHandler(deps))
	r.Get("/*", pageHandler(deps))
	return r
}

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeFailure renders the same shape the SIS API uses for failures.
func writeFailure(w http.ResponseWriter, status int, message string, code int) {
	body := map[string]any{"success": false, "message": message}
	if code != 0 {
		body["code"] = code
	}
	writeJSON(w, status, body)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.status = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

func loggingMiddleware(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := strings.TrimSpace(r.Header.Get("X-Request-Id"))
			if reqID == "" {
				reqID = uuid.NewString()
			}
			w.Header().Set("X-Request-Id", reqID)
			r = r.WithContext(context.WithValue(r.Context(), requestIDKey{}, reqID))
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			log.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", reqID,
			)
		})
	}
}

type requestIDKey struct{}

func requestIDFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(requestIDKey{}).(string); ok {
		return s
	}
	return ""
}

func clientIP(r *http.Request) string {
	if fwd := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}

func auditReq(a AuditLogger, r *http.Request, actor, action, target, outcome, detail string) {
	if a == nil {
		return
	}
	parts := []string{
		"rid=" + requestIDFromContext(r.Context()),
		"ip=" + clientIP(r),
		"ua=" + strings.TrimSpace(r.UserAgent()),
	}
	if strings.TrimSpace(detail) != "" {
		parts = append(parts, "detail="+strings.TrimSpace(detail))
	}
	_ = a.Log(actor, action, target, outcome, strings.Join(parts, " | "))
}

func actorOf(s SessionService) string {
	if s == nil {
		return ""
	}
	if snap := s.Snapshot(); snap.User != nil {
		return snap.User.Username
	}
	return ""
}
