package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"studentinfo/sis-console/internal/apiclient"
	"studentinfo/sis-console/internal/guard"
	"studentinfo/sis-console/internal/notify"
	"studentinfo/sis-console/internal/session"
)

const msgLoginFailed = "Login failed"

func registerConsoleHandlers(r chi.Router, deps Deps) {
	r.Post("/login", func(w http.ResponseWriter, r *http.Request) {
		if deps.Session == nil {
			writeFailure(w, http.StatusServiceUnavailable, "session unavailable", 0)
			return
		}
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
			Redirect string `json:"redirect"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeFailure(w, http.StatusBadRequest, "invalid request body", 0)
			return
		}
		if req.Username == "" || req.Password == "" {
			writeFailure(w, http.StatusBadRequest, "username and password are required", 0)
			return
		}

		err := deps.Session.Login(r.Context(), session.LoginCredentials{Username: req.Username, Password: req.Password}, req.Redirect)
		if err != nil {
			status, code := statusOf(err)
			if status < http.StatusBadRequest {
				status = http.StatusUnauthorized
			}
			writeFailure(w, status, apiclient.MessageOf(err, msgLoginFailed), code)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":  true,
			"message":  "Login successful",
			"location": currentLocation(deps.History, session.LandingRoute(deps.Session.Roles())),
		})
	})

	r.Post("/logout", func(w http.ResponseWriter, r *http.Request) {
		if deps.Session == nil {
			writeFailure(w, http.StatusServiceUnavailable, "session unavailable", 0)
			return
		}
		if err := deps.Session.Logout(r.Context()); err != nil {
			deps.Logger.Warn("logout storage cleanup failed", "error", err)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":  true,
			"message":  "Logged out",
			"location": currentLocation(deps.History, session.LoginRoute),
		})
	})

	r.Get("/session", func(w http.ResponseWriter, r *http.Request) {
		if deps.Session == nil {
			writeFailure(w, http.StatusServiceUnavailable, "session unavailable", 0)
			return
		}
		if err := deps.Session.EnsureRestored(r.Context()); err != nil {
			deps.Logger.Warn("session restore failed", "error", err)
		}
		writeJSON(w, http.StatusOK, deps.Session.Snapshot())
	})

	r.Get("/menu", func(w http.ResponseWriter, r *http.Request) {
		if deps.Session == nil || deps.Guard == nil {
			writeJSON(w, http.StatusOK, []guard.MenuGroup{})
			return
		}
		writeJSON(w, http.StatusOK, guard.AccessibleMenus(deps.Guard.Table().Routes(), deps.Session))
	})

	r.Get("/loading", func(w http.ResponseWriter, _ *http.Request) {
		visible := false
		if deps.Loading != nil {
			visible = deps.Loading.Visible()
		}
		writeJSON(w, http.StatusOK, map[string]bool{"visible": visible})
	})

	r.Get("/notifications", func(w http.ResponseWriter, _ *http.Request) {
		toasts := []notify.Toast{}
		if deps.Toasts != nil {
			toasts = append(toasts, deps.Toasts.Drain()...)
		}
		writeJSON(w, http.StatusOK, toasts)
	})
}

func currentLocation(h Navigator, fallback string) string {
	if h != nil {
		if loc := h.Current(); loc != "" {
			return loc
		}
	}
	return fallback
}
