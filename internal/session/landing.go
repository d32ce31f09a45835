package session

import (
	"net/url"
	"slices"
	"strings"
)

const (
	LoginRoute            = "/login"
	DefaultRoute          = "/dashboard"
	TeacherDashboardRoute = "/teacher/dashboard"
	StudentDashboardRoute = "/student/dashboard"
)

// LandingRoute is where a user goes after login or when a route is denied.
func LandingRoute(roles []string) string {
	switch {
	case slices.Contains(roles, RoleAdmin):
		return DefaultRoute
	case slices.Contains(roles, RoleTeacher):
		return TeacherDashboardRoute
	case slices.Contains(roles, RoleStudent):
		return StudentDashboardRoute
	default:
		return DefaultRoute
	}
}

// SafeRedirect accepts only server-relative paths outside the login flow.
func SafeRedirect(redirect string) (string, bool) {
	redirect = strings.TrimSpace(redirect)
	if redirect == "" || !strings.HasPrefix(redirect, "/") || strings.HasPrefix(redirect, "//") || strings.Contains(redirect, "\\") {
		return "", false
	}
	u, err := url.Parse(redirect)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "", false
	}
	if u.Path == LoginRoute || u.Path == "/register" {
		return "", false
	}
	return redirect, true
}
