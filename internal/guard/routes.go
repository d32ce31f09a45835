package guard

import (
	"fmt"
	"strings"

	"studentinfo/sis-console/internal/session"
)

type Meta struct {
	Title        string   `json:"title"`
	RequiresAuth bool     `json:"requires_auth"`
	Roles        []string `json:"roles,omitempty"`
	Permissions  []string `json:"permissions,omitempty"`
	Hidden       bool     `json:"hidden,omitempty"`
	Icon         string   `json:"icon,omitempty"`
	Group        string   `json:"group,omitempty"`
}

type Route struct {
	Path string `json:"path"`
	Name string `json:"name"`
	// Public routes are let through without looking at the session.
	Public bool `json:"public,omitempty"`
	Meta   Meta `json:"meta"`
}

const (
	groupOverview      = "Overview"
	groupAcademics     = "Academics"
	groupCommunication = "Communication"
	groupAnalytics     = "Analytics"
	groupAdmin         = "Administration"
)

var (
	adminOnly      = []string{session.RoleAdmin}
	adminOrTeacher = []string{session.RoleAdmin, session.RoleTeacher}
	teacherOnly    = []string{session.RoleTeacher}
	studentOnly    = []string{session.RoleStudent}
)

// DefaultRoutes is the console's navigation table. Any path not listed here
// is redirected to the default dashboard.
func DefaultRoutes() []Route {
	return []Route{
		{Path: "/login", Name: "Login", Public: true, Meta: Meta{Title: "Login", Hidden: true}},
		{Path: "/register", Name: "Register", Public: true, Meta: Meta{Title: "Register", Hidden: true}},

		{Path: "/dashboard", Name: "Dashboard", Meta: Meta{Title: "Dashboard", RequiresAuth: true, Icon: "dashboard", Group: groupOverview}},
		{Path: "/teacher/dashboard", Name: "TeacherDashboard", Meta: Meta{Title: "Teacher Dashboard", RequiresAuth: true, Roles: teacherOnly, Icon: "dashboard", Group: groupOverview}},
		{Path: "/student/dashboard", Name: "StudentDashboard", Meta: Meta{Title: "Student Dashboard", RequiresAuth: true, Roles: studentOnly, Icon: "dashboard", Group: groupOverview}},
		{Path: "/profile", Name: "Profile", Meta: Meta{Title: "Profile", RequiresAuth: true, Hidden: true, Icon: "user"}},

		{Path: "/students", Name: "Students", Meta: Meta{Title: "Student Management", RequiresAuth: true, Icon: "user-filled", Group: groupAcademics}},
		{Path: "/teachers", Name: "Teachers", Meta: Meta{Title: "Teacher Management", RequiresAuth: true, Roles: adminOnly, Icon: "avatar", Group: groupAcademics}},
		{Path: "/courses", Name: "Courses", Meta: Meta{Title: "Course Management", RequiresAuth: true, Icon: "reading", Group: groupAcademics}},
		{Path: "/enrollments", Name: "Enrollments", Meta: Meta{Title: "Enrollment Management", RequiresAuth: true, Icon: "list", Group: groupAcademics}},
		{Path: "/grades", Name: "GradeManagement", Meta: Meta{Title: "Grade Management", RequiresAuth: true, Icon: "edit", Group: groupAcademics}},

		{Path: "/messages", Name: "Messages", Meta: Meta{Title: "Messages", RequiresAuth: true, Icon: "message", Group: groupCommunication}},
		{Path: "/notifications", Name: "Notifications", Meta: Meta{Title: "Notifications", RequiresAuth: true, Icon: "bell", Group: groupCommunication}},

		{Path: "/reports", Name: "Reports", Meta: Meta{Title: "Reports", RequiresAuth: true, Roles: adminOrTeacher, Icon: "data-analysis", Group: groupAnalytics}},

		{Path: "/users", Name: "Users", Meta: Meta{Title: "User Management", RequiresAuth: true, Roles: adminOnly, Icon: "user", Group: groupAdmin}},
		{Path: "/system-settings", Name: "SystemSettings", Meta: Meta{Title: "System Settings", RequiresAuth: true, Roles: adminOnly, Icon: "setting", Group: groupAdmin}},
		{Path: "/config-management", Name: "ConfigManagement", Meta: Meta{Title: "Configuration Management", RequiresAuth: true, Roles: adminOnly, Icon: "tools", Group: groupAdmin}},
		{Path: "/data-import-export", Name: "DataImportExport", Meta: Meta{Title: "Data Import/Export", RequiresAuth: true, Roles: adminOnly, Icon: "upload", Group: groupAdmin}},
	}
}

type Table struct {
	routes []Route
	byPath map[string]int
}

func NewTable(routes []Route) (*Table, error) {
	t := &Table{byPath: make(map[string]int, len(routes))}
	for _, r := range routes {
		p := cleanPath(r.Path)
		if p == "" || !strings.HasPrefix(p, "/") {
			return nil, fmt.Errorf("route %q: path must start with /", r.Path)
		}
		if _, dup := t.byPath[p]; dup {
			return nil, fmt.Errorf("route %q declared twice", p)
		}
		r.Path = p
		t.byPath[p] = len(t.routes)
		t.routes = append(t.routes, r)
	}
	return t, nil
}

// Lookup matches the path part of target exactly.
func (t *Table) Lookup(target string) (Route, bool) {
	i, ok := t.byPath[cleanPath(target)]
	if !ok {
		return Route{}, false
	}
	return t.routes[i], true
}

func (t *Table) Routes() []Route {
	out := make([]Route, len(t.routes))
	copy(out, t.routes)
	return out
}

func cleanPath(target string) string {
	p := strings.TrimSpace(target)
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	return p
}
