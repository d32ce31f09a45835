// Package guard decides, before every navigation, whether the current
// session may open the target route or where it should be sent instead.
package guard

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"studentinfo/sis-console/internal/session"
)

const (
	AppTitle = "Student Information Management System"

	maxRedirectHops = 4
)

type State string

const (
	StateIdle                State = "idle"
	StateEvaluating          State = "evaluating"
	StateAllowed             State = "allowed"
	StateRedirectedToLogin   State = "redirected_to_login"
	StateRedirectedToDefault State = "redirected_to_default"
)

// Session is what the guard reads from the session manager.
type Session interface {
	EnsureRestored(ctx context.Context) error
	IsAuthenticated() bool
	Roles() []string
	HasAnyRole(roles []string) bool
	HasAllPermissions(perms []string) bool
}

type TitleSetter interface {
	SetTitle(title string)
}

type Progress interface {
	Start()
	Done()
}

type Decision struct {
	Outcome  State  `json:"outcome"`
	Target   string `json:"target"`
	Location string `json:"location"`
	Route    *Route `json:"route,omitempty"`
	Title    string `json:"title,omitempty"`
}

func (d Decision) Redirected() bool {
	return d.Outcome == StateRedirectedToLogin || d.Outcome == StateRedirectedToDefault
}

type Options struct {
	Table    *Table
	Session  Session
	Titles   TitleSetter
	Progress Progress
	Metrics  *Metrics
	Logger   *slog.Logger
}

type Guard struct {
	table    *Table
	session  Session
	titles   TitleSetter
	progress Progress
	metrics  *Metrics
	log      *slog.Logger

	mu    sync.Mutex
	state State
}

func New(opts Options) (*Guard, error) {
	if opts.Session == nil {
		return nil, fmt.Errorf("session is required")
	}
	table := opts.Table
	if table == nil {
		var err error
		if table, err = NewTable(DefaultRoutes()); err != nil {
			return nil, err
		}
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Guard{
		table:    table,
		session:  opts.Session,
		titles:   opts.Titles,
		progress: opts.Progress,
		metrics:  opts.Metrics,
		log:      log,
		state:    StateIdle,
	}, nil
}

func (g *Guard) Table() *Table { return g.table }

// State is the state of the latest navigation attempt.
func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

func (g *Guard) setState(s State) {
	g.mu.Lock()
	g.state = s
	g.mu.Unlock()
}

// Evaluate runs one navigation attempt against target, a path with an
// optional query.
func (g *Guard) Evaluate(ctx context.Context, target string) Decision {
	g.setState(StateEvaluating)
	if g.progress != nil {
		g.progress.Start()
		defer g.progress.Done()
	}

	d := g.decide(ctx, target)
	g.setState(d.Outcome)
	g.metrics.observe(d.Outcome)
	if d.Outcome == StateAllowed && d.Title != "" && g.titles != nil {
		g.titles.SetTitle(d.Title)
	}
	g.log.Debug("navigation evaluated", "target", target, "outcome", string(d.Outcome), "location", d.Location)
	return d
}

func (g *Guard) decide(ctx context.Context, target string) Decision {
	target = strings.TrimSpace(target)
	if target == "" {
		target = "/"
	}
	d := Decision{Target: target}

	if err := g.session.EnsureRestored(ctx); err != nil {
		g.log.Warn("session restore not complete, sending to login", "error", err)
		d.Outcome = StateRedirectedToLogin
		d.Location = loginLocation(target)
		return d
	}

	route, ok := g.table.Lookup(target)
	if !ok {
		d.Outcome = StateRedirectedToDefault
		d.Location = session.DefaultRoute
		return d
	}
	d.Route = &route

	if route.Public {
		return allow(d, route)
	}
	if !g.session.IsAuthenticated() {
		d.Outcome = StateRedirectedToLogin
		d.Location = loginLocation(target)
		return d
	}
	if len(route.Meta.Roles) > 0 && !g.session.HasAnyRole(route.Meta.Roles) {
		d.Outcome = StateRedirectedToDefault
		d.Location = session.LandingRoute(g.session.Roles())
		return d
	}
	if len(route.Meta.Permissions) > 0 && !g.session.HasAllPermissions(route.Meta.Permissions) {
		d.Outcome = StateRedirectedToDefault
		d.Location = session.LandingRoute(g.session.Roles())
		return d
	}
	return allow(d, route)
}

// Resolve evaluates target and follows default redirects until a route is
// allowed or the login page is reached.
func (g *Guard) Resolve(ctx context.Context, target string) Decision {
	d := g.Evaluate(ctx, target)
	for hop := 0; hop < maxRedirectHops && d.Outcome == StateRedirectedToDefault; hop++ {
		d = g.Evaluate(ctx, d.Location)
	}
	return d
}

func allow(d Decision, r Route) Decision {
	d.Outcome = StateAllowed
	d.Location = d.Target
	if r.Meta.Title != "" {
		d.Title = r.Meta.Title + " - " + AppTitle
	}
	return d
}

func loginLocation(target string) string {
	if cleanPath(target) == "/" {
		return session.LoginRoute
	}
	return session.LoginRoute + "?redirect=" + url.QueryEscape(target)
}
