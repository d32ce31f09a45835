package integration

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"

	"studentinfo/sis-console/internal/session"
)

func openTestPostgres(t *testing.T) *sql.DB {
	t.Helper()

	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping Postgres integration tests")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("sql.Open() error: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	if err := db.Ping(); err != nil {
		t.Fatalf("db.Ping() error: %v", err)
	}
	return db
}

func TestPostgresStorageRoundTrip(t *testing.T) {
	db := openTestPostgres(t)
	profile := fmt.Sprintf("itest_%d", time.Now().UnixNano())

	store, err := session.NewPostgresStorage(db, profile)
	if err != nil {
		t.Fatalf("NewPostgresStorage() error: %v", err)
	}
	t.Cleanup(func() {
		_, _ = db.Exec("DELETE FROM console_storage WHERE profile = $1", profile)
	})

	if err := store.Set(map[string]string{session.KeyToken: "access", session.KeyRefreshToken: "refresh"}); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if err := store.Set(map[string]string{session.KeyToken: "access-2"}); err != nil {
		t.Fatalf("Set() overwrite error: %v", err)
	}

	v, ok, err := store.Get(session.KeyToken)
	if err != nil || !ok || v != "access-2" {
		t.Fatalf("Get(token) = %q, %v, %v", v, ok, err)
	}

	other, err := session.NewPostgresStorage(db, profile+"_other")
	if err != nil {
		t.Fatalf("NewPostgresStorage(other) error: %v", err)
	}
	if _, ok, err := other.Get(session.KeyToken); err != nil || ok {
		t.Fatalf("expected profiles to be isolated, got ok=%v err=%v", ok, err)
	}

	if err := store.Remove(session.KeyToken, session.KeyRefreshToken); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}
	if _, ok, err := store.Get(session.KeyRefreshToken); err != nil || ok {
		t.Fatalf("expected refresh token removed, got ok=%v err=%v", ok, err)
	}
	if err := store.Ping(); err != nil {
		t.Fatalf("Ping() error: %v", err)
	}
}

type staticAuth struct{}

func (staticAuth) Login(ctx context.Context, c session.LoginCredentials) (session.LoginResult, error) {
	return session.LoginResult{
		AccessToken:  "itest-access",
		RefreshToken: "itest-refresh",
		ExpiresIn:    3600,
		User:         session.UserProfile{ID: 1, Username: c.Username, Roles: []string{session.RoleTeacher}},
	}, nil
}
func (staticAuth) Logout(ctx context.Context) error { return nil }
func (staticAuth) Refresh(ctx context.Context, rt string) (session.TokenPair, error) {
	return session.TokenPair{AccessToken: "itest-access-2", RefreshToken: rt}, nil
}
func (staticAuth) Me(ctx context.Context) (session.UserProfile, error) {
	return session.UserProfile{}, nil
}
func (staticAuth) UpdateProfile(ctx context.Context, p session.ProfileUpdate) (session.UserProfile, error) {
	return session.UserProfile{}, nil
}
func (staticAuth) ChangePassword(ctx context.Context, c session.PasswordChange) error { return nil }
func (staticAuth) Register(ctx context.Context, f session.RegisterForm) error         { return nil }
func (staticAuth) Permissions(ctx context.Context) ([]string, error)                  { return nil, nil }

func TestSessionSurvivesRestartOnPostgres(t *testing.T) {
	db := openTestPostgres(t)
	profile := fmt.Sprintf("itest_session_%d", time.Now().UnixNano())
	t.Cleanup(func() {
		_, _ = db.Exec("DELETE FROM console_storage WHERE profile = $1", profile)
	})

	store, err := session.NewPostgresStorage(db, profile)
	if err != nil {
		t.Fatalf("NewPostgresStorage() error: %v", err)
	}
	mgr, err := session.NewManager(session.Deps{Storage: store, Auth: staticAuth{}})
	if err != nil {
		t.Fatalf("NewManager() error: %v", err)
	}
	if err := mgr.Login(context.Background(), session.LoginCredentials{Username: "tina", Password: "x"}, ""); err != nil {
		t.Fatalf("Login() error: %v", err)
	}

	restarted, err := session.NewManager(session.Deps{Storage: store, Auth: staticAuth{}})
	if err != nil {
		t.Fatalf("NewManager() error: %v", err)
	}
	if err := restarted.EnsureRestored(context.Background()); err != nil {
		t.Fatalf("EnsureRestored() error: %v", err)
	}
	if !restarted.IsAuthenticated() || !restarted.IsTeacher() {
		t.Fatalf("expected restored teacher session, got %+v", restarted.Snapshot())
	}
	if restarted.AccessToken() != "itest-access" {
		t.Fatalf("unexpected restored token %q", restarted.AccessToken())
	}
}
