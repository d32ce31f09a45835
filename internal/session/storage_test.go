package session

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func exerciseStorage(t *testing.T, s Storage) {
	t.Helper()

	if _, ok, err := s.Get(KeyToken); err != nil || ok {
		t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
	}
	if err := s.Set(map[string]string{KeyToken: "a", KeyRefreshToken: "r", KeyUser: `{"username":"ada"}`}); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if err := s.Set(map[string]string{KeyToken: "b"}); err != nil {
		t.Fatalf("Set() overwrite error: %v", err)
	}
	if v, ok, err := s.Get(KeyToken); err != nil || !ok || v != "b" {
		t.Fatalf("expected last write to win, got %q ok=%v err=%v", v, ok, err)
	}
	if err := s.Remove(allKeys...); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}
	for _, key := range allKeys {
		if _, ok, _ := s.Get(key); ok {
			t.Fatalf("expected %s removed", key)
		}
	}
}

func TestMemoryStorage(t *testing.T) {
	exerciseStorage(t, NewMemoryStorage())
}

func TestFileStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "session.json")
	s, err := NewFileStorage(path)
	if err != nil {
		t.Fatalf("NewFileStorage() error: %v", err)
	}
	exerciseStorage(t, s)
}

func TestFileStoragePersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	s, err := NewFileStorage(path)
	if err != nil {
		t.Fatalf("NewFileStorage() error: %v", err)
	}
	if err := s.Set(map[string]string{KeyToken: "persisted"}); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	s2, err := NewFileStorage(path)
	if err != nil {
		t.Fatalf("NewFileStorage() second error: %v", err)
	}
	if v, ok, _ := s2.Get(KeyToken); !ok || v != "persisted" {
		t.Fatalf("expected persisted token, got %q", v)
	}
	st, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if st.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600 state file, got %v", st.Mode().Perm())
	}
}

func TestFileStorageDiscardsTruncatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte(`{"token":"abc","user":`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	s, err := NewFileStorage(path)
	if err != nil {
		t.Fatalf("NewFileStorage() error: %v", err)
	}
	if s.Discarded() == nil {
		t.Fatalf("expected the corrupt file to be reported as discarded")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected corrupt file removed, stat err=%v", err)
	}
	if _, ok, _ := s.Get(KeyToken); ok {
		t.Fatalf("expected no token from a corrupt file")
	}

	mgr, err := NewManager(Deps{Storage: s, Auth: &fakeAuth{}})
	if err != nil {
		t.Fatalf("NewManager() error: %v", err)
	}
	if err := mgr.Restore(); err != nil {
		t.Fatalf("Restore() error: %v", err)
	}
	if mgr.IsAuthenticated() {
		t.Fatalf("expected an unauthenticated session after a corrupt file")
	}

	if err := s.Set(map[string]string{KeyToken: "fresh"}); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	again, err := NewFileStorage(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if again.Discarded() != nil {
		t.Fatalf("expected a clean file after the next write, got %v", again.Discarded())
	}
}

func TestSQLiteStorage(t *testing.T) {
	s, err := OpenSQLiteStorage(filepath.Join(t.TempDir(), "session.db"))
	if err != nil {
		t.Fatalf("OpenSQLiteStorage() error: %v", err)
	}
	defer s.Close()
	exerciseStorage(t, s)
}

func TestNewPostgresStorage(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS console_storage").WillReturnResult(sqlmock.NewResult(0, 0))

	if _, err := NewPostgresStorage(db, "lab-1"); err != nil {
		t.Fatalf("NewPostgresStorage() error: %v", err)
	}
	if _, err := NewPostgresStorage(db, " "); err == nil {
		t.Fatalf("expected error for empty profile")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestPostgresStorageSetGetRemove(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS console_storage").WillReturnResult(sqlmock.NewResult(0, 0))
	s, err := NewPostgresStorage(db, "lab-1")
	if err != nil {
		t.Fatalf("NewPostgresStorage() error: %v", err)
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO console_storage").
		WithArgs("lab-1", KeyToken, "tok", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
	if err := s.Set(map[string]string{KeyToken: "tok"}); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT value FROM console_storage WHERE profile = $1 AND key = $2")).
		WithArgs("lab-1", KeyToken).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("tok"))
	if v, ok, err := s.Get(KeyToken); err != nil || !ok || v != "tok" {
		t.Fatalf("Get() = %q, %v, %v", v, ok, err)
	}

	mock.ExpectQuery("SELECT value FROM console_storage").
		WithArgs("lab-1", KeyUser).
		WillReturnRows(sqlmock.NewRows([]string{"value"}))
	if _, ok, err := s.Get(KeyUser); err != nil || ok {
		t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
	}

	mock.ExpectExec("DELETE FROM console_storage").
		WithArgs("lab-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))
	if err := s.Remove(allKeys...); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}
