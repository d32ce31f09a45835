package session

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

// PostgresStorage keeps the keys of one console profile in a shared table,
// so several console hosts can each own a profile.
type PostgresStorage struct {
	db      *sql.DB
	profile string
	nowFunc func() time.Time
}

func NewPostgresStorage(db *sql.DB, profile string) (*PostgresStorage, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	profile = strings.TrimSpace(profile)
	if profile == "" {
		return nil, fmt.Errorf("storage profile is required")
	}
	s := &PostgresStorage{db: db, profile: profile, nowFunc: time.Now}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStorage) ensureSchema() error {
	const q = `
CREATE TABLE IF NOT EXISTS console_storage (
	profile TEXT NOT NULL,
	key TEXT NOT NULL,
	value TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (profile, key)
)`
	if _, err := s.db.Exec(q); err != nil {
		return fmt.Errorf("ensure console_storage schema: %w", err)
	}
	return nil
}

func (s *PostgresStorage) Get(key string) (string, bool, error) {
	const q = `SELECT value FROM console_storage WHERE profile = $1 AND key = $2`
	var v string
	err := s.db.QueryRow(q, s.profile, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return v, true, nil
}

func (s *PostgresStorage) Set(values map[string]string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	const q = `
INSERT INTO console_storage (profile, key, value, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (profile, key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
	now := s.nowFunc().UTC()
	for k, v := range values {
		if _, err := tx.Exec(q, s.profile, k, v, now); err != nil {
			return fmt.Errorf("upsert %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit storage tx: %w", err)
	}
	return nil
}

func (s *PostgresStorage) Remove(keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	const q = `DELETE FROM console_storage WHERE profile = $1 AND key = ANY($2)`
	if _, err := s.db.Exec(q, s.profile, pq.Array(keys)); err != nil {
		return fmt.Errorf("remove keys: %w", err)
	}
	return nil
}

// Ping is used by readiness checks.
func (s *PostgresStorage) Ping() error {
	return s.db.Ping()
}
