package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileStorage keeps all keys in one JSON object, rewritten on every change.
type FileStorage struct {
	path string

	mu        sync.RWMutex
	values    map[string]string
	discarded error
}

func NewFileStorage(path string) (*FileStorage, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("session state file path is required")
	}

	s := &FileStorage{
		path:   path,
		values: make(map[string]string),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStorage) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *FileStorage) Set(values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := make(map[string]*string, len(values))
	for k, v := range values {
		if old, ok := s.values[k]; ok {
			prev[k] = &old
		} else {
			prev[k] = nil
		}
		s.values[k] = v
	}
	if err := s.persistLocked(); err != nil {
		for k, old := range prev {
			if old == nil {
				delete(s.values, k)
			} else {
				s.values[k] = *old
			}
		}
		return err
	}
	return nil
}

func (s *FileStorage) Remove(keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	for _, k := range keys {
		if _, ok := s.values[k]; ok {
			delete(s.values, k)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.persistLocked()
}

func (s *FileStorage) load() error {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read session state file: %w", err)
	}
	if len(b) == 0 {
		return nil
	}

	values := make(map[string]string)
	if err := json.Unmarshal(b, &values); err != nil {
		// A corrupt file is dropped; the session starts logged out.
		s.discarded = fmt.Errorf("decode session state file: %w", err)
		if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove corrupt session state file: %w", err)
		}
		return nil
	}
	if values != nil {
		s.values = values
	}
	return nil
}

// Discarded reports why the state file found at startup was thrown away, or
// nil when it was read or absent.
func (s *FileStorage) Discarded() error {
	return s.discarded
}

func (s *FileStorage) persistLocked() error {
	b, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session state file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("mkdir session state dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("write session state file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace session state file: %w", err)
	}
	return nil
}
