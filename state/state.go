// Package state persists small pieces of daemon state between runs, such as
// the directory that was being watched when the daemon last stopped.
package state

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/grovetools/pollwatch/pkg/paths"
	"gopkg.in/yaml.v3"
)

// KeyLastDirectory holds the most recently monitored directory.
const KeyLastDirectory = "last_directory"

// State is the persisted key-value map.
type State map[string]interface{}

// Store reads and writes a State file. Methods are safe for concurrent use.
type Store struct {
	mu   sync.Mutex
	path string
}

// DefaultPath returns the state file under the pollwatch state directory.
func DefaultPath() string {
	return filepath.Join(paths.StateDir(), "state.yml")
}

// Open returns a store backed by path. The file is created on first Set.
func Open(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file.
func (s *Store) Path() string { return s.path }

// Load reads the state file. A missing file yields an empty state.
func (s *Store) Load() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() (State, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(State), nil
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var st State
	if err := yaml.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parse state file: %w", err)
	}
	if st == nil {
		st = make(State)
	}
	return st, nil
}

func (s *Store) save(st State) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	data, err := yaml.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write state file: %w", err)
	}
	return nil
}

// GetString returns the string stored under key, or "" when the key is
// missing or holds another type.
func (s *Store) GetString(key string) (string, error) {
	st, err := s.Load()
	if err != nil {
		return "", err
	}
	str, _ := st[key].(string)
	return str, nil
}

// Set stores value under key.
func (s *Store) Set(key string, value interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return err
	}
	st[key] = value
	return s.save(st)
}

// Delete removes key.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := st[key]; !ok {
		return nil
	}
	delete(st, key)
	return s.save(st)
}
