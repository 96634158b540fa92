// Package prefs keeps the dashboard's city selection in a small JSON file.
package prefs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// Preferences is the persisted dashboard selection.
type Preferences struct {
	SelectedCities []string `json:"selected_cities"`
}

// Store reads and writes preferences at a fixed path. An empty path makes the
// store memory-only.
type Store struct {
	mu   sync.Mutex
	path string
	mem  Preferences
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load returns the saved preferences. A missing file yields empty preferences.
func (s *Store) Load() (Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return s.mem, nil
	}

	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Preferences{SelectedCities: []string{}}, nil
	}
	if err != nil {
		return Preferences{}, errors.Wrap(err, "read preferences")
	}

	var p Preferences
	if err := json.Unmarshal(b, &p); err != nil {
		return Preferences{}, errors.Wrap(err, "parse preferences")
	}
	if p.SelectedCities == nil {
		p.SelectedCities = []string{}
	}
	return p, nil
}

// Save writes preferences atomically.
func (s *Store) Save(p Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.SelectedCities == nil {
		p.SelectedCities = []string{}
	}
	if s.path == "" {
		s.mem = p
		return nil
	}

	b, err := json.MarshalIndent(p, "", " ")
	if err != nil {
		return errors.Wrap(err, "marshal preferences")
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "create preferences dir")
	}
	tmp, err := os.CreateTemp(dir, ".prefs-*.json")
	if err != nil {
		return errors.Wrap(err, "create temp preferences")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return errors.Wrap(err, "write preferences")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close preferences")
	}
	return errors.Wrap(os.Rename(tmp.Name(), s.path), "replace preferences")
}
