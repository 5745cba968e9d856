package googletasks

import (
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"
)

// expandState holds the expand flag of every task id, since Google Tasks has
// none. Tasks are expanded unless recorded otherwise. An empty path keeps
// the flags in memory.
type expandState struct {
	path string

	mu     sync.Mutex
	loaded bool
	flags  map[string]bool
}

func newExpandState(path string) *expandState {
	return &expandState{path: path, flags: make(map[string]bool)}
}

func (s *expandState) load() {
	if s.loaded {
		return
	}
	s.loaded = true
	if s.path == "" {
		return
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return
	}
	var flags map[string]bool
	if json.Unmarshal(data, &flags) == nil && flags != nil {
		s.flags = flags
	}
}

// Get reports whether id is expanded.
func (s *expandState) Get(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load()
	v, ok := s.flags[id]
	return !ok || v
}

// Set records the flag of id. Only collapsed tasks are stored.
func (s *expandState) Set(id string, expanded bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load()
	if expanded {
		delete(s.flags, id)
	} else {
		s.flags[id] = false
	}
	return s.save()
}

// Forget drops id.
func (s *expandState) Forget(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load()
	if _, ok := s.flags[id]; !ok {
		return nil
	}
	delete(s.flags, id)
	return s.save()
}

func (s *expandState) save() error {
	if s.path == "" {
		return nil
	}
	data, err := json.Marshal(s.flags)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil && !errors.Is(err, os.ErrExist) {
		return err
	}
	return os.WriteFile(s.path, data, 0600)
}
