package downstream

import (
	"fmt"
	"slices"
	"sync"
)

// OptionsSource resolves named options.
type OptionsSource interface {
	Get(name string) (*Options, error)
}

// OptionsStore holds named Options snapshots. Get always returns a clone, so
// a refresh never affects calls already in flight.
type OptionsStore struct {
	mu      sync.RWMutex
	options map[string]*Options
}

// NewOptionsStore creates a store seeded with initial.
func NewOptionsStore(initial map[string]*Options) *OptionsStore {
	s := &OptionsStore{options: make(map[string]*Options, len(initial))}
	for name, o := range initial {
		s.options[name] = o.Clone()
	}
	return s
}

// Set registers or replaces the options for name.
func (s *OptionsStore) Set(name string, o *Options) {
	c := o.Clone()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.options[name] = c
}

// Replace swaps the whole set of named options.
func (s *OptionsStore) Replace(all map[string]*Options) {
	next := make(map[string]*Options, len(all))
	for name, o := range all {
		next[name] = o.Clone()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.options = next
}

// Get returns a copy of the options registered under name.
func (s *OptionsStore) Get(name string) (*Options, error) {
	s.mu.RLock()
	o, ok := s.options[name]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownService, name)
	}
	return o.Clone(), nil
}

// Names returns the registered names in sorted order.
func (s *OptionsStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.options))
	for name := range s.options {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
