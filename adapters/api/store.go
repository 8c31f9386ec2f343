package api

import (
	"sync"

	"gaussfit/app"
	"gaussfit/internal/errors"
)

// Store keeps finished analyses in process memory
type Store struct {
	mu       sync.RWMutex
	analyses map[string]*app.Analysis
	order    []string
	limit    int
}

// NewStore creates a store that forgets the oldest analysis beyond limit (0 = unbounded)
func NewStore(limit int) *Store {
	return &Store{analyses: make(map[string]*app.Analysis), limit: limit}
}

// Put records an analysis under its ID
func (s *Store) Put(a *app.Analysis) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.analyses[a.ID]; !ok {
		s.order = append(s.order, a.ID)
	}
	s.analyses[a.ID] = a

	for s.limit > 0 && len(s.order) > s.limit {
		delete(s.analyses, s.order[0])
		s.order = s.order[1:]
	}
}

// Get returns the analysis with the given ID
func (s *Store) Get(id string) (*app.Analysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.analyses[id]
	if !ok {
		return nil, errors.NotFound("analysis " + id)
	}
	return a, nil
}

// Len returns the number of stored analyses
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.analyses)
}
