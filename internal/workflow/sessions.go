package workflow

import (
	"errors"
	"sync"
)

// ErrSessionNotFound means the workflow session id is unknown or was closed.
var ErrSessionNotFound = errors.New("workflow: session not found")

// Sessions is a registry of live controllers keyed by session id. Each
// controller belongs to one operator; the registry only guards the map, not
// the controllers themselves.
type Sessions struct {
	mu   sync.RWMutex
	byID map[string]*Controller
}

// NewSessions creates an empty registry.
func NewSessions() *Sessions {
	return &Sessions{byID: make(map[string]*Controller)}
}

// Put registers a controller.
func (s *Sessions) Put(c *Controller) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[c.ID()] = c
}

// Get returns the controller for id.
func (s *Sessions) Get(id string) (*Controller, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byID[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return c, nil
}

// Remove closes a session.
func (s *Sessions) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, id)
}
