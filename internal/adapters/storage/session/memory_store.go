package session

import (
	"context"
	"sync"

	domain "campusevents/internal/domain/session"
)

// MemoryStore implements Store in process memory. Sessions do not survive a restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]domain.Session)}
}

// Get returns the session for sid, or the zero Session.
func (s *MemoryStore) Get(_ context.Context, sid string) (domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[sid], nil
}

// Set replaces all three fields for sid at once.
func (s *MemoryStore) Set(_ context.Context, sid string, value domain.Session) error {
	s.mu.Lock()
	s.sessions[sid] = value
	s.mu.Unlock()
	return nil
}

// Clear removes the session for sid. Clearing an unknown sid is a no-op.
func (s *MemoryStore) Clear(_ context.Context, sid string) error {
	s.mu.Lock()
	delete(s.sessions, sid)
	s.mu.Unlock()
	return nil
}

// Healthy always succeeds.
func (s *MemoryStore) Healthy(context.Context) error {
	return nil
}
