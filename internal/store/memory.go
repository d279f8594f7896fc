// Package store provides persistence backends for sessions and profiles.
//
// This file implements an in-memory store used by tests and as a fallback
// when no database is configured.
package store

import (
	"fmt"
	"sync"
)

// InMemoryStore is a map-backed store, safe for concurrent use.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]SessionRecord
	profiles map[string]ProfileRecord
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions: make(map[string]SessionRecord),
		profiles: make(map[string]ProfileRecord),
	}
}

// SaveSession stores or replaces a session record.
func (s *InMemoryStore) SaveSession(rec SessionRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("session record missing id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[rec.ID] = rec
	return nil
}

// GetSession returns a session record by id.
func (s *InMemoryStore) GetSession(id string) (*SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
	}
	return &rec, nil
}

// ListActiveSessions returns every session with active status.
func (s *InMemoryStore) ListActiveSessions() ([]SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []SessionRecord
	for _, rec := range s.sessions {
		if rec.Status == SessionStatusActive {
			out = append(out, rec)
		}
	}
	return out, nil
}

// DeleteSession removes a session record.
func (s *InMemoryStore) DeleteSession(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// SaveProfile stores or replaces a profile record.
func (s *InMemoryStore) SaveProfile(rec ProfileRecord) error {
	if rec.SessionID == "" {
		return fmt.Errorf("profile record missing session id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[rec.SessionID] = rec
	return nil
}

// GetProfile returns the profile saved for a session, or nil.
func (s *InMemoryStore) GetProfile(sessionID string) (*ProfileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.profiles[sessionID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error { return nil }
