package memory

import (
	"context"
	"sync"
	"time"

	"github.com/nimbusworks/platform-api/internal/core/domain"
)

type sessionEntry struct {
	record    domain.SessionRecord
	expiresAt time.Time
}

// SessionStore keeps session records in process memory. It backs the
// single-instance mode selected by an empty REDIS_ADDR; sessions are local
// to the process, so it must not be used behind a load balancer.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]sessionEntry
	now      func() time.Time
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]sessionEntry), now: time.Now}
}

// WithClock overrides the time source. Tests only.
func (s *SessionStore) WithClock(now func() time.Time) *SessionStore {
	s.now = now
	return s
}

func (s *SessionStore) Put(_ context.Context, rec domain.SessionRecord, ttl time.Duration) error {
	s.mu.Lock()
	s.sessions[rec.ID] = sessionEntry{record: rec, expiresAt: s.now().Add(ttl)}
	s.mu.Unlock()
	return nil
}

// Get returns nil without error when the session does not exist or has
// expired, matching the Redis store's contract.
func (s *SessionStore) Get(_ context.Context, sessionID string) (*domain.SessionRecord, error) {
	s.mu.RLock()
	e, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if s.now().After(e.expiresAt) {
		s.mu.Lock()
		delete(s.sessions, sessionID)
		s.mu.Unlock()
		return nil, nil
	}
	rec := e.record
	return &rec, nil
}

func (s *SessionStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	return nil
}
