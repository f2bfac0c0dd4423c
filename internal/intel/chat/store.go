package chat

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/nexpharm/pharmacy-intel/pkg/errors"
	"github.com/nexpharm/pharmacy-intel/pkg/logger"
)

// Store keeps chat sessions in memory and forgets them after ttl of inactivity
type Store struct {
	mu        sync.RWMutex
	sessions  map[string]*Session
	assistant Assistant
	ttl       time.Duration
	now       func() time.Time
	logger    *logger.Logger
}

// NewStore creates an empty session store
func NewStore(assistant Assistant, ttl time.Duration, log *logger.Logger) *Store {
	return &Store{
		sessions:  make(map[string]*Session),
		assistant: assistant,
		ttl:       ttl,
		now:       time.Now,
		logger:    log.WithComponent("chat"),
	}
}

// Create starts a new session seeded with the greeting
func (s *Store) Create() *Session {
	session := newSession(uuid.NewString(), s.assistant, s.now, s.logger)

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	s.logger.Debug().Str("session_id", session.ID).Msg("chat session created")
	return session
}

// Get returns a live session and marks it active
func (s *Store) Get(id string) (*Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok || s.expired(session) {
		return nil, apperrors.NotFound("chat session")
	}

	session.touch()
	return session, nil
}

// Delete discards a session and its conversation
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return apperrors.NotFound("chat session")
	}
	delete(s.sessions, id)
	return nil
}

// Len returns the number of stored sessions
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep removes idle sessions and returns how many were removed
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, session := range s.sessions {
		if s.expired(session) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until ctx is done
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.Info().Int("removed", n).Msg("expired chat sessions removed")
			}
		}
	}
}

func (s *Store) expired(session *Session) bool {
	if s.ttl <= 0 {
		return false
	}
	return session.idleSince(s.now().Add(-s.ttl))
}
