// Package session owns local authenticated sessions: creation after a
// successful OAuth login, validation on each request, and revocation. The
// session record is the source of truth; the signed token handed to clients
// only names the record, so revocation takes effect immediately.
package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State is the session lifecycle state. Expired and Revoked are terminal: a
// new session requires a fresh login.
type State string

const (
	StateActive  State = "active"
	StateExpired State = "expired"
	StateRevoked State = "revoked"
)

var (
	ErrSessionExpired  = errors.New("session expired")
	ErrSessionRevoked  = errors.New("session revoked")
	ErrSessionNotFound = errors.New("session not found")
)

// Session binds one local user to one authenticated client connection. The
// remote access token is held here for the session's lifetime and nowhere
// else; it is never written to durable storage.
type Session struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	State    State  `json:"state"`

	// AccessToken is the provider token bound to this session. Excluded
	// from serialization on purpose.
	AccessToken string `json:"-"`

	CreatedAt  time.Time `json:"created_at"`
	LastSeenAt time.Time `json:"last_seen_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

func (s *Session) clone() *Session {
	c := *s
	return &c
}

// Store keeps session records. The memory implementation is the default;
// sessions are deliberately process-local and die with the process.
type Store interface {
	Put(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Update(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
	ListByUser(ctx context.Context, userID string) ([]*Session, error)
}

// MemoryStore is an RWMutex-guarded session table.
type MemoryStore struct {
	mu sync.RWMutex
	m  map[string]*Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: make(map[string]*Session)}
}

func (s *MemoryStore) Put(ctx context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[sess.ID] = sess.clone()
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.m[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess.clone(), nil
}

func (s *MemoryStore) Update(ctx context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.m[sess.ID]; !ok {
		return ErrSessionNotFound
	}
	s.m[sess.ID] = sess.clone()
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, id)
	return nil
}

func (s *MemoryStore) ListByUser(ctx context.Context, userID string) ([]*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Session
	for _, sess := range s.m {
		if sess.UserID == userID {
			out = append(out, sess.clone())
		}
	}
	return out, nil
}
