package user

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is the in-process user store. All mutations go through one
// mutex, which also gives CreateIfAbsent its per-username atomicity.
type MemoryStore struct {
	mu     sync.RWMutex
	byID   map[string]*User
	byName map[string]string // username (lowercased) -> id
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:   make(map[string]*User),
		byName: make(map[string]string),
	}
}

func nameKey(username string) string { return strings.ToLower(strings.TrimSpace(username)) }

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryStore) Get(ctx context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return u.Clone(), nil
}

func (s *MemoryStore) FindByName(ctx context.Context, username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byName[nameKey(username)]
	if !ok {
		return nil, ErrNotFound
	}
	return s.byID[id].Clone(), nil
}

func (s *MemoryStore) List(ctx context.Context) ([]*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*User, 0, len(s.byID))
	for _, u := range s.byID {
		out = append(out, u.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (s *MemoryStore) Create(ctx context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := nameKey(u.Username)
	if _, exists := s.byName[key]; exists {
		return ErrConflict
	}
	s.insertLocked(key, u)
	return nil
}

func (s *MemoryStore) CreateIfAbsent(ctx context.Context, u *User) (*User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := nameKey(u.Username)
	if id, exists := s.byName[key]; exists {
		return s.byID[id].Clone(), false, nil
	}
	s.insertLocked(key, u)
	return u.Clone(), true, nil
}

func (s *MemoryStore) insertLocked(key string, u *User) {
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	s.byID[u.ID] = u.Clone()
	s.byName[key] = u.ID
}

func (s *MemoryStore) Update(ctx context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.byID[u.ID]
	if !ok {
		return ErrNotFound
	}
	u.CreatedAt = old.CreatedAt
	u.UpdatedAt = time.Now().UTC()
	delete(s.byName, nameKey(old.Username))
	s.byID[u.ID] = u.Clone()
	s.byName[nameKey(u.Username)] = u.ID
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.byName, nameKey(u.Username))
	delete(s.byID, id)
	return nil
}
