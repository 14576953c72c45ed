package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"authrelay/internal/oauth"
	"authrelay/internal/observability/logger"
)

// Manager drives the session state machine:
//
//	Active -> Expired  (absolute TTL, idle timeout, or provider expiry)
//	Active -> Revoked  (logout or admin action)
//
// Both transitions are terminal. There is no token-refresh flow; expiry
// always means a fresh login.
type Manager struct {
	store  Store
	signer *Signer

	ttl  time.Duration
	idle time.Duration

	now func() time.Time
}

// Config for the manager. TTL defaults to 24h, IdleTimeout to 1h.
type Config struct {
	TTL         time.Duration
	IdleTimeout time.Duration
}

func NewManager(store Store, signer *Signer, cfg Config) *Manager {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	idle := cfg.IdleTimeout
	if idle <= 0 {
		idle = time.Hour
	}
	return &Manager{store: store, signer: signer, ttl: ttl, idle: idle, now: time.Now}
}

// Create opens an Active session for the user and returns the record plus
// the signed token for the client. When the provider declared expires_in,
// the absolute deadline is capped to it.
func (m *Manager) Create(ctx context.Context, userID, username string, tok *oauth.Token) (*Session, string, error) {
	now := m.now().UTC()
	expires := now.Add(m.ttl)
	if tok != nil && tok.ExpiresIn > 0 {
		if provider := now.Add(time.Duration(tok.ExpiresIn) * time.Second); provider.Before(expires) {
			expires = provider
		}
	}

	sess := &Session{
		ID:         uuid.NewString(),
		UserID:     userID,
		Username:   username,
		State:      StateActive,
		CreatedAt:  now,
		LastSeenAt: now,
		ExpiresAt:  expires,
	}
	if tok != nil {
		sess.AccessToken = tok.AccessToken
	}

	signed, err := m.signer.Sign(sess)
	if err != nil {
		return nil, "", err
	}
	if err := m.store.Put(ctx, sess); err != nil {
		return nil, "", err
	}

	logger.From(ctx).Info("session created",
		logger.Component("session.manager"),
		logger.SessionID(sess.ID),
		logger.UserID(userID),
	)
	return sess, signed, nil
}

// Validate checks a signed token against the server-side record. Valid
// calls bump LastSeenAt; the state of an Active session never changes here,
// so repeated validation is idempotent.
func (m *Manager) Validate(ctx context.Context, signed string) (*Session, error) {
	id, err := m.signer.Parse(signed)
	if err != nil {
		return nil, err
	}
	return m.ValidateID(ctx, id)
}

// ValidateID validates by record ID (used by revocation paths and tests).
func (m *Manager) ValidateID(ctx context.Context, id string) (*Session, error) {
	sess, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	switch sess.State {
	case StateRevoked:
		return nil, ErrSessionRevoked
	case StateExpired:
		return nil, ErrSessionExpired
	}

	now := m.now().UTC()
	if now.After(sess.ExpiresAt) || now.Sub(sess.LastSeenAt) > m.idle {
		sess.State = StateExpired
		sess.AccessToken = "" // drop the bound token with the session
		if err := m.store.Update(ctx, sess); err != nil {
			return nil, err
		}
		return nil, ErrSessionExpired
	}

	sess.LastSeenAt = now
	if err := m.store.Update(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Revoke terminates a session. Idempotent: revoking a revoked or expired
// session is a no-op.
func (m *Manager) Revoke(ctx context.Context, id string) error {
	sess, err := m.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if sess.State == StateRevoked {
		return nil
	}
	sess.State = StateRevoked
	sess.AccessToken = ""
	if err := m.store.Update(ctx, sess); err != nil {
		return err
	}
	logger.From(ctx).Info("session revoked",
		logger.Component("session.manager"),
		logger.SessionID(id),
	)
	return nil
}

// RevokeAllForUser revokes every session of one user (admin deactivation,
// logout-everywhere). Returns how many sessions were revoked.
func (m *Manager) RevokeAllForUser(ctx context.Context, userID string) (int, error) {
	sessions, err := m.store.ListByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, sess := range sessions {
		if sess.State != StateActive {
			continue
		}
		if err := m.Revoke(ctx, sess.ID); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// ActiveCount reports currently Active sessions for the metrics gauge.
func (m *Manager) ActiveCount(ctx context.Context) int {
	ms, ok := m.store.(*MemoryStore)
	if !ok {
		return -1
	}
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	n := 0
	for _, sess := range ms.m {
		if sess.State == StateActive {
			n++
		}
	}
	return n
}
