package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"time"

	"authrelay/internal/cache"
)

const statePrefix = "oauth:state:"

// StateMeta travels with the anti-forgery state so the callback knows which
// provider profile and post-login redirect the attempt belongs to.
type StateMeta struct {
	Provider string `json:"provider"`
	Redirect string `json:"redirect,omitempty"`
	IssuedAt int64  `json:"iat"`
}

// States issues and consumes one-time anti-forgery state tokens. Each login
// attempt gets a fresh 32-byte random token (well above the 128-bit floor);
// consuming a token removes it, so replays and forged callbacks fail alike.
type States struct {
	cache cache.Cache
	ttl   time.Duration
}

func NewStates(c cache.Cache, ttl time.Duration) *States {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &States{cache: c, ttl: ttl}
}

// Issue generates a state token and registers it with its metadata.
func (s *States) Issue(ctx context.Context, meta StateMeta) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	state := base64.RawURLEncoding.EncodeToString(b)

	meta.IssuedAt = time.Now().Unix()
	payload, err := json.Marshal(meta)
	if err != nil {
		return "", err
	}
	s.cache.Set(statePrefix+state, payload, s.ttl)
	return state, nil
}

// Consume validates a callback state and deletes it. One shot: the lookup
// and removal are a single cache operation, so of any number of concurrent
// Consume calls for the same state exactly one succeeds and the rest fail
// with ErrInvalidState.
func (s *States) Consume(ctx context.Context, state string) (*StateMeta, error) {
	if state == "" {
		return nil, ErrInvalidState
	}
	payload, ok := s.cache.GetDel(statePrefix + state)
	if !ok || len(payload) == 0 {
		return nil, ErrInvalidState
	}

	var meta StateMeta
	if err := json.Unmarshal(payload, &meta); err != nil {
		return nil, ErrInvalidState
	}
	return &meta, nil
}
