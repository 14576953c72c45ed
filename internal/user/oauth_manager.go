package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"authrelay/internal/cache"
	"authrelay/internal/config"
	"authrelay/internal/oauth"
	"authrelay/internal/observability/logger"
	"authrelay/internal/session"
)

// ErrProviderNotConfigured: the requested provider profile does not exist in
// the active configuration snapshot, or no profiles are configured at all.
var ErrProviderNotConfigured = errors.New("oauth provider not configured")

// Principal is the authenticated result handed back to the host's request
// pipeline after a completed login or session validation.
type Principal struct {
	User         *User
	Session      *session.Session
	SessionToken string
	// Provider names the profile that authenticated this principal; empty
	// for principals resolved from an existing session.
	Provider string
}

// OAuthManager is the drop-in user manager that authenticates against an
// OAuth 2.0 identity provider. Every user-management operation delegates to
// the wrapped manager; only the authentication path is overridden with the
// login pipeline: consume the state, exchange the code, fetch the profile,
// resolve the local user, open a session.
//
// Construction is plain dependency injection: the host's factory hook
// reduces to calling NewOAuthManager with its own manager and settings.
type OAuthManager struct {
	Manager // wrapped underlying manager; delegation by embedding

	snapshot func() *config.Config
	cache    cache.Cache
	states   *oauth.States
	resolver *Resolver
	sessions *session.Manager
}

func NewOAuthManager(
	underlying Manager,
	snapshot func() *config.Config,
	c cache.Cache,
	states *oauth.States,
	resolver *Resolver,
	sessions *session.Manager,
) *OAuthManager {
	return &OAuthManager{
		Manager:  underlying,
		snapshot: snapshot,
		cache:    c,
		states:   states,
		resolver: resolver,
		sessions: sessions,
	}
}

// Sessions exposes the session manager for logout and validation surfaces.
func (m *OAuthManager) Sessions() *session.Manager { return m.sessions }

func (m *OAuthManager) provider(name string) (*config.Provider, error) {
	cfg := m.snapshot()
	if cfg == nil || !cfg.LoginEnabled() {
		return nil, ErrProviderNotConfigured
	}
	p := cfg.Provider(name)
	if p == nil {
		return nil, fmt.Errorf("%w: %q", ErrProviderNotConfigured, name)
	}
	return p, nil
}

func (m *OAuthManager) callbackURL() string {
	base := strings.TrimRight(m.snapshot().Server.BaseURL, "/")
	return base + "/auth/callback"
}

// LoginURL starts a login attempt: issues a fresh one-time state and builds
// the provider redirect. redirect is the optional post-login location.
func (m *OAuthManager) LoginURL(ctx context.Context, providerName, redirect string) (string, error) {
	p, err := m.provider(providerName)
	if err != nil {
		return "", err
	}

	state, err := m.states.Issue(ctx, oauth.StateMeta{Provider: p.Name, Redirect: redirect})
	if err != nil {
		return "", err
	}

	client := oauth.NewClient(p, m.cache)
	url := client.AuthURL(state, m.callbackURL())

	logger.From(ctx).Debug("login redirect built",
		logger.Component("user.oauth"),
		logger.Provider(p.Name),
	)
	return url, nil
}

// CompleteLogin finishes the callback half of the flow. The state is
// consumed before any network call; every failure is terminal for the
// attempt and leaves no partial session behind.
func (m *OAuthManager) CompleteLogin(ctx context.Context, state, code string) (*Principal, string, error) {
	log := logger.From(ctx).With(logger.Component("user.oauth"), logger.Op("CompleteLogin"))

	meta, err := m.states.Consume(ctx, state)
	if err != nil {
		log.Warn("state validation failed")
		return nil, "", err
	}

	p, err := m.provider(meta.Provider)
	if err != nil {
		return nil, "", err
	}
	client := oauth.NewClient(p, m.cache)

	tok, err := client.ExchangeCode(ctx, code, m.callbackURL())
	if err != nil {
		log.Warn("code exchange failed", logger.Provider(p.Name), logger.Err(err))
		return nil, "", err
	}

	profile, err := client.FetchProfile(ctx, tok.AccessToken)
	if err != nil {
		log.Warn("profile fetch failed", logger.Provider(p.Name), logger.Err(err))
		return nil, "", err
	}

	u, err := m.resolver.Resolve(ctx, profile, p)
	if err != nil {
		return nil, "", err
	}

	sess, signed, err := m.sessions.Create(ctx, u.ID, u.Username, tok)
	if err != nil {
		return nil, "", err
	}

	log.Info("login completed",
		logger.Provider(p.Name),
		logger.UserID(u.ID),
		logger.Username(u.Username),
		logger.SessionID(sess.ID),
	)
	return &Principal{User: u, Session: sess, SessionToken: signed, Provider: p.Name}, meta.Redirect, nil
}

// ValidateSession resolves a signed session token back to its principal.
// A user deactivated after login fails validation and loses the session.
func (m *OAuthManager) ValidateSession(ctx context.Context, signed string) (*Principal, error) {
	sess, err := m.sessions.Validate(ctx, signed)
	if err != nil {
		return nil, err
	}
	u, err := m.Manager.Get(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	if !u.Active {
		_ = m.sessions.Revoke(ctx, sess.ID)
		return nil, ErrUserDisabled
	}
	return &Principal{User: u, Session: sess, SessionToken: signed}, nil
}

// Logout revokes the presented session. Unknown or already-dead sessions
// are not an error; logout is idempotent from the client's view.
func (m *OAuthManager) Logout(ctx context.Context, signed string) error {
	sess, err := m.sessions.Validate(ctx, signed)
	if err != nil {
		if errors.Is(err, session.ErrSessionExpired) || errors.Is(err, session.ErrSessionRevoked) ||
			errors.Is(err, session.ErrSessionNotFound) {
			return nil
		}
		return err
	}
	return m.sessions.Revoke(ctx, sess.ID)
}

// Deactivate extends the wrapped behavior: disabling a user also revokes
// every session they hold.
func (m *OAuthManager) Deactivate(ctx context.Context, id string) error {
	if err := m.Manager.Deactivate(ctx, id); err != nil {
		return err
	}
	n, err := m.sessions.RevokeAllForUser(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		logger.From(ctx).Info("sessions revoked on deactivation",
			logger.Component("user.oauth"),
			logger.UserID(id),
			logger.Count(n),
		)
	}
	return nil
}

var _ Manager = (*OAuthManager)(nil)
