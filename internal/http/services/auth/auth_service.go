// Package auth holds the HTTP-facing login services. Controllers talk to
// these interfaces; the implementations sit on the OAuth user manager and
// record the flow metrics.
package auth

import (
	"context"
	"errors"
	"time"
)

var (
	ErrMissingState = errors.New("missing state")
	ErrMissingCode  = errors.New("missing code")
)

// StartRequest starts one login attempt.
type StartRequest struct {
	// Provider selects the endpoint profile; empty means "default".
	Provider string
	// Redirect is the optional post-login location, carried through the
	// state and returned by the callback.
	Redirect string
}

// StartService builds the provider redirect for a login attempt.
type StartService interface {
	Start(ctx context.Context, req StartRequest) (redirectURL string, err error)
}

// CallbackRequest carries the provider callback parameters.
type CallbackRequest struct {
	State string
	Code  string
}

// CallbackResult is what the controller needs to finish the login: the
// session token for the cookie and the post-login redirect.
type CallbackResult struct {
	SessionToken string
	Redirect     string
	Username     string
	ExpiresAt    time.Time
}

// CallbackService completes the code-for-session half of the flow.
type CallbackService interface {
	Callback(ctx context.Context, req CallbackRequest) (*CallbackResult, error)
}

// SessionInfo is the introspection view of the caller's session.
type SessionInfo struct {
	Username   string    `json:"username"`
	UserID     string    `json:"user_id"`
	Groups     []string  `json:"groups"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

// SessionService validates and terminates sessions by signed token.
type SessionService interface {
	Current(ctx context.Context, token string) (*SessionInfo, error)
	Logout(ctx context.Context, token string) error
}
