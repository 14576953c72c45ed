// Package auth holds the login HTTP controllers: thin adapters between the
// routes and the auth services. Controllers parse and write HTTP; policy
// lives in the services and below.
package auth

import (
	"errors"
	"net/http"
	"strings"

	"authrelay/internal/http/helpers"
	svc "authrelay/internal/http/services/auth"
	"authrelay/internal/oauth"
	"authrelay/internal/session"
	"authrelay/internal/user"
)

// Cookies configures the session cookie controllers set and read.
type Cookies struct {
	Name   string
	Secure bool
}

// Controllers groups the login controller set for route registration.
type Controllers struct {
	Start    *StartController
	Callback *CallbackController
	Session  *SessionController
}

func NewControllers(start svc.StartService, callback svc.CallbackService, sess svc.SessionService, cookies Cookies) *Controllers {
	return &Controllers{
		Start:    &StartController{service: start},
		Callback: &CallbackController{service: callback, cookies: cookies},
		Session:  &SessionController{service: sess, cookies: cookies},
	}
}

// sessionToken pulls the signed token from the session cookie or, failing
// that, an Authorization: Bearer header.
func sessionToken(r *http.Request, cookieName string) string {
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

// mapError translates domain errors into the API error envelope. Anything
// unrecognized collapses to a 500 without detail.
func mapError(err error) *helpers.HTTPError {
	switch {
	case errors.Is(err, svc.ErrMissingState), errors.Is(err, svc.ErrMissingCode):
		return helpers.ErrBadRequest.WithDetail(err.Error())
	case errors.Is(err, oauth.ErrInvalidState):
		return helpers.ErrBadRequest.WithCode("invalid_state").WithDetail("state is invalid or already used")
	case errors.Is(err, oauth.ErrTokenExchangeFailed):
		return helpers.ErrUnauthorized.WithCode("login_failed").WithDetail("authorization code rejected")
	case errors.Is(err, oauth.ErrProfileFetchFailed):
		return helpers.ErrBadGateway.WithCode("profile_unavailable")
	case errors.Is(err, oauth.ErrTimeout):
		return helpers.ErrGatewayTimeout
	case errors.Is(err, user.ErrMissingUsername):
		return helpers.ErrBadGateway.WithCode("profile_incomplete").WithDetail("provider profile has no usable username")
	case errors.Is(err, user.ErrUserDisabled):
		return helpers.ErrForbidden.WithCode("user_disabled")
	case errors.Is(err, user.ErrProviderNotConfigured):
		return helpers.ErrServiceUnavailable.WithCode("login_unavailable").WithDetail("no matching provider is configured")
	case errors.Is(err, session.ErrSessionExpired),
		errors.Is(err, session.ErrSessionRevoked),
		errors.Is(err, session.ErrSessionNotFound),
		// A user deleted while holding a live session: the session is dead,
		// not the server.
		errors.Is(err, user.ErrNotFound):
		return helpers.ErrUnauthorized.WithCode("invalid_session")
	default:
		return helpers.ErrInternalServerError
	}
}
