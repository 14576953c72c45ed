package auth

import (
	"net/http"
	"time"

	"authrelay/internal/http/helpers"
	svc "authrelay/internal/http/services/auth"
)

// SessionController handles GET /auth/session and POST /auth/logout.
type SessionController struct {
	service svc.SessionService
	cookies Cookies
}

// Current introspects the caller's session.
func (c *SessionController) Current(w http.ResponseWriter, r *http.Request) {
	token := sessionToken(r, c.cookies.Name)
	if token == "" {
		helpers.WriteError(w, helpers.ErrUnauthorized.WithCode("invalid_session"))
		return
	}
	info, err := c.service.Current(r.Context(), token)
	if err != nil {
		helpers.WriteError(w, mapError(err))
		return
	}
	helpers.WriteJSON(w, http.StatusOK, info)
}

// Logout revokes the caller's session and clears the cookie. Always succeeds
// from the client's point of view.
func (c *SessionController) Logout(w http.ResponseWriter, r *http.Request) {
	if token := sessionToken(r, c.cookies.Name); token != "" {
		if err := c.service.Logout(r.Context(), token); err != nil {
			helpers.WriteError(w, mapError(err))
			return
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     c.cookies.Name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}
