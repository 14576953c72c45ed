package auth

import (
	"net/http"
	"strings"
	"time"

	"authrelay/internal/http/helpers"
	svc "authrelay/internal/http/services/auth"
	"authrelay/internal/observability/logger"
)

// CallbackController handles GET /auth/callback.
type CallbackController struct {
	service svc.CallbackService
	cookies Cookies
}

// Callback finishes the login: exchanges the code, sets the session cookie
// and sends the browser to its post-login destination.
func (c *CallbackController) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("CallbackController.Callback"))

	q := r.URL.Query()

	// The provider can answer with an error instead of a code.
	if idpErr := strings.TrimSpace(q.Get("error")); idpErr != "" {
		log.Warn("provider returned error", logger.String("error", idpErr))
		helpers.WriteError(w, helpers.ErrUnauthorized.WithCode("provider_error").WithDetail(idpErr))
		return
	}

	result, err := c.service.Callback(ctx, svc.CallbackRequest{
		State: strings.TrimSpace(q.Get("state")),
		Code:  strings.TrimSpace(q.Get("code")),
	})
	if err != nil {
		helpers.WriteError(w, mapError(err))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     c.cookies.Name,
		Value:    result.SessionToken,
		Path:     "/",
		Expires:  result.ExpiresAt,
		HttpOnly: true,
		Secure:   c.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	if result.Redirect != "" {
		http.Redirect(w, r, result.Redirect, http.StatusFound)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]any{
		"username":   result.Username,
		"expires_at": result.ExpiresAt.Format(time.RFC3339),
	})
}
