package auth

import (
	"net/http"
	"strings"

	"authrelay/internal/http/helpers"
	svc "authrelay/internal/http/services/auth"
	"authrelay/internal/observability/logger"
)

// StartController handles GET /auth/login.
type StartController struct {
	service svc.StartService
}

// Start redirects the browser to the identity provider. The optional
// redirect parameter is validated to a local path so the callback cannot be
// turned into an open redirector.
func (c *StartController) Start(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("StartController.Start"))

	redirect := r.URL.Query().Get("redirect")
	if !safeLocalRedirect(redirect) {
		log.Warn("rejected non-local redirect")
		helpers.WriteError(w, helpers.ErrBadRequest.WithDetail("redirect must be a local path"))
		return
	}

	url, err := c.service.Start(ctx, svc.StartRequest{
		Provider: r.URL.Query().Get("provider"),
		Redirect: redirect,
	})
	if err != nil {
		helpers.WriteError(w, mapError(err))
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

// safeLocalRedirect accepts "" and absolute local paths ("/app"), rejecting
// anything that could leave the site ("//evil", "https://evil").
func safeLocalRedirect(p string) bool {
	if p == "" {
		return true
	}
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") {
		return false
	}
	return !strings.Contains(p, "://")
}
