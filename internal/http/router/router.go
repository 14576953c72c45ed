// Package router wires the HTTP routes to their controllers.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authctrl "authrelay/internal/http/controllers/auth"
	healthctrl "authrelay/internal/http/controllers/health"
	mw "authrelay/internal/http/middlewares"
)

// Deps are the controllers and settings the router needs.
type Deps struct {
	Auth   *authctrl.Controllers
	Health *healthctrl.Controller

	CORSAllowedOrigins []string
}

// New builds the full route tree.
func New(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(mw.WithRecover)
	r.Use(mw.WithLogging)
	r.Use(mw.WithSecurityHeaders)

	r.Route("/auth", func(r chi.Router) {
		r.Use(mw.WithNoStore)
		if len(deps.CORSAllowedOrigins) > 0 {
			r.Use(mw.WithCORS(deps.CORSAllowedOrigins))
		}
		r.Get("/login", deps.Auth.Start.Start)
		r.Get("/callback", deps.Auth.Callback.Callback)
		r.Get("/session", deps.Auth.Session.Current)
		r.Post("/logout", deps.Auth.Session.Logout)
	})

	r.Get("/healthz", deps.Health.Check)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}
