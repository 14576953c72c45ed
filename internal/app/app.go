// Package app assembles the service from a configuration snapshot: storage,
// cache, session manager, the OAuth user manager and the HTTP route tree.
package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"authrelay/internal/cache"
	memcache "authrelay/internal/cache/memory"
	redcache "authrelay/internal/cache/redis"
	"authrelay/internal/config"
	authctrl "authrelay/internal/http/controllers/auth"
	healthctrl "authrelay/internal/http/controllers/health"
	"authrelay/internal/http/router"
	svcauth "authrelay/internal/http/services/auth"
	"authrelay/internal/metrics"
	"authrelay/internal/oauth"
	"authrelay/internal/observability/logger"
	"authrelay/internal/session"
	"authrelay/internal/user"
)

// Options tweak assembly beyond what the settings file carries.
type Options struct {
	// Migrate applies the Postgres schema before serving.
	Migrate bool
}

// App is the assembled service.
type App struct {
	Handler  http.Handler
	Manager  *user.OAuthManager
	Sessions *session.Manager
	Resolver *config.Resolver

	closers []func()
}

// Close releases pooled resources (database, redis).
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// New assembles the service from the resolver's current snapshot. Storage and
// cache backends are fixed at startup; only provider profiles, TTLs and
// secrets follow reloads.
func New(ctx context.Context, resolver *config.Resolver, opts Options) (*App, error) {
	cfg := resolver.Snapshot()
	dur := cfg.Durations()
	a := &App{Resolver: resolver}

	var c cache.Cache
	switch cfg.Cache.Kind {
	case "redis":
		rc := redcache.New(cfg.Cache.Redis.Addr, cfg.Cache.Redis.DB, cfg.Cache.Redis.Prefix)
		a.closers = append(a.closers, func() { _ = rc.Close() })
		c = rc
	default:
		c = memcache.New(dur.CacheTTL)
	}

	var store user.Store
	switch cfg.Storage.Driver {
	case "postgres":
		lifetime, err := parseLifetime(cfg.Storage.Postgres.ConnMaxLifetime)
		if err != nil {
			return nil, err
		}
		pg, err := user.NewPostgresStore(ctx, user.PostgresConfig{
			DSN:             cfg.Storage.DSN,
			MaxOpenConns:    cfg.Storage.Postgres.MaxOpenConns,
			ConnMaxLifetime: lifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		a.closers = append(a.closers, pg.Close)
		if opts.Migrate {
			if err := pg.RunMigrations(ctx); err != nil {
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
		store = pg
	default:
		store = user.NewMemoryStore()
	}

	signer, err := session.NewSigner(signingKey(cfg))
	if err != nil {
		return nil, err
	}
	sessions := session.NewManager(session.NewMemoryStore(), signer, session.Config{
		TTL:         dur.SessionTTL,
		IdleTimeout: dur.IdleTimeout,
	})
	a.Sessions = sessions

	a.Manager = user.NewOAuthManager(
		user.NewDefaultManager(store),
		resolver.Snapshot,
		c,
		oauth.NewStates(c, dur.StateTTL),
		user.NewResolver(store),
		sessions,
	)

	if err := metrics.RegisterAuth(nil); err != nil {
		return nil, err
	}
	if err := metrics.RegisterActiveSessions(nil, func() int {
		return sessions.ActiveCount(context.Background())
	}); err != nil {
		return nil, err
	}

	cookies := authctrl.Cookies{
		Name:   cfg.Session.CookieName,
		Secure: strings.HasPrefix(cfg.Server.BaseURL, "https://"),
	}
	controllers := authctrl.NewControllers(
		svcauth.NewStartService(a.Manager),
		svcauth.NewCallbackService(a.Manager),
		svcauth.NewSessionService(a.Manager),
		cookies,
	)

	a.Handler = router.New(router.Deps{
		Auth:               controllers,
		Health:             healthctrl.NewController(store),
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
	})

	if !cfg.LoginEnabled() {
		logger.L().Warn("no oauth providers configured, login endpoints will refuse requests",
			logger.Component("app"),
		)
	}
	return a, nil
}

// signingKey returns the configured key, or a generated dev-only key so a
// bare settings file still boots locally. Prod requires an explicit key.
func signingKey(cfg *config.Config) []byte {
	if cfg.Session.SigningKey != "" {
		return []byte(cfg.Session.SigningKey)
	}
	logger.L().Warn("session.signing_key not set, using ephemeral key; sessions will not survive restarts",
		logger.Component("app"),
	)
	return randomKey()
}
