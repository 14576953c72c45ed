package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	authctrl "authrelay/internal/http/controllers/auth"
	healthctrl "authrelay/internal/http/controllers/health"
	svc "authrelay/internal/http/services/auth"
	"authrelay/internal/user"
)

type okPinger struct{ err error }

func (p okPinger) Ping(ctx context.Context) error { return p.err }

type disabledStart struct{}

func (disabledStart) Start(ctx context.Context, req svc.StartRequest) (string, error) {
	return "", user.ErrProviderNotConfigured
}

func newHandler(pingErr error) http.Handler {
	controllers := authctrl.NewControllers(disabledStart{}, nil, nil, authctrl.Cookies{Name: "s"})
	return New(Deps{
		Auth:   controllers,
		Health: healthctrl.NewController(okPinger{err: pingErr}),
	})
}

func TestHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	newHandler(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	newHandler(errors.New("down")).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := httptest.NewRecorder()
	newHandler(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSecurityHeadersAndNoStore(t *testing.T) {
	rec := httptest.NewRecorder()
	newHandler(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/login", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	// No providers configured: login refuses, it does not 404.
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestUnknownRoute(t *testing.T) {
	rec := httptest.NewRecorder()
	newHandler(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
