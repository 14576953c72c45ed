// Package metrics defines the login-flow Prometheus metrics. They live in a
// standalone package to avoid import cycles between the HTTP layer and the
// services that record them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Result labels for LoginAttempts.
const (
	ResultSuccess       = "success"
	ResultInvalidState  = "invalid_state"
	ResultExchangeError = "exchange_failed"
	ResultProfileError  = "profile_failed"
	ResultRejected      = "rejected"
	ResultError         = "error"
)

var (
	LoginAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "login_attempts_total",
		Help: "Completed login callbacks by provider and result",
	}, []string{"provider", "result"})

	LoginDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "login_duration_seconds",
		Help:    "Wall time of the callback pipeline (exchange + profile + resolve)",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})

	LoginStarts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "login_starts_total",
		Help: "Login redirects issued by provider",
	}, []string{"provider"})
)

// RegisterAuth registers the login metrics on the given registry (default
// registry when nil). Duplicate registration is not an error.
func RegisterAuth(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{LoginAttempts, LoginDuration, LoginStarts} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}

// RegisterActiveSessions exposes a gauge backed by the session table.
func RegisterActiveSessions(reg prometheus.Registerer, count func() int) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	g := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "active_sessions",
		Help: "Sessions currently in the Active state",
	}, func() float64 { return float64(count()) })
	if err := reg.Register(g); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
			return err
		}
	}
	return nil
}
