package auth

import (
	"context"

	"authrelay/internal/metrics"
	"authrelay/internal/observability/logger"
	"authrelay/internal/user"
)

type startService struct {
	mgr *user.OAuthManager
}

func NewStartService(mgr *user.OAuthManager) StartService {
	return &startService{mgr: mgr}
}

func (s *startService) Start(ctx context.Context, req StartRequest) (string, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("auth.start"))

	url, err := s.mgr.LoginURL(ctx, req.Provider, req.Redirect)
	if err != nil {
		log.Warn("login start rejected", logger.Provider(req.Provider), logger.Err(err))
		return "", err
	}

	provider := req.Provider
	if provider == "" {
		provider = "default"
	}
	metrics.LoginStarts.WithLabelValues(provider).Inc()
	return url, nil
}
