package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"authrelay/internal/metrics"
	"authrelay/internal/oauth"
	"authrelay/internal/user"
)

type callbackService struct {
	mgr *user.OAuthManager
}

func NewCallbackService(mgr *user.OAuthManager) CallbackService {
	return &callbackService{mgr: mgr}
}

func (s *callbackService) Callback(ctx context.Context, req CallbackRequest) (*CallbackResult, error) {
	if strings.TrimSpace(req.State) == "" {
		return nil, ErrMissingState
	}
	if strings.TrimSpace(req.Code) == "" {
		return nil, ErrMissingCode
	}

	start := time.Now()
	principal, redirect, err := s.mgr.CompleteLogin(ctx, req.State, req.Code)
	if err != nil {
		metrics.LoginAttempts.WithLabelValues("unknown", classify(err)).Inc()
		return nil, err
	}

	metrics.LoginAttempts.WithLabelValues(principal.Provider, metrics.ResultSuccess).Inc()
	metrics.LoginDuration.WithLabelValues(principal.Provider).Observe(time.Since(start).Seconds())

	return &CallbackResult{
		SessionToken: principal.SessionToken,
		Redirect:     redirect,
		Username:     principal.User.Username,
		ExpiresAt:    principal.Session.ExpiresAt,
	}, nil
}

// classify buckets a failed attempt for the login_attempts_total counter.
func classify(err error) string {
	switch {
	case errors.Is(err, oauth.ErrInvalidState):
		return metrics.ResultInvalidState
	case errors.Is(err, oauth.ErrTokenExchangeFailed), errors.Is(err, oauth.ErrTimeout):
		return metrics.ResultExchangeError
	case errors.Is(err, oauth.ErrProfileFetchFailed):
		return metrics.ResultProfileError
	case errors.Is(err, user.ErrUserDisabled), errors.Is(err, user.ErrMissingUsername):
		return metrics.ResultRejected
	default:
		return metrics.ResultError
	}
}
