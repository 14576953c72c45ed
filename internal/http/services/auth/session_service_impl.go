package auth

import (
	"context"

	"authrelay/internal/user"
)

type sessionService struct {
	mgr *user.OAuthManager
}

func NewSessionService(mgr *user.OAuthManager) SessionService {
	return &sessionService{mgr: mgr}
}

func (s *sessionService) Current(ctx context.Context, token string) (*SessionInfo, error) {
	principal, err := s.mgr.ValidateSession(ctx, token)
	if err != nil {
		return nil, err
	}
	return &SessionInfo{
		Username:   principal.User.Username,
		UserID:     principal.User.ID,
		Groups:     principal.User.Groups,
		CreatedAt:  principal.Session.CreatedAt,
		ExpiresAt:  principal.Session.ExpiresAt,
		LastSeenAt: principal.Session.LastSeenAt,
	}, nil
}

func (s *sessionService) Logout(ctx context.Context, token string) error {
	return s.mgr.Logout(ctx, token)
}
