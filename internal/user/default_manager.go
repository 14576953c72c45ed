package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"authrelay/internal/observability/logger"
)

// DefaultManager is the plain store-backed user manager: local password
// accounts, group/permission administration, no OAuth. The OAuth facade
// wraps an instance of this (or any other Manager).
type DefaultManager struct {
	store Store
}

func NewDefaultManager(store Store) *DefaultManager {
	return &DefaultManager{store: store}
}

func (m *DefaultManager) Authenticate(ctx context.Context, username, password string) (*User, error) {
	u, err := m.store.FindByName(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Burn a comparison anyway so unknown and wrong-password
			// attempts take comparable time.
			_ = bcrypt.CompareHashAndPassword([]byte("$2a$10$0000000000000000000000000000000000000000000000000000"), []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if u.PasswordHash == nil {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(*u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	if !u.Active {
		return nil, ErrUserDisabled
	}
	return u, nil
}

func (m *DefaultManager) Get(ctx context.Context, id string) (*User, error) {
	return m.store.Get(ctx, id)
}

func (m *DefaultManager) FindByName(ctx context.Context, username string) (*User, error) {
	return m.store.FindByName(ctx, username)
}

func (m *DefaultManager) List(ctx context.Context) ([]*User, error) {
	return m.store.List(ctx)
}

func (m *DefaultManager) Create(ctx context.Context, in CreateInput) (*User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return nil, fmt.Errorf("%w: empty username", ErrMissingUsername)
	}

	u := &User{
		ID:          uuid.NewString(),
		Username:    username,
		DisplayName: in.DisplayName,
		Email:       in.Email,
		Groups:      append([]string(nil), in.Groups...),
		Permissions: append([]string(nil), in.Permissions...),
		Active:      true,
		Origin:      in.Origin,
	}
	if u.Origin == "" {
		u.Origin = OriginLocal
	}
	if in.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		h := string(hash)
		u.PasswordHash = &h
	}

	if err := m.store.Create(ctx, u); err != nil {
		return nil, err
	}
	logger.From(ctx).Info("user created",
		logger.Component("user.manager"),
		logger.UserID(u.ID),
		logger.Username(u.Username),
		logger.String("origin", u.Origin),
	)
	return u, nil
}

func (m *DefaultManager) Update(ctx context.Context, id string, in UpdateInput) (*User, error) {
	u, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.DisplayName != nil {
		u.DisplayName = *in.DisplayName
	}
	if in.Email != nil {
		u.Email = *in.Email
	}
	if err := m.store.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (m *DefaultManager) ChangeGroups(ctx context.Context, id string, groups []string) (*User, error) {
	u, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Groups = append([]string(nil), groups...)
	if err := m.store.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (m *DefaultManager) Deactivate(ctx context.Context, id string) error {
	return m.setActive(ctx, id, false)
}

func (m *DefaultManager) Reactivate(ctx context.Context, id string) error {
	return m.setActive(ctx, id, true)
}

func (m *DefaultManager) setActive(ctx context.Context, id string, active bool) error {
	u, err := m.store.Get(ctx, id)
	if err != nil {
		return err
	}
	u.Active = active
	if err := m.store.Update(ctx, u); err != nil {
		return err
	}
	logger.From(ctx).Info("user active flag changed",
		logger.Component("user.manager"),
		logger.UserID(id),
		logger.Bool("active", active),
	)
	return nil
}

func (m *DefaultManager) Delete(ctx context.Context, id string) error {
	return m.store.Delete(ctx, id)
}

var _ Manager = (*DefaultManager)(nil)
