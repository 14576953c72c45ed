package user

import (
	"context"

	"github.com/google/uuid"

	"authrelay/internal/config"
	"authrelay/internal/oauth"
	"authrelay/internal/observability/logger"
	"authrelay/internal/util"
)

// Profile field names accepted in a provider's sync_fields whitelist.
const (
	SyncDisplayName = "display_name"
	SyncEmail       = "email"
)

// Resolver maps a fetched remote profile onto a local user.
//
// Policy: the username comes exclusively from the provider's username_key,
// never from client-supplied input. First login creates the user with the
// provider's default groups and no password. Later logins never touch
// groups or permissions (OAuth grants access, it does not escalate or reset
// privileges); only whitelisted profile fields are synchronized.
type Resolver struct {
	store Store
}

func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve returns the local user for the profile, creating one when absent.
func (r *Resolver) Resolve(ctx context.Context, profile oauth.Profile, p *config.Provider) (*User, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("user.resolver"),
		logger.Provider(p.Name),
	)

	username, ok := profile.StringAt(p.UsernameKey)
	if !ok {
		log.Warn("profile has no usable username", logger.String("username_key", p.UsernameKey))
		return nil, ErrMissingUsername
	}

	candidate := &User{
		ID:       uuid.NewString(),
		Username: username,
		Groups:   append([]string(nil), p.DefaultGroups...),
		Active:   true,
		Origin:   OriginOAuth,
	}
	applySyncFields(candidate, profile, p.SyncFields)

	u, created, err := r.store.CreateIfAbsent(ctx, candidate)
	if err != nil {
		return nil, err
	}
	if created {
		log.Info("local user provisioned",
			logger.UserID(u.ID),
			logger.Username(u.Username),
			logger.String("email_masked", util.MaskEmail(u.Email)),
		)
		return u, nil
	}

	if !u.Active {
		log.Warn("login rejected for deactivated user", logger.UserID(u.ID))
		return nil, ErrUserDisabled
	}

	if synced := applySyncFields(u, profile, p.SyncFields); synced {
		if err := r.store.Update(ctx, u); err != nil {
			return nil, err
		}
		log.Debug("profile fields synchronized", logger.UserID(u.ID))
	}
	return u, nil
}

// applySyncFields copies whitelisted profile fields onto the user. Reports
// whether anything changed. Unknown whitelist entries are ignored.
func applySyncFields(u *User, profile oauth.Profile, fields []string) bool {
	changed := false
	for _, f := range fields {
		switch f {
		case SyncDisplayName:
			if v, ok := profile.StringAt("name"); ok && v != u.DisplayName {
				u.DisplayName = v
				changed = true
			}
		case SyncEmail:
			if v, ok := profile.StringAt("email"); ok && v != u.Email {
				u.Email = v
				changed = true
			}
		}
	}
	return changed
}
