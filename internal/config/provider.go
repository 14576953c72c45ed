package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Token delivery modes for the user-info request.
const (
	// DeliveryQuery attaches the access token as a query parameter named by
	// AccessTokenQueryKey. This is the classic plugin behavior.
	DeliveryQuery = "query"
	// DeliveryBearer sends the token in an Authorization: Bearer header.
	DeliveryBearer = "bearer"
)

// Provider is the immutable endpoint/credential profile for one identity
// provider. Exactly one snapshot of it is active per login attempt; reloads
// never mutate an existing value.
type Provider struct {
	Name string `yaml:"-"`

	LoginURL    string `yaml:"login_path" validate:"required"`
	TokenURL    string `yaml:"token_path" validate:"required"`
	UserInfoURL string `yaml:"user_info_path" validate:"required"`

	ClientID     string `yaml:"client_id" validate:"required"`
	ClientSecret string `yaml:"client_secret" validate:"required"`

	// AccessTokenQueryKey names the field carrying the token in the token
	// response, and the query parameter used for DeliveryQuery.
	AccessTokenQueryKey string `yaml:"access_token_query_key"`

	// TokenHeaders are sent on the token exchange and user-info requests.
	TokenHeaders map[string]string `yaml:"token_headers"`

	// TokenDelivery selects how the token reaches the user-info endpoint.
	TokenDelivery string `yaml:"token_delivery"`

	// UsernameKey is a dotted path into the profile JSON identifying the
	// username field, e.g. "profile.name". The resolved username is the only
	// input ever used to bind a remote identity to a local user.
	UsernameKey string `yaml:"username_key" validate:"required"`

	// SyncFields whitelists profile fields copied onto an existing local
	// user at login. Empty means existing users are never modified.
	SyncFields []string `yaml:"sync_fields"`

	// DefaultGroups are assigned to users created by OAuth login.
	DefaultGroups []string `yaml:"default_groups"`

	// Scopes requested on the login redirect, space-joined.
	Scopes []string `yaml:"scopes"`
}

func (p *Provider) normalize() error {
	if p.AccessTokenQueryKey == "" {
		p.AccessTokenQueryKey = "token"
	}
	if p.TokenHeaders == nil {
		p.TokenHeaders = map[string]string{"Accept": "application/json"}
	}
	if p.TokenDelivery == "" {
		p.TokenDelivery = DeliveryQuery
	}
	p.TokenDelivery = strings.ToLower(p.TokenDelivery)
	if len(p.DefaultGroups) == 0 {
		p.DefaultGroups = []string{"users"}
	}
	return nil
}

func (p *Provider) validate(v *validator.Validate) error {
	if err := v.Struct(p); err != nil {
		return fmt.Errorf("%w: provider %q: %v", ErrInvalid, p.Name, err)
	}
	for field, raw := range map[string]string{
		"login_path":     p.LoginURL,
		"token_path":     p.TokenURL,
		"user_info_path": p.UserInfoURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: provider %q: %s is not an absolute URL", ErrInvalid, p.Name, field)
		}
	}
	if p.TokenDelivery != DeliveryQuery && p.TokenDelivery != DeliveryBearer {
		return fmt.Errorf("%w: provider %q: token_delivery must be %q or %q",
			ErrInvalid, p.Name, DeliveryQuery, DeliveryBearer)
	}
	if strings.TrimSpace(p.UsernameKey) == "" {
		return fmt.Errorf("%w: provider %q: username_key is required", ErrInvalid, p.Name)
	}
	return nil
}
