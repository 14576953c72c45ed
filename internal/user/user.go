// Package user owns the local user model, the pluggable user-manager
// capability contract, and the resolution policy that maps remote OAuth
// profiles onto local users.
package user

import (
	"context"
	"errors"
	"time"
)

// Origins record how an account came to exist.
const (
	OriginLocal = "local"
	OriginOAuth = "oauth"
)

var (
	ErrNotFound = errors.New("user not found")
	ErrConflict = errors.New("username already exists")

	// ErrMissingUsername: the remote profile has no usable value under the
	// configured username_key.
	ErrMissingUsername = errors.New("username missing from profile")

	// ErrUserDisabled: the resolved local user is administratively
	// deactivated; login must fail and no session may be created.
	ErrUserDisabled = errors.New("user is deactivated")

	ErrInvalidCredentials = errors.New("invalid credentials")
)

// User is the local user entity. OAuth-created users carry no password hash;
// they can only log in through the provider.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"display_name,omitempty"`
	Email        string    `json:"email,omitempty"`
	Groups       []string  `json:"groups"`
	Permissions  []string  `json:"permissions,omitempty"`
	Active       bool      `json:"active"`
	Origin       string    `json:"origin"`
	PasswordHash *string   `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Clone returns a deep copy so callers can hand out users without aliasing
// store-owned slices.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.Groups = append([]string(nil), u.Groups...)
	c.Permissions = append([]string(nil), u.Permissions...)
	if u.PasswordHash != nil {
		h := *u.PasswordHash
		c.PasswordHash = &h
	}
	return &c
}

// CreateInput carries the fields an administrator supplies for a new user.
type CreateInput struct {
	Username    string
	DisplayName string
	Email       string
	Groups      []string
	Permissions []string
	Password    string // empty for externally-authenticated accounts
	Origin      string
}

// UpdateInput updates only non-nil fields.
type UpdateInput struct {
	DisplayName *string
	Email       *string
}

// Manager is the host's pluggable user-manager capability. The OAuth facade
// implements this same contract, so it is a drop-in substitute for the
// default manager.
type Manager interface {
	// Authenticate verifies local credentials. OAuth-origin users have no
	// password and always fail here.
	Authenticate(ctx context.Context, username, password string) (*User, error)

	Get(ctx context.Context, id string) (*User, error)
	FindByName(ctx context.Context, username string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	Create(ctx context.Context, in CreateInput) (*User, error)
	Update(ctx context.Context, id string, in UpdateInput) (*User, error)
	ChangeGroups(ctx context.Context, id string, groups []string) (*User, error)
	Deactivate(ctx context.Context, id string) error
	Reactivate(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// Store is the persistence contract under the managers. Create and
// CreateIfAbsent must be atomic per username so concurrent first logins for
// the same new username cannot create duplicate accounts.
type Store interface {
	Ping(ctx context.Context) error
	Get(ctx context.Context, id string) (*User, error)
	FindByName(ctx context.Context, username string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	// Create inserts a new user; ErrConflict when the username is taken.
	Create(ctx context.Context, u *User) error
	// CreateIfAbsent atomically looks up the username and inserts the given
	// user when absent. Reports whether the returned user was created.
	CreateIfAbsent(ctx context.Context, u *User) (*User, bool, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id string) error
}
