package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticate_PasswordRoundTrip(t *testing.T) {
	m := NewDefaultManager(NewMemoryStore())
	ctx := context.Background()

	created, err := m.Create(ctx, CreateInput{Username: "alice", Password: "s3cret"})
	require.NoError(t, err)
	require.NotNil(t, created.PasswordHash)
	assert.NotContains(t, *created.PasswordHash, "s3cret")

	u, err := m.Authenticate(ctx, "alice", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, created.ID, u.ID)

	_, err = m.Authenticate(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = m.Authenticate(ctx, "nobody", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticate_OAuthOriginHasNoPassword(t *testing.T) {
	m := NewDefaultManager(NewMemoryStore())
	ctx := context.Background()

	_, err := m.Create(ctx, CreateInput{Username: "alice", Origin: OriginOAuth})
	require.NoError(t, err)

	// No hash on the account; any password must fail.
	_, err = m.Authenticate(ctx, "alice", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = m.Authenticate(ctx, "alice", "anything")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticate_DeactivatedUser(t *testing.T) {
	m := NewDefaultManager(NewMemoryStore())
	ctx := context.Background()

	u, err := m.Create(ctx, CreateInput{Username: "alice", Password: "s3cret"})
	require.NoError(t, err)
	require.NoError(t, m.Deactivate(ctx, u.ID))

	_, err = m.Authenticate(ctx, "alice", "s3cret")
	assert.ErrorIs(t, err, ErrUserDisabled)

	require.NoError(t, m.Reactivate(ctx, u.ID))
	_, err = m.Authenticate(ctx, "alice", "s3cret")
	assert.NoError(t, err)
}

func TestChangeGroups(t *testing.T) {
	m := NewDefaultManager(NewMemoryStore())
	ctx := context.Background()

	u, err := m.Create(ctx, CreateInput{Username: "alice", Groups: []string{"users"}})
	require.NoError(t, err)

	got, err := m.ChangeGroups(ctx, u.ID, []string{"users", "admins"})
	require.NoError(t, err)
	assert.Equal(t, []string{"users", "admins"}, got.Groups)
}
