package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authrelay/internal/config"
	"authrelay/internal/oauth"
)

func testProvider() *config.Provider {
	return &config.Provider{
		Name:          "default",
		UsernameKey:   "profile.name",
		DefaultGroups: []string{"users"},
	}
}

func TestResolve_FirstLoginCreatesUser(t *testing.T) {
	store := NewMemoryStore()
	r := NewResolver(store)
	ctx := context.Background()

	profile := oauth.Profile{"profile": map[string]any{"name": "alice"}}
	u, err := r.Resolve(ctx, profile, testProvider())
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, []string{"users"}, u.Groups)
	assert.Equal(t, OriginOAuth, u.Origin)
	assert.True(t, u.Active)
	assert.Nil(t, u.PasswordHash)
}

func TestResolve_SecondLoginFindsSameUser(t *testing.T) {
	store := NewMemoryStore()
	r := NewResolver(store)
	ctx := context.Background()

	profile := oauth.Profile{"profile": map[string]any{"name": "alice"}}
	first, err := r.Resolve(ctx, profile, testProvider())
	require.NoError(t, err)
	second, err := r.Resolve(ctx, profile, testProvider())
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	all, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestResolve_NeverTouchesGroupsOnLaterLogins(t *testing.T) {
	store := NewMemoryStore()
	r := NewResolver(store)
	ctx := context.Background()

	profile := oauth.Profile{"profile": map[string]any{"name": "alice"}}
	u, err := r.Resolve(ctx, profile, testProvider())
	require.NoError(t, err)

	// Admin promotes alice between logins.
	u.Groups = []string{"users", "admins"}
	require.NoError(t, store.Update(ctx, u))

	again, err := r.Resolve(ctx, profile, testProvider())
	require.NoError(t, err)
	assert.Equal(t, []string{"users", "admins"}, again.Groups)
}

func TestResolve_SyncFieldsWhitelist(t *testing.T) {
	store := NewMemoryStore()
	r := NewResolver(store)
	ctx := context.Background()

	p := testProvider()
	p.SyncFields = []string{SyncDisplayName, SyncEmail}

	profile := oauth.Profile{
		"profile": map[string]any{"name": "alice"},
		"name":    "Alice A.",
		"email":   "alice@example.com",
	}
	u, err := r.Resolve(ctx, profile, p)
	require.NoError(t, err)
	assert.Equal(t, "Alice A.", u.DisplayName)
	assert.Equal(t, "alice@example.com", u.Email)

	// Provider-side rename flows through on the next login.
	profile["name"] = "Alice B."
	again, err := r.Resolve(ctx, profile, p)
	require.NoError(t, err)
	assert.Equal(t, "Alice B.", again.DisplayName)
}

func TestResolve_EmptyWhitelistLeavesUserAlone(t *testing.T) {
	store := NewMemoryStore()
	r := NewResolver(store)
	ctx := context.Background()

	profile := oauth.Profile{
		"profile": map[string]any{"name": "alice"},
		"name":    "Alice A.",
	}
	u, err := r.Resolve(ctx, profile, testProvider())
	require.NoError(t, err)

	u.DisplayName = "Hand-edited"
	require.NoError(t, store.Update(ctx, u))

	again, err := r.Resolve(ctx, profile, testProvider())
	require.NoError(t, err)
	assert.Equal(t, "Hand-edited", again.DisplayName)
}

func TestResolve_DeactivatedUserRejected(t *testing.T) {
	store := NewMemoryStore()
	r := NewResolver(store)
	ctx := context.Background()

	profile := oauth.Profile{"profile": map[string]any{"name": "alice"}}
	u, err := r.Resolve(ctx, profile, testProvider())
	require.NoError(t, err)

	u.Active = false
	require.NoError(t, store.Update(ctx, u))

	_, err = r.Resolve(ctx, profile, testProvider())
	assert.ErrorIs(t, err, ErrUserDisabled)
}

func TestResolve_MissingUsername(t *testing.T) {
	store := NewMemoryStore()
	r := NewResolver(store)
	ctx := context.Background()

	for _, profile := range []oauth.Profile{
		{},
		{"profile": map[string]any{}},
		{"profile": map[string]any{"name": ""}},
		{"profile": map[string]any{"name": "   "}},
		{"profile": map[string]any{"name": true}},
		{"profile": "not-an-object"},
	} {
		_, err := r.Resolve(ctx, profile, testProvider())
		assert.ErrorIs(t, err, ErrMissingUsername)
	}

	all, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all, "failed resolutions must not create users")
}
