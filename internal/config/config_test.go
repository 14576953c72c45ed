package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
server:
  addr: ":9090"
oauth:
  providers:
    default:
      login_path: "https://idp/login"
      token_path: "https://idp/token"
      user_info_path: "https://idp/me"
      client_id: "cid"
      client_secret: "csecret"
      username_key: "profile.name"
`

func TestParse_DefaultsApplied(t *testing.T) {
	cfg, err := Parse([]byte(validYAML))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, "memory", cfg.Cache.Kind)
	assert.Equal(t, "authrelay_session", cfg.Session.CookieName)

	p := cfg.Provider("")
	require.NotNil(t, p, "empty name selects default profile")
	assert.Equal(t, "default", p.Name)
	assert.Equal(t, "token", p.AccessTokenQueryKey)
	assert.Equal(t, map[string]string{"Accept": "application/json"}, p.TokenHeaders)
	assert.Equal(t, DeliveryQuery, p.TokenDelivery)
	assert.Equal(t, []string{"users"}, p.DefaultGroups)

	d := cfg.Durations()
	assert.Equal(t, 24*time.Hour, d.SessionTTL)
	assert.Equal(t, time.Hour, d.IdleTimeout)
	assert.Equal(t, 10*time.Minute, d.StateTTL)
}

func TestParse_MissingRequiredField(t *testing.T) {
	broken := `
oauth:
  providers:
    default:
      login_path: "https://idp/login"
      token_path: "https://idp/token"
      user_info_path: "https://idp/me"
      client_id: "cid"
      username_key: "profile.name"
`
	_, err := Parse([]byte(broken))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestParse_BadURL(t *testing.T) {
	broken := `
oauth:
  providers:
    default:
      login_path: "not-a-url"
      token_path: "https://idp/token"
      user_info_path: "https://idp/me"
      client_id: "cid"
      client_secret: "cs"
      username_key: "name"
`
	_, err := Parse([]byte(broken))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestParse_BadTokenDelivery(t *testing.T) {
	broken := `
oauth:
  providers:
    default:
      login_path: "https://idp/login"
      token_path: "https://idp/token"
      user_info_path: "https://idp/me"
      client_id: "cid"
      client_secret: "cs"
      username_key: "name"
      token_delivery: "smoke-signal"
`
	_, err := Parse([]byte(broken))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestEnvOverridesClientSecret(t *testing.T) {
	t.Setenv("AUTHRELAY_OAUTH_DEFAULT_CLIENT_SECRET", "from-env")
	cfg, err := Parse([]byte(validYAML))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Provider("default").ClientSecret)
}

func TestProvider_UnknownName(t *testing.T) {
	cfg, err := Parse([]byte(validYAML))
	require.NoError(t, err)
	assert.Nil(t, cfg.Provider("nope"))
}

func TestResolver_ReloadSwapsSnapshot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validYAML), 0o600))

	r, err := NewResolver(path)
	require.NoError(t, err)

	before := r.Snapshot()
	assert.Equal(t, ":9090", before.Server.Addr)

	updated := []byte(validYAML + "\nsession:\n  cookie_name: other\n")
	require.NoError(t, os.WriteFile(path, updated, 0o600))
	require.NoError(t, r.Reload())

	after := r.Snapshot()
	assert.Equal(t, "other", after.Session.CookieName)
	// The old snapshot is untouched: in-flight requests keep a consistent view.
	assert.Equal(t, "authrelay_session", before.Session.CookieName)
}

func TestResolver_BadReloadKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validYAML), 0o600))

	r, err := NewResolver(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("oauth: {providers: {default: {}}}"), 0o600))
	require.Error(t, r.Reload())
	assert.Equal(t, ":9090", r.Snapshot().Server.Addr)
}
