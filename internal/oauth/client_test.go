package oauth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authrelay/internal/cache/memory"
	"authrelay/internal/config"
)

func testProvider(tokenURL, userInfoURL string) *config.Provider {
	return &config.Provider{
		Name:                "default",
		LoginURL:            "https://idp.example.com/login",
		TokenURL:            tokenURL,
		UserInfoURL:         userInfoURL,
		ClientID:            "cid",
		ClientSecret:        "csecret",
		AccessTokenQueryKey: "token",
		TokenHeaders:        map[string]string{"Accept": "application/json"},
		TokenDelivery:       config.DeliveryQuery,
		UsernameKey:         "profile.name",
	}
}

func newTestClient(p *config.Provider) *Client {
	return NewClient(p, memory.New(time.Minute))
}

func TestAuthURL(t *testing.T) {
	p := testProvider("https://idp/token", "https://idp/me")
	p.Scopes = []string{"read", "profile"}
	c := newTestClient(p)

	raw := c.AuthURL("st4te", "http://host/auth/callback")
	u, err := url.Parse(raw)
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "cid", q.Get("client_id"))
	assert.Equal(t, "http://host/auth/callback", q.Get("redirect_uri"))
	assert.Equal(t, "st4te", q.Get("state"))
	assert.Equal(t, "read profile", q.Get("scope"))
}

func TestExchangeCode_JSONResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "cid", r.PostForm.Get("client_id"))
		assert.Equal(t, "csecret", r.PostForm.Get("client_secret"))
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"token":"abc123","token_type":"bearer","expires_in":3600}`))
	}))
	defer srv.Close()

	c := newTestClient(testProvider(srv.URL, srv.URL))
	tok, err := c.ExchangeCode(context.Background(), "the-code", "http://host/cb")
	require.NoError(t, err)
	assert.Equal(t, "abc123", tok.AccessToken)
	assert.Equal(t, 3600, tok.ExpiresIn)
}

func TestExchangeCode_FormEncodedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-www-form-urlencoded")
		w.Write([]byte("access_token=form123&token_type=bearer"))
	}))
	defer srv.Close()

	c := newTestClient(testProvider(srv.URL, srv.URL))
	tok, err := c.ExchangeCode(context.Background(), "code-f", "http://host/cb")
	require.NoError(t, err)
	assert.Equal(t, "form123", tok.AccessToken)
}

func TestExchangeCode_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := newTestClient(testProvider(srv.URL, srv.URL))
	_, err := c.ExchangeCode(context.Background(), "bad-code", "http://host/cb")
	assert.ErrorIs(t, err, ErrTokenExchangeFailed)
}

func TestExchangeCode_ProviderErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"error":"invalid_grant","error_description":"expired"}`))
	}))
	defer srv.Close()

	c := newTestClient(testProvider(srv.URL, srv.URL))
	_, err := c.ExchangeCode(context.Background(), "expired-code", "http://host/cb")
	assert.ErrorIs(t, err, ErrTokenExchangeFailed)
}

func TestExchangeCode_ReplayRejected(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"token":"abc123"}`))
	}))
	defer srv.Close()

	c := newTestClient(testProvider(srv.URL, srv.URL))

	_, err := c.ExchangeCode(context.Background(), "once", "http://host/cb")
	require.NoError(t, err)

	_, err = c.ExchangeCode(context.Background(), "once", "http://host/cb")
	assert.ErrorIs(t, err, ErrTokenExchangeFailed)
	assert.Equal(t, int32(1), hits.Load(), "replayed code must not reach the provider")
}

func TestExchangeCode_ReplayRejectedAfterFailure(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(testProvider(srv.URL, srv.URL))

	_, err := c.ExchangeCode(context.Background(), "failed-once", "http://host/cb")
	require.ErrorIs(t, err, ErrTokenExchangeFailed)

	// Second attempt fails too, regardless of the first outcome, and the
	// provider sees the code exactly once.
	_, err = c.ExchangeCode(context.Background(), "failed-once", "http://host/cb")
	assert.ErrorIs(t, err, ErrTokenExchangeFailed)
	assert.Equal(t, int32(1), hits.Load())
}

func TestExchangeCode_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := newTestClient(testProvider(srv.URL, srv.URL))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.ExchangeCode(ctx, "slow-code", "http://host/cb")
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestFetchProfile_QueryDelivery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "abc123", r.URL.Query().Get("token"))
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"profile":{"name":"alice"}}`))
	}))
	defer srv.Close()

	c := newTestClient(testProvider(srv.URL, srv.URL))
	profile, err := c.FetchProfile(context.Background(), "abc123")
	require.NoError(t, err)

	name, ok := profile.StringAt("profile.name")
	require.True(t, ok)
	assert.Equal(t, "alice", name)
}

func TestFetchProfile_BearerDelivery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer abc123", r.Header.Get("Authorization"))
		assert.Empty(t, r.URL.Query().Get("token"))
		w.Write([]byte(`{"login":"bob"}`))
	}))
	defer srv.Close()

	p := testProvider(srv.URL, srv.URL)
	p.TokenDelivery = config.DeliveryBearer
	c := newTestClient(p)

	profile, err := c.FetchProfile(context.Background(), "abc123")
	require.NoError(t, err)
	login, _ := profile.StringAt("login")
	assert.Equal(t, "bob", login)
}

func TestFetchProfile_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newTestClient(testProvider(srv.URL, srv.URL))
	_, err := c.FetchProfile(context.Background(), "abc123")
	assert.ErrorIs(t, err, ErrProfileFetchFailed)
}

func TestFetchProfile_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	c := newTestClient(testProvider(srv.URL, srv.URL))
	_, err := c.FetchProfile(context.Background(), "abc123")
	assert.ErrorIs(t, err, ErrProfileFetchFailed)
}
