// Package oauth implements the consumer side of the OAuth 2.0 authorization
// code flow against configurable provider endpoints: login redirect
// construction, one-time state handling, code-for-token exchange and profile
// fetch. This system is a client only; it never acts as an authorization
// server.
package oauth

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"authrelay/internal/cache"
	"authrelay/internal/config"
	"authrelay/internal/observability/logger"
	"authrelay/internal/util"
)

const (
	codePrefix       = "oauth:code:"
	codeMarkerTTL    = 15 * time.Minute
	requestTimeout   = 10 * time.Second
	maxResponseBytes = 1 << 20
)

// Token is the credential returned by the token endpoint. Opaque to us; it
// is handed to the Session Manager and never persisted elsewhere.
type Token struct {
	AccessToken string
	TokenType   string
	// ExpiresIn is the provider-declared validity in seconds, 0 if absent.
	ExpiresIn int
}

// Client performs the provider round-trips for one endpoint profile. Calls
// are bounded by a timeout and never retried: retrying a token exchange
// risks double-consuming the authorization code.
type Client struct {
	provider *config.Provider
	cache    cache.Cache
	http     *http.Client
}

// NewClient builds a client for the given provider snapshot. The cache backs
// the authorization-code replay guard and must be shared across instances.
func NewClient(p *config.Provider, c cache.Cache) *Client {
	return &Client{
		provider: p,
		cache:    c,
		http:     &http.Client{Timeout: requestTimeout},
	}
}

// AuthURL builds the provider login redirect for one attempt. The state must
// come from States.Issue.
func (c *Client) AuthURL(state, redirectURI string) string {
	u, _ := url.Parse(c.provider.LoginURL)
	q := u.Query()
	q.Set("response_type", "code")
	q.Set("client_id", c.provider.ClientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("state", state)
	if len(c.provider.Scopes) > 0 {
		q.Set("scope", strings.Join(c.provider.Scopes, " "))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// ExchangeCode trades an authorization code for an access token.
//
// The code is marked consumed before the network call, success or failure:
// a second exchange with the same code always fails, it never silently
// re-authenticates.
func (c *Client) ExchangeCode(ctx context.Context, code, redirectURI string) (*Token, error) {
	log := logger.From(ctx).With(logger.Component("oauth.client"), logger.Provider(c.provider.Name))

	if strings.TrimSpace(code) == "" {
		return nil, fmt.Errorf("%w: empty code", ErrTokenExchangeFailed)
	}
	if !c.cache.Add(codeKey(code), []byte{1}, codeMarkerTTL) {
		log.Warn("authorization code replay rejected")
		return nil, fmt.Errorf("%w: code already used", ErrTokenExchangeFailed)
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", c.provider.ClientID)
	form.Set("client_secret", c.provider.ClientSecret)
	form.Set("redirect_uri", redirectURI)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.provider.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenExchangeFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for k, v := range c.provider.TokenHeaders {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyTransport(err, ErrTokenExchangeFailed)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrTokenExchangeFailed, err)
	}
	if resp.StatusCode/100 != 2 {
		log.Warn("token endpoint returned non-2xx", logger.Status(resp.StatusCode))
		return nil, fmt.Errorf("%w: status %d", ErrTokenExchangeFailed, resp.StatusCode)
	}

	tok, err := c.parseTokenResponse(resp.Header.Get("Content-Type"), body)
	if err != nil {
		return nil, err
	}
	log.Debug("code exchanged", logger.String("token_masked", util.MaskToken(tok.AccessToken)))
	return tok, nil
}

// parseTokenResponse extracts the token under accessTokenQueryKey from a
// JSON object or a form-encoded body. Some providers (GitHub, historically)
// answer form-encoded unless asked otherwise.
func (c *Client) parseTokenResponse(contentType string, body []byte) (*Token, error) {
	key := c.provider.AccessTokenQueryKey

	mt, _, _ := mime.ParseMediaType(contentType)
	if mt == "application/x-www-form-urlencoded" || (mt == "" && looksFormEncoded(body)) {
		vals, err := url.ParseQuery(string(body))
		if err != nil {
			return nil, fmt.Errorf("%w: malformed form body", ErrTokenExchangeFailed)
		}
		access := vals.Get(key)
		if access == "" {
			access = vals.Get("access_token")
		}
		if access == "" {
			return nil, fmt.Errorf("%w: no token under %q", ErrTokenExchangeFailed, key)
		}
		return &Token{AccessToken: access, TokenType: vals.Get("token_type")}, nil
	}

	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: malformed json body", ErrTokenExchangeFailed)
	}
	if e, _ := doc["error"].(string); e != "" {
		return nil, fmt.Errorf("%w: provider error %q", ErrTokenExchangeFailed, e)
	}
	access, _ := doc[key].(string)
	if access == "" {
		access, _ = doc["access_token"].(string)
	}
	if access == "" {
		return nil, fmt.Errorf("%w: no token under %q", ErrTokenExchangeFailed, key)
	}
	tok := &Token{AccessToken: access}
	tok.TokenType, _ = doc["token_type"].(string)
	if v, ok := doc["expires_in"].(float64); ok {
		tok.ExpiresIn = int(v)
	}
	return tok, nil
}

// FetchProfile retrieves the user-info document with the access token
// attached per the provider's token_delivery mode.
func (c *Client) FetchProfile(ctx context.Context, token string) (Profile, error) {
	log := logger.From(ctx).With(logger.Component("oauth.client"), logger.Provider(c.provider.Name))

	target := c.provider.UserInfoURL
	if c.provider.TokenDelivery == config.DeliveryQuery {
		u, err := url.Parse(target)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProfileFetchFailed, err)
		}
		q := u.Query()
		q.Set(c.provider.AccessTokenQueryKey, token)
		u.RawQuery = q.Encode()
		target = u.String()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileFetchFailed, err)
	}
	for k, v := range c.provider.TokenHeaders {
		req.Header.Set(k, v)
	}
	if c.provider.TokenDelivery == config.DeliveryBearer {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyTransport(err, ErrProfileFetchFailed)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		log.Warn("user-info endpoint returned non-2xx", logger.Status(resp.StatusCode))
		return nil, fmt.Errorf("%w: status %d", ErrProfileFetchFailed, resp.StatusCode)
	}

	var profile Profile
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&profile); err != nil {
		return nil, fmt.Errorf("%w: malformed body", ErrProfileFetchFailed)
	}
	log.Debug("profile fetched")
	return profile, nil
}

// classifyTransport maps deadline errors to ErrTimeout and everything else
// to the step's failure sentinel. Both are terminal for the attempt.
func classifyTransport(err error, fallback error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var ne interface{ Timeout() bool }
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", fallback, err)
}

func looksFormEncoded(body []byte) bool {
	s := strings.TrimSpace(string(body))
	return s != "" && !strings.HasPrefix(s, "{") && strings.Contains(s, "=")
}

func codeKey(code string) string {
	sum := sha256.Sum256([]byte(code))
	return codePrefix + base64.RawURLEncoding.EncodeToString(sum[:])
}
