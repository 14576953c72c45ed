package oauth

import "errors"

var (
	// ErrInvalidState is returned when the callback state does not match an
	// outstanding login attempt. Checked before any call to the provider.
	ErrInvalidState = errors.New("invalid or expired state")

	// ErrTokenExchangeFailed covers non-2xx responses, malformed bodies and
	// replayed authorization codes during the code-for-token exchange.
	ErrTokenExchangeFailed = errors.New("token exchange failed")

	// ErrProfileFetchFailed covers non-2xx responses and unparsable bodies
	// from the user-info endpoint.
	ErrProfileFetchFailed = errors.New("profile fetch failed")

	// ErrTimeout is returned when a provider call exceeds its deadline. The
	// attempt is failed exactly like a hard error; the caller restarts the
	// login from scratch.
	ErrTimeout = errors.New("provider request timed out")
)
