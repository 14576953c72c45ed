package session

import (
	"errors"
	"fmt"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// Signer issues the compact session tokens clients carry (cookie or bearer).
// HS256 over a process-local key; the jti claim names the server-side
// record, which stays authoritative for state and expiry.
type Signer struct {
	key []byte
}

func NewSigner(key []byte) (*Signer, error) {
	if len(key) < 32 {
		return nil, errors.New("session signing key must be at least 32 bytes")
	}
	return &Signer{key: key}, nil
}

func (s *Signer) Sign(sess *Session) (string, error) {
	claims := jwtv5.RegisteredClaims{
		ID:        sess.ID,
		Subject:   sess.Username,
		IssuedAt:  jwtv5.NewNumericDate(sess.CreatedAt),
		ExpiresAt: jwtv5.NewNumericDate(sess.ExpiresAt),
	}
	tok := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	return tok.SignedString(s.key)
}

// Parse verifies the signature and returns the session ID. Expiry is not
// checked here: the record decides, so idle timeouts and revocation work.
func (s *Signer) Parse(signed string) (string, error) {
	var claims jwtv5.RegisteredClaims
	_, err := jwtv5.ParseWithClaims(signed, &claims,
		func(t *jwtv5.Token) (any, error) { return s.key, nil },
		jwtv5.WithValidMethods([]string{"HS256"}),
		jwtv5.WithoutClaimsValidation(),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSessionNotFound, err)
	}
	if claims.ID == "" {
		return "", ErrSessionNotFound
	}
	return claims.ID, nil
}
