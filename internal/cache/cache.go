// Package cache defines the byte-value TTL cache used for one-time login
// artifacts: anti-forgery state payloads and authorization-code replay
// markers.
package cache

import "time"

type Cache interface {
	Get(key string) (value []byte, ok bool)
	Set(key string, value []byte, ttl time.Duration)
	// Add stores the value only if the key is absent and reports whether it
	// did. This is the atomic primitive behind replay rejection.
	Add(key string, value []byte, ttl time.Duration) bool
	// GetDel returns the value and removes it in one step, so concurrent
	// consumers of a one-time key cannot both observe it.
	GetDel(key string) (value []byte, ok bool)
	Delete(key string)
}
