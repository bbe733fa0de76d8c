// Package kv provides the ephemeral keyed store used for attempt counters,
// token denylist entries, and password-reset tickets. Every value carries a
// per-key TTL; expired keys behave as absent.
//
// Two implementations exist: a Redis-backed store for shared deployments and
// an in-process store for tests and single-node hosts. The backend is chosen
// once at startup and shared by reference for the process lifetime.
package kv

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a key is absent or has expired.
	ErrNotFound = errors.New("kv: key not found")
	// ErrUnavailable wraps backend transport failures.
	ErrUnavailable = errors.New("kv: store unavailable")
)

// Store is the capability surface the credential core needs from its
// ephemeral store. Each key is independently owned; no cross-key
// transactions are offered.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// Set writes value under key. A zero ttl stores without expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// Incr atomically increments the counter at key, creating it at 1.
	// The ttl is applied only when the increment creates the key, giving
	// fixed-window semantics without a read-then-write race.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	// TTL reports the remaining lifetime of key. Keys stored without
	// expiry report zero.
	TTL(ctx context.Context, key string) (time.Duration, error)
}
