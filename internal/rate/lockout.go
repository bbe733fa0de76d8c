// Package rate enforces the brute-force lockout and the password-reset
// request window on top of the ephemeral keyed store.
package rate

import (
	"context"
	"errors"
	"time"

	"github.com/stockroomlabs/credcore/kv"
)

// LockoutConfig tunes the failed-login guard.
type LockoutConfig struct {
	MaxAttempts     int
	LockoutDuration time.Duration
}

// LockoutStatus is the read side of the guard.
type LockoutStatus struct {
	Locked     bool
	RetryAfter time.Duration
	Attempts   int
}

// Lockout tracks failed login attempts per identity key and enforces a
// temporary lock. Keys derive from the normalized email, so failures for
// unknown identities are counted the same as for real ones and lockout
// behavior reveals nothing about account existence.
type Lockout struct {
	store  kv.Store
	config LockoutConfig
}

func NewLockout(store kv.Store, cfg LockoutConfig) *Lockout {
	return &Lockout{store: store, config: cfg}
}

func attemptsKey(identityKey string) string { return "login:attempts:" + identityKey }
func lockKey(identityKey string) string     { return "login:lock:" + identityKey }

// Status reports whether identityKey is currently locked and how long until
// the lock expires. An absent lock key means unlocked; once set, a lock is
// cleared only by TTL expiry or a successful authentication.
func (l *Lockout) Status(ctx context.Context, identityKey string) (LockoutStatus, error) {
	remaining, err := l.store.TTL(ctx, lockKey(identityKey))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			attempts, err := l.attempts(ctx, identityKey)
			if err != nil {
				return LockoutStatus{}, err
			}
			return LockoutStatus{Attempts: attempts}, nil
		}
		return LockoutStatus{}, err
	}

	return LockoutStatus{
		Locked:     true,
		RetryAfter: remaining,
		Attempts:   l.config.MaxAttempts,
	}, nil
}

// RecordFailure atomically increments the attempt counter and, at the
// threshold, sets the lock. Returns the updated attempt count and whether
// this failure triggered the lock.
func (l *Lockout) RecordFailure(ctx context.Context, identityKey string) (int, bool, error) {
	count, err := l.store.Incr(ctx, attemptsKey(identityKey), l.config.LockoutDuration)
	if err != nil {
		return 0, false, err
	}

	if count >= int64(l.config.MaxAttempts) {
		if err := l.store.Set(ctx, lockKey(identityKey), []byte("1"), l.config.LockoutDuration); err != nil {
			return int(count), false, err
		}
		return int(count), true, nil
	}

	return int(count), false, nil
}

// Reset clears the attempt state entirely. Called on successful
// authentication.
func (l *Lockout) Reset(ctx context.Context, identityKey string) error {
	if err := l.store.Delete(ctx, attemptsKey(identityKey)); err != nil {
		return err
	}
	return l.store.Delete(ctx, lockKey(identityKey))
}

func (l *Lockout) attempts(ctx context.Context, identityKey string) (int, error) {
	data, err := l.store.Get(ctx, attemptsKey(identityKey))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}

	attempts := 0
	for _, b := range data {
		if b < '0' || b > '9' {
			return 0, nil
		}
		attempts = attempts*10 + int(b-'0')
	}
	return attempts, nil
}
