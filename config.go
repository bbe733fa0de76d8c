package credcore

import (
	"errors"
	"time"

	"github.com/stockroomlabs/credcore/password"
	"github.com/stockroomlabs/credcore/token"
)

// Config is the process-wide configuration for the credential core. It is
// loaded once at startup, validated by Build, and read-only afterwards.
type Config struct {
	Tokens  TokenConfig
	Lockout LockoutConfig
	Reset   ResetConfig
	Hasher  password.HasherConfig
	Audit   AuditConfig

	// StorePrefix namespaces every ephemeral-store key. Defaults to "cc".
	StorePrefix string
}

// TokenConfig configures the token authority.
type TokenConfig struct {
	SigningMethod token.SigningMethod
	Secret        []byte
	PublicKey     []byte
	Issuer        string

	// AccessTTL defaults to 7 days, matching the system this core was built
	// for. Revocation is denylist-only, so hosts with a stricter threat
	// model should shorten it.
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	ResetTTL   time.Duration
	Leeway     time.Duration
}

// LockoutConfig configures the brute-force guard.
type LockoutConfig struct {
	MaxAttempts     int
	LockoutDuration time.Duration
}

// ResetConfig configures password-reset request throttling.
type ResetConfig struct {
	MaxRequests int
	Window      time.Duration
}

// AuditConfig configures the async audit dispatcher.
type AuditConfig struct {
	BufferSize int
	DropIfFull bool
}

// DefaultConfig returns the documented defaults. The signing secret has no
// default and must be supplied.
func DefaultConfig() Config {
	return Config{
		Tokens: TokenConfig{
			SigningMethod: token.MethodHS256,
			Issuer:        "credcore",
			AccessTTL:     7 * 24 * time.Hour,
			RefreshTTL:    30 * 24 * time.Hour,
			ResetTTL:      time.Hour,
		},
		Lockout: LockoutConfig{
			MaxAttempts:     5,
			LockoutDuration: 15 * time.Minute,
		},
		Reset: ResetConfig{
			MaxRequests: 3,
			Window:      time.Hour,
		},
		Hasher: password.DefaultHasherConfig(),
		Audit: AuditConfig{
			BufferSize: 256,
			DropIfFull: true,
		},
		StorePrefix: "cc",
	}
}

func (c Config) validate() error {
	if len(c.Tokens.Secret) == 0 {
		return errors.New("config: signing secret is required")
	}
	if c.Tokens.AccessTTL <= 0 || c.Tokens.RefreshTTL <= 0 || c.Tokens.ResetTTL <= 0 {
		return errors.New("config: token TTLs must be positive")
	}
	if c.Lockout.MaxAttempts <= 0 {
		return errors.New("config: lockout max attempts must be positive")
	}
	if c.Lockout.LockoutDuration <= 0 {
		return errors.New("config: lockout duration must be positive")
	}
	if c.Reset.MaxRequests <= 0 || c.Reset.Window <= 0 {
		return errors.New("config: reset window settings must be positive")
	}
	return nil
}

func (c TokenConfig) authorityConfig() token.Config {
	return token.Config{
		SigningMethod: c.SigningMethod,
		Secret:        c.Secret,
		PublicKey:     c.PublicKey,
		Issuer:        c.Issuer,
		AccessTTL:     c.AccessTTL,
		RefreshTTL:    c.RefreshTTL,
		ResetTTL:      c.ResetTTL,
		Leeway:        c.Leeway,
	}
}
