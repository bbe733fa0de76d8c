package credcore

import (
	"errors"
	"fmt"
	"time"

	"github.com/stockroomlabs/credcore/password"
)

var (
	// ErrNotReady is returned when the service is used before Build wired
	// every required collaborator.
	ErrNotReady = errors.New("credential service not initialized")
	// ErrValidation is returned for malformed input the caller can correct
	// and retry.
	ErrValidation = errors.New("invalid input")
	// ErrInvalidCredentials is the uniform login failure. It is deliberately
	// indistinguishable between an unknown email and a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked is returned while a lockout is in effect.
	ErrAccountLocked = errors.New("account temporarily locked")
	// ErrAccountPending is returned for identities awaiting activation.
	ErrAccountPending = errors.New("account pending activation")
	// ErrAccountSuspended is returned for suspended identities.
	ErrAccountSuspended = errors.New("account suspended")
	// ErrEmailExists is returned on registration with a taken email.
	ErrEmailExists = errors.New("email already registered")
	// ErrIdentityNotFound is returned by UserStore implementations for
	// missing identities.
	ErrIdentityNotFound = errors.New("identity not found")
	// ErrPasswordPolicy is returned when a candidate password fails policy.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrPasswordReuse is returned when a new password equals the current one.
	ErrPasswordReuse = errors.New("new password must differ from current password")
	// ErrTokenExpired is returned for tokens past their expiry claim.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenMalformed is returned for tokens with invalid structure or
	// signature.
	ErrTokenMalformed = errors.New("malformed token")
	// ErrTokenNotActive is returned for tokens presented before validity.
	ErrTokenNotActive = errors.New("token not yet active")
	// ErrTokenWrongType is returned when a token of another kind is presented.
	ErrTokenWrongType = errors.New("wrong token type")
	// ErrTokenRevoked is returned for denylisted tokens, including replayed
	// refresh tokens.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrResetInvalid is the uniform failure for reset tokens with no live
	// ticket, a mismatched email, or inconsistent claims.
	ErrResetInvalid = errors.New("invalid reset token")
	// ErrResetRateLimited is returned when the reset-request window is
	// exhausted for an email.
	ErrResetRateLimited = errors.New("reset request limit exceeded")
	// ErrStoreUnavailable wraps keyed-store or user-store transport failures
	// after details have been logged.
	ErrStoreUnavailable = errors.New("backing store unavailable")
)

// LockoutError carries the retry horizon alongside ErrAccountLocked so HTTP
// layers can emit a Retry-After header.
type LockoutError struct {
	RetryAfter time.Duration
	Attempts   int
}

func (e *LockoutError) Error() string {
	return fmt.Sprintf("account temporarily locked, retry in %ds", int(e.RetryAfter.Seconds()))
}

func (e *LockoutError) Unwrap() error { return ErrAccountLocked }

// PolicyError carries the full evaluation report alongside
// ErrPasswordPolicy so callers can show per-rule messages.
type PolicyError struct {
	Report password.Report
}

func (e *PolicyError) Error() string {
	if len(e.Report.Errors) > 0 {
		return "password policy violation: " + e.Report.Errors[0]
	}
	return "password policy violation"
}

func (e *PolicyError) Unwrap() error { return ErrPasswordPolicy }

// ValidationError carries field-level messages alongside ErrValidation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return "invalid input"
}

func (e *ValidationError) Unwrap() error { return ErrValidation }
