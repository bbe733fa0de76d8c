package credcore

import (
	"context"
	"errors"
	"strconv"
	"time"
)

// Login authenticates an email+password pair and issues a token pair.
//
// The failure order is deliberate: the lockout check runs first so a locked
// identity learns nothing new; an unknown email records a failure against
// the same normalized key a real account would use and returns the same
// generic error as a wrong password; the status gate runs before the
// password comparison so a disabled account never reveals whether its
// password was correct.
func (s *Service) Login(ctx context.Context, email, candidate string) (*AuthResult, error) {
	if s == nil {
		return nil, ErrNotReady
	}

	key := normalizeEmail(email)
	if key == "" || candidate == "" {
		return nil, ErrInvalidCredentials
	}

	status, err := s.lockout.Status(ctx, key)
	if err != nil {
		return nil, s.storeFailure(ctx, "lockout status", err)
	}
	if status.Locked {
		s.emit(ctx, ActionLogin, "", key, false, ErrAccountLocked, map[string]string{
			"reason": "locked",
		})
		return nil, &LockoutError{RetryAfter: status.RetryAfter, Attempts: status.Attempts}
	}

	identity, err := s.users.FindByEmail(ctx, key)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			return nil, s.failLogin(ctx, key, "", "unknown_email")
		}
		return nil, s.userStoreFailure(ctx, "find by email", err)
	}

	if statusErr := statusError(identity.Status); statusErr != nil {
		s.emit(ctx, ActionLogin, identity.ID, key, false, statusErr, map[string]string{
			"reason": "status",
		})
		return nil, statusErr
	}

	ok, err := s.hasher.Verify(candidate, identity.PasswordHash)
	if err != nil {
		return nil, s.userStoreFailure(ctx, "verify password hash", err)
	}
	if !ok {
		return nil, s.failLogin(ctx, key, identity.ID, "password_mismatch")
	}

	if err := s.lockout.Reset(ctx, key); err != nil {
		return nil, s.storeFailure(ctx, "lockout reset", err)
	}

	pair, err := s.authority.IssuePair(identity.ID, identity.Email, string(identity.Role))
	if err != nil {
		return nil, s.signFailure(ctx, err)
	}

	now := time.Now()
	if err := s.users.UpdateLastLogin(ctx, identity.ID, now); err != nil {
		// Last-login metadata is best-effort; the login itself stands.
		s.logger.Warn("update last login failed", "identity_id", identity.ID, "error", err)
	} else {
		identity.LastLoginAt = now
	}

	s.emit(ctx, ActionLogin, identity.ID, key, true, nil, nil)

	return &AuthResult{Identity: identity.Summary(), Tokens: *pair}, nil
}

// failLogin records the failure against the lockout key and returns the
// uniform credentials error. identityID is empty for unknown emails, which
// keeps the audit trail honest without changing the caller-visible shape.
func (s *Service) failLogin(ctx context.Context, key, identityID, reason string) error {
	attempts, lockedNow, err := s.lockout.RecordFailure(ctx, key)
	if err != nil {
		return s.storeFailure(ctx, "lockout record failure", err)
	}

	details := map[string]string{
		"reason":   reason,
		"attempts": strconv.Itoa(attempts),
	}
	if lockedNow {
		details["locked"] = "true"
	}
	s.emit(ctx, ActionLogin, identityID, key, false, ErrInvalidCredentials, details)

	return ErrInvalidCredentials
}
