package credcore

import (
	"context"
	"errors"
	"time"

	"github.com/stockroomlabs/credcore/password"
	"github.com/stockroomlabs/credcore/token"
)

// ChangePassword re-verifies the current password, evaluates the candidate,
// and persists the new hash inside the unit of work, emitting the audit
// event after the write has committed. When
// currentBearer is non-empty the presented access token is revoked so the
// session that changed the password cannot keep using its old credential.
func (s *Service) ChangePassword(ctx context.Context, identityID, current, next, currentBearer string) error {
	if s == nil {
		return ErrNotReady
	}

	identity, err := s.users.FindByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			return ErrInvalidCredentials
		}
		return s.userStoreFailure(ctx, "find by id", err)
	}

	ok, err := s.hasher.Verify(current, identity.PasswordHash)
	if err != nil {
		return s.userStoreFailure(ctx, "verify password hash", err)
	}
	if !ok {
		s.emit(ctx, ActionChangePassword, identity.ID, identity.Email, false, ErrInvalidCredentials, nil)
		return ErrInvalidCredentials
	}

	if next == current {
		return ErrPasswordReuse
	}
	report := password.Evaluate(next)
	if !report.Valid {
		return &PolicyError{Report: report}
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return s.userStoreFailure(ctx, "hash password", err)
	}

	err = s.uow.Run(ctx, func(ctx context.Context) error {
		return s.users.UpdatePasswordHash(ctx, identity.ID, hash)
	})
	if err != nil {
		return s.userStoreFailure(ctx, "update password hash", err)
	}

	s.emit(ctx, ActionChangePassword, identity.ID, identity.Email, true, nil, map[string]string{
		"strength": string(report.Strength),
	})

	if currentBearer != "" {
		s.revokeBearer(ctx, currentBearer)
	}

	return nil
}

// revokeBearer is best-effort: an unparsable or expired bearer has nothing
// left to revoke, and a store failure must not undo a password change that
// already committed.
func (s *Service) revokeBearer(ctx context.Context, bearer string) {
	claims, err := s.authority.Verify(bearer, token.TypeAccess)
	if err != nil {
		return
	}
	if err := s.denylist.Revoke(ctx, tokenDigest(bearer), claims.Remaining(time.Now())); err != nil {
		s.logger.Warn("bearer revocation failed after password change", "error", err)
	}
}
