package credcore

import (
	"context"
	"errors"
	"time"

	"github.com/stockroomlabs/credcore/internal/stores"
	"github.com/stockroomlabs/credcore/password"
	"github.com/stockroomlabs/credcore/token"
)

// RequestPasswordReset mints a single-use reset token for the email if an
// active identity exists. The return value is empty for unknown or inactive
// emails and the caller must respond identically in both cases; only the
// rate limit is ever surfaced, so account existence cannot be probed here.
// Delivery of the token (email, SMS) is the host's concern.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	if s == nil {
		return "", ErrNotReady
	}

	key := normalizeEmail(email)
	if key == "" {
		return "", nil
	}

	allowed, err := s.window.Allow(ctx, key)
	if err != nil {
		return "", s.storeFailure(ctx, "reset window", err)
	}
	if !allowed {
		s.emit(ctx, ActionResetRequest, "", key, false, ErrResetRateLimited, nil)
		return "", ErrResetRateLimited
	}

	identity, err := s.users.FindByEmail(ctx, key)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			// Same outward shape as the success path.
			s.emit(ctx, ActionResetRequest, "", key, true, nil, map[string]string{
				"issued": "false",
			})
			return "", nil
		}
		return "", s.userStoreFailure(ctx, "find by email", err)
	}
	if identity.Status != StatusActive {
		s.emit(ctx, ActionResetRequest, identity.ID, key, true, nil, map[string]string{
			"issued": "false",
		})
		return "", nil
	}

	resetToken, err := s.authority.IssueReset(identity.ID, identity.Email)
	if err != nil {
		return "", s.signFailure(ctx, err)
	}

	ticket := stores.Ticket{
		IdentityID: identity.ID,
		Email:      identity.Email,
		CreatedAt:  time.Now(),
	}
	if err := s.tickets.Save(ctx, resetToken, ticket, s.config.Tokens.ResetTTL); err != nil {
		return "", s.storeFailure(ctx, "save reset ticket", err)
	}

	s.emit(ctx, ActionResetRequest, identity.ID, key, true, nil, map[string]string{
		"issued": "true",
	})
	return resetToken, nil
}

// ResetPassword consumes a reset token exactly once. The ticket is the
// authority on liveness: without one the token is dead no matter what its
// signature says. Any mismatch between request, ticket, and signed claims
// burns the ticket before failing. The ticket itself is burned only after
// the new hash has been persisted, so a failed persistence leaves the
// ticket retryable within its TTL.
//
// currentBearer optionally revokes the access token of whoever performed
// the reset; pass "" when unauthenticated.
func (s *Service) ResetPassword(ctx context.Context, resetToken, email, newPassword, currentBearer string) error {
	if s == nil {
		return ErrNotReady
	}

	ticket, err := s.tickets.Get(ctx, resetToken)
	if err != nil {
		if errors.Is(err, stores.ErrTicketNotFound) {
			return ErrResetInvalid
		}
		return s.storeFailure(ctx, "get reset ticket", err)
	}

	if normalizeEmail(email) != normalizeEmail(ticket.Email) {
		return s.burnAndFail(ctx, resetToken, ticket, "email_mismatch")
	}

	claims, err := s.authority.Verify(resetToken, token.TypeReset)
	if err != nil {
		return s.burnAndFail(ctx, resetToken, ticket, "token_invalid")
	}
	if claims.IdentityID() != ticket.IdentityID {
		return s.burnAndFail(ctx, resetToken, ticket, "identity_mismatch")
	}

	report := password.Evaluate(newPassword)
	if !report.Valid {
		// Policy failures don't burn the ticket: the requester may retry
		// with a stronger password inside the TTL.
		return &PolicyError{Report: report}
	}

	identity, err := s.users.FindByID(ctx, ticket.IdentityID)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			return s.burnAndFail(ctx, resetToken, ticket, "identity_gone")
		}
		return s.userStoreFailure(ctx, "find by id", err)
	}
	if identity.Status != StatusActive {
		return s.burnAndFail(ctx, resetToken, ticket, "identity_inactive")
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return s.userStoreFailure(ctx, "hash password", err)
	}

	err = s.uow.Run(ctx, func(ctx context.Context) error {
		return s.users.UpdatePasswordHash(ctx, identity.ID, hash)
	})
	if err != nil {
		// Ticket intentionally left alive; the reset can be retried.
		return s.userStoreFailure(ctx, "update password hash", err)
	}

	s.emit(ctx, ActionResetConsume, identity.ID, identity.Email, true, nil, map[string]string{
		"strength": string(report.Strength),
	})

	if err := s.tickets.Burn(ctx, resetToken); err != nil {
		s.logger.Warn("reset ticket burn failed after password update", "identity_id", identity.ID, "error", err)
	}

	if currentBearer != "" {
		s.revokeBearer(ctx, currentBearer)
	}

	return nil
}

func (s *Service) burnAndFail(ctx context.Context, resetToken string, ticket *stores.Ticket, reason string) error {
	if err := s.tickets.Burn(ctx, resetToken); err != nil {
		s.logger.Warn("reset ticket burn failed", "error", err)
	}
	s.emit(ctx, ActionResetConsume, ticket.IdentityID, ticket.Email, false, ErrResetInvalid, map[string]string{
		"reason": reason,
	})
	return ErrResetInvalid
}
