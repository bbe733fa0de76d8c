package credcore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/stockroomlabs/credcore/internal/audit"
	"github.com/stockroomlabs/credcore/internal/rate"
	"github.com/stockroomlabs/credcore/internal/stores"
	"github.com/stockroomlabs/credcore/password"
	"github.com/stockroomlabs/credcore/token"
)

// Audit action names emitted by the service.
const (
	ActionRegister       = "identity.register"
	ActionLogin          = "identity.login"
	ActionLogout         = "identity.logout"
	ActionRefresh        = "token.refresh"
	ActionChangePassword = "identity.password_change"
	ActionResetRequest   = "identity.password_reset_request"
	ActionResetConsume   = "identity.password_reset"
)

// Service is the credential session core. It is the only component other
// layers call; it orchestrates the lockout guard, the password policy, the
// token authority, and the reset flow. Safe for concurrent use.
type Service struct {
	config    Config
	users     UserStore
	uow       UnitOfWork
	authority *token.Authority
	hasher    *password.Hasher
	lockout   *rate.Lockout
	window    *rate.Window
	denylist  *stores.Denylist
	tickets   *stores.ResetTickets
	audit     *audit.Dispatcher
	logger    *slog.Logger
}

// Close drains and stops the audit dispatcher.
func (s *Service) Close() {
	if s == nil {
		return
	}
	s.audit.Close()
}

// AuditDropped reports audit events discarded under backpressure.
func (s *Service) AuditDropped() uint64 {
	if s == nil {
		return 0
	}
	return s.audit.Dropped()
}

// VerifyAccess validates an access token and returns its claims. Used by
// HTTP middleware to authenticate requests.
func (s *Service) VerifyAccess(ctx context.Context, accessToken string) (*token.Claims, error) {
	if s == nil {
		return nil, ErrNotReady
	}

	claims, err := s.authority.Verify(accessToken, token.TypeAccess)
	if err != nil {
		return nil, translateTokenError(err)
	}

	// Access tokens carry no jti, but a bearer token revoked at logout is
	// denylisted under its full string digest.
	revoked, err := s.denylist.IsRevoked(ctx, tokenDigest(accessToken))
	if err != nil {
		return nil, s.storeFailure(ctx, "denylist check", err)
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	return claims, nil
}

// normalizeEmail canonicalizes an email for lookups and lockout keys.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// tokenDigest derives the denylist key for a token that carries no jti.
// Hashing keeps full bearer tokens out of the store.
func tokenDigest(tokenStr string) string {
	sum := sha256.Sum256([]byte(tokenStr))
	return hex.EncodeToString(sum[:])
}

func (s *Service) emit(ctx context.Context, action, identityID, email string, success bool, opErr error, details map[string]string) {
	event := audit.Event{
		Timestamp:  time.Now(),
		Action:     action,
		IdentityID: identityID,
		Email:      email,
		Success:    success,
		Details:    details,
	}
	if opErr != nil {
		event.Error = opErr.Error()
	}
	s.audit.Emit(ctx, event)
}

// storeFailure logs the raw backend error with context and returns the
// generic sentinel so transport details never reach the caller.
func (s *Service) storeFailure(ctx context.Context, op string, err error) error {
	s.logger.LogAttrs(ctx, slog.LevelError, "ephemeral store failure",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
	return ErrStoreUnavailable
}

func (s *Service) userStoreFailure(ctx context.Context, op string, err error) error {
	s.logger.LogAttrs(ctx, slog.LevelError, "user store failure",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
	return ErrStoreUnavailable
}

// signFailure covers token authority errors. They do not implicate a store,
// so the raw wrapped error goes back to the caller.
func (s *Service) signFailure(ctx context.Context, err error) error {
	s.logger.LogAttrs(ctx, slog.LevelError, "token signing failure",
		slog.String("error", err.Error()),
	)
	return fmt.Errorf("issue tokens: %w", err)
}

func translateTokenError(err error) error {
	switch {
	case errors.Is(err, token.ErrExpired):
		return ErrTokenExpired
	case errors.Is(err, token.ErrNotActive):
		return ErrTokenNotActive
	case errors.Is(err, token.ErrWrongType):
		return ErrTokenWrongType
	default:
		return ErrTokenMalformed
	}
}

func statusError(status Status) error {
	switch status {
	case StatusPending:
		return ErrAccountPending
	case StatusSuspended:
		return ErrAccountSuspended
	}
	return nil
}
