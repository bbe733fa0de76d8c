package credcore

import (
	"context"
	"errors"
	"time"

	"github.com/stockroomlabs/credcore/token"
)

// Refresh rotates a refresh token: the presented token is verified, checked
// against the denylist, and then denylisted itself before a fresh pair is
// issued. A replayed refresh token therefore fails its second use with
// ErrTokenRevoked.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if s == nil {
		return nil, ErrNotReady
	}

	claims, err := s.authority.Verify(refreshToken, token.TypeRefresh)
	if err != nil {
		translated := translateTokenError(err)
		s.emit(ctx, ActionRefresh, "", "", false, translated, nil)
		return nil, translated
	}

	revoked, err := s.denylist.IsRevoked(ctx, claims.TokenID())
	if err != nil {
		return nil, s.storeFailure(ctx, "denylist check", err)
	}
	if revoked {
		s.emit(ctx, ActionRefresh, claims.IdentityID(), claims.Email, false, ErrTokenRevoked, map[string]string{
			"reason": "replayed_refresh",
		})
		return nil, ErrTokenRevoked
	}

	identity, err := s.users.FindByID(ctx, claims.IdentityID())
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			return nil, ErrTokenRevoked
		}
		return nil, s.userStoreFailure(ctx, "find by id", err)
	}
	if statusErr := statusError(identity.Status); statusErr != nil {
		s.emit(ctx, ActionRefresh, identity.ID, identity.Email, false, statusErr, nil)
		return nil, statusErr
	}

	// Burn the consumed token for exactly its remaining lifetime, then mint
	// the replacement pair.
	if err := s.denylist.Revoke(ctx, claims.TokenID(), claims.Remaining(time.Now())); err != nil {
		return nil, s.storeFailure(ctx, "denylist revoke", err)
	}

	pair, err := s.authority.IssuePair(identity.ID, identity.Email, string(identity.Role))
	if err != nil {
		return nil, s.signFailure(ctx, err)
	}

	s.emit(ctx, ActionRefresh, identity.ID, identity.Email, true, nil, nil)
	return pair, nil
}

// Logout revokes the presented access token for its remaining lifetime.
// Expired or malformed tokens are a no-op: there is nothing left to revoke.
func (s *Service) Logout(ctx context.Context, accessToken string) error {
	if s == nil {
		return ErrNotReady
	}

	claims, err := s.authority.Verify(accessToken, token.TypeAccess)
	if err != nil {
		return nil
	}

	if err := s.denylist.Revoke(ctx, tokenDigest(accessToken), claims.Remaining(time.Now())); err != nil {
		return s.storeFailure(ctx, "denylist revoke", err)
	}

	s.emit(ctx, ActionLogout, claims.IdentityID(), claims.Email, true, nil, nil)
	return nil
}
