package stores

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/stockroomlabs/credcore/kv"
)

// ErrTicketNotFound is returned when no ticket exists for a reset token,
// whether it never existed, expired, or was already consumed.
var ErrTicketNotFound = errors.New("stores: reset ticket not found")

// Ticket binds a reset token to the identity it was issued for. The ticket
// is the server-side half of the reset flow: the signed token alone is not
// enough, it must still match a live ticket.
type Ticket struct {
	IdentityID string    `json:"identity_id"`
	Email      string    `json:"email"`
	CreatedAt  time.Time `json:"created_at"`
}

// ResetTickets stores reset tickets keyed by a digest of the token string.
// Hashing the key keeps raw reset tokens out of the store.
type ResetTickets struct {
	store kv.Store
}

func NewResetTickets(store kv.Store) *ResetTickets {
	return &ResetTickets{store: store}
}

func (t *ResetTickets) key(tokenStr string) string {
	sum := sha256.Sum256([]byte(tokenStr))
	return "reset:" + hex.EncodeToString(sum[:])
}

// Save writes the ticket with the token's own TTL.
func (t *ResetTickets) Save(ctx context.Context, tokenStr string, ticket Ticket, ttl time.Duration) error {
	data, err := json.Marshal(ticket)
	if err != nil {
		return err
	}
	return t.store.Set(ctx, t.key(tokenStr), data, ttl)
}

// Get looks up the ticket for a token.
func (t *ResetTickets) Get(ctx context.Context, tokenStr string) (*Ticket, error) {
	data, err := t.store.Get(ctx, t.key(tokenStr))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}

	var ticket Ticket
	if err := json.Unmarshal(data, &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

// Burn deletes the ticket. Called after a successful password update, and
// immediately on any mismatch so a probed ticket cannot be retried.
func (t *ResetTickets) Burn(ctx context.Context, tokenStr string) error {
	return t.store.Delete(ctx, t.key(tokenStr))
}
