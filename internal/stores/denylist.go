// Package stores holds the keyed-store-backed records of the credential
// core: the token denylist and password-reset tickets.
package stores

import (
	"context"
	"errors"
	"time"

	"github.com/stockroomlabs/credcore/kv"
)

// Denylist records tokens revoked before their natural expiry. Each entry's
// TTL equals the token's remaining lifetime at insertion, so an entry can
// never outlive the token it shadows and memory stays bounded.
type Denylist struct {
	store kv.Store
}

func NewDenylist(store kv.Store) *Denylist {
	return &Denylist{store: store}
}

func (d *Denylist) key(id string) string {
	return "deny:" + id
}

// Revoke inserts id with the given remaining lifetime. Tokens with no
// lifetime left are already dead; revoking them is a no-op.
func (d *Denylist) Revoke(ctx context.Context, id string, remaining time.Duration) error {
	if remaining <= 0 {
		return nil
	}
	return d.store.Set(ctx, d.key(id), []byte("1"), remaining)
}

// IsRevoked reports whether id is currently denylisted.
func (d *Denylist) IsRevoked(ctx context.Context, id string) (bool, error) {
	_, err := d.store.Get(ctx, d.key(id))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
