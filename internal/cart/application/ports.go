package application

import (
	"context"

	"github.com/zawadicraft/storefront/internal/cart/domain"
)

type CartRepository interface {
	// ActiveByUser returns the single active cart for a user, with items.
	ActiveByUser(ctx context.Context, userID string) (domain.Cart, error)

	// Save upserts the cart row and replaces its item list in one
	// transaction, so a reader never observes a half-merged cart.
	Save(ctx context.Context, c domain.Cart) error
}

// IdempotencyStore is the slice of the redis guard the sync path uses.
type IdempotencyStore interface {
	Key(parts ...string) string
	Done(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string) error
}
