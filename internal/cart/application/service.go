package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/zawadicraft/storefront/internal/cart/domain"
)

type Service struct {
	log  *slog.Logger
	repo CartRepository
	idem IdempotencyStore
}

func NewService(log *slog.Logger, repo CartRepository, idem IdempotencyStore) *Service {
	return &Service{log: log, repo: repo, idem: idem}
}

// Sync folds a guest's local item batch into the user's persisted cart. The
// merge itself is one-shot: on success the caller discards the guest cart.
// A client-generated sync token makes retried requests no-ops instead of
// double-adding the same batch.
func (s *Service) Sync(ctx context.Context, userID, syncToken string, incoming []domain.CartItem) (domain.Cart, error) {
	if userID == "" {
		return domain.Cart{}, errors.New("cart sync: missing user id")
	}

	var key string
	if syncToken != "" {
		key = s.idem.Key("cartsync", userID, syncToken)
		done, err := s.idem.Done(ctx, key)
		if err != nil {
			s.log.Warn("cart sync token check failed, proceeding", "user_id", userID, "err", err)
		} else if done {
			s.log.Info("cart sync replay suppressed", "user_id", userID)
			return s.repo.ActiveByUser(ctx, userID)
		}
	}

	cart, err := s.repo.ActiveByUser(ctx, userID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		// Lazy create on first authenticated add.
		cart = domain.NewCart(userID)
	case err != nil:
		return domain.Cart{}, fmt.Errorf("cart sync: %w", err)
	}

	now := time.Now().UTC()
	cart.Items = domain.MergeItems(cart.Items, incoming, now)
	cart.Recompute()
	cart.UpdatedAt = now

	if err := s.repo.Save(ctx, cart); err != nil {
		return domain.Cart{}, fmt.Errorf("cart sync: save: %w", err)
	}
	if key != "" {
		if err := s.idem.Mark(ctx, key); err != nil {
			s.log.Warn("cart sync token mark failed", "user_id", userID, "err", err)
		}
	}
	return cart, nil
}

// Get returns the user's active cart.
func (s *Service) Get(ctx context.Context, userID string) (domain.Cart, error) {
	return s.repo.ActiveByUser(ctx, userID)
}
