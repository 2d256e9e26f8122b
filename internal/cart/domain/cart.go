package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("cart not found")

// ItemKind discriminates the two purchasable types a cart can hold.
type ItemKind string

const (
	KindProduct ItemKind = "product"
	KindCourse  ItemKind = "course"
)

// ItemKey is the identity a merge deduplicates on: two lines are the same
// item iff kind, referenced id and variant SKU all match.
type ItemKey struct {
	Kind       ItemKind
	RefID      string
	VariantSKU string
}

type CartItem struct {
	Kind       ItemKind
	ProductID  string
	CourseID   string
	VariantSKU string
	Name       string
	Quantity   int

	UnitPriceCents int64
	AddedAt        time.Time
	UpdatedAt      time.Time
}

func (i CartItem) Key() ItemKey {
	refID := i.ProductID
	if i.Kind == KindCourse {
		refID = i.CourseID
	}
	return ItemKey{Kind: i.Kind, RefID: refID, VariantSKU: i.VariantSKU}
}

type Cart struct {
	ID       string
	UserID   string
	IsActive bool
	Items    []CartItem

	// ItemCount and SubtotalCents are caches over Items, rebuilt by
	// Recompute on every mutation. Never trusted as ground truth.
	ItemCount     int
	SubtotalCents int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewCart(userID string) Cart {
	now := time.Now().UTC()
	return Cart{
		ID:        uuid.NewString(),
		UserID:    userID,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// MergeItems folds a guest's local batch into a persisted item list. Matching
// keys sum their quantities, everything else is appended; neither side's
// quantities are lost. Purely additive: stock sufficiency is checkout's
// problem, not the merge's.
func MergeItems(existing, incoming []CartItem, now time.Time) []CartItem {
	merged := make([]CartItem, len(existing))
	copy(merged, existing)

	index := make(map[ItemKey]int, len(merged))
	for i := range merged {
		index[merged[i].Key()] = i
	}

	for _, in := range incoming {
		if in.Quantity < 1 {
			continue
		}
		if i, ok := index[in.Key()]; ok {
			merged[i].Quantity += in.Quantity
			merged[i].UpdatedAt = now
			continue
		}
		in.AddedAt = now
		in.UpdatedAt = now
		merged = append(merged, in)
		index[in.Key()] = len(merged) - 1
	}
	return merged
}

// Recompute rebuilds the derived fields from the item list.
func (c *Cart) Recompute() {
	var count int
	var subtotal int64
	for _, item := range c.Items {
		count += item.Quantity
		subtotal += int64(item.Quantity) * item.UnitPriceCents
	}
	c.ItemCount = count
	c.SubtotalCents = subtotal
}
