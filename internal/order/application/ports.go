package application

import (
	"context"
	"time"

	"github.com/zawadicraft/storefront/internal/order/domain"
)

type OrderRepository interface {
	GetByReference(ctx context.Context, reference string) (domain.Order, error)
	CreateWithItems(ctx context.Context, o domain.Order) error

	// ApplyPaymentResult writes the full payment tuple in one atomic patch.
	ApplyPaymentResult(ctx context.Context, reference string, res domain.PaymentResult) error

	// ClaimStockAndQueue flips stock_updated from false to true with
	// compare-and-set semantics and, when the claim wins, queues the outbox
	// event in the same transaction. Returns false when the guard was
	// already claimed.
	ClaimStockAndQueue(ctx context.Context, reference, eventType string, payload []byte) (bool, error)

	DecrementStock(ctx context.Context, items []domain.OrderItem) error

	// EscalateStatus moves status from->to, guarded so concurrent callers
	// and terminal states cannot regress anything.
	EscalateStatus(ctx context.Context, reference string, from, to domain.Status) error

	// DeletePending removes an order only while it is still pending.
	// Returns false when the guard did not match.
	DeletePending(ctx context.Context, reference string) (bool, error)

	// StalePendingByCart lists other never-paid pending orders created from
	// the same cart, candidates for cleanup after a successful checkout.
	StalePendingByCart(ctx context.Context, cartID, exceptReference string) ([]string, error)

	// PaidStuckPending lists orders the webhook paid but no callback ever
	// escalated, older than the given age.
	PaidStuckPending(ctx context.Context, olderThan time.Duration, limit int) ([]string, error)

	// PurgeAbandoned deletes pending orders whose payment was never
	// initiated within the given age. Returns the number removed.
	PurgeAbandoned(ctx context.Context, olderThan time.Duration) (int64, error)
}

// TransactionStatus is the gateway's canonical answer for a tracking id.
type TransactionStatus struct {
	StatusDescription string
	ConfirmationCode  string
	PaymentMethod     string
	AmountCents       int64
}

type GatewayClient interface {
	// SubmitOrder registers the payment with the gateway and returns the
	// URL the browser must be redirected to.
	SubmitOrder(ctx context.Context, o domain.Order) (redirectURL string, err error)

	// GetTransactionStatus fetches the single source of truth for a
	// payment outcome. Notification channels only carry pointers; they are
	// never trusted for the status itself.
	GetTransactionStatus(ctx context.Context, trackingID string) (TransactionStatus, error)
}
