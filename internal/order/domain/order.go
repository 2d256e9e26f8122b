package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound means a merchant reference did not resolve to a record.
	// Terminal for the notification that carried it; retrying cannot create
	// a missing order.
	ErrNotFound = errors.New("order not found")

	// ErrGatewayUnavailable marks a transient failure talking to the payment
	// gateway. No local state has been mutated; safe to retry.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")

	// ErrInvalidTransition is returned when a caller asks for a state change
	// the lifecycle forbids, e.g. cancelling a confirmed order.
	ErrInvalidTransition = errors.New("invalid status transition")
)

type PaymentMethod string

const (
	MethodGateway        PaymentMethod = "gateway"
	MethodCashOnDelivery PaymentMethod = "cod"
	MethodBankTransfer   PaymentMethod = "bank"
)

// Offline reports whether the method settles outside the gateway round-trip:
// no redirect, no webhook, no reconciliation expected.
func (m PaymentMethod) Offline() bool {
	return m == MethodCashOnDelivery || m == MethodBankTransfer
}

type PaymentStatus string

const (
	PaymentNotInitiated PaymentStatus = "not_initiated"
	PaymentPending      PaymentStatus = "pending"
	PaymentPaid         PaymentStatus = "paid"
	PaymentFailed       PaymentStatus = "failed"
	PaymentRefunded     PaymentStatus = "refunded"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// Terminal states are absorbing: nothing moves an order out of them.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

type Order struct {
	ID        string
	Reference string // merchant reference, the gateway's correlation key
	UserID    string
	CartID    string

	PaymentMethod    PaymentMethod
	PaymentStatus    PaymentStatus
	Status           Status
	TransactionID    string
	ConfirmationCode string
	PaidAt           *time.Time
	StockUpdated     bool

	Items      []OrderItem
	TotalCents int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// OrderItem is a point-in-time snapshot: price and attributes are copied at
// order creation and never re-read from the live catalog.
type OrderItem struct {
	ProductID      string
	VariantSKU     string
	Name           string
	Quantity       int
	UnitPriceCents int64
	DiscountCents  int64
}

func (i OrderItem) LineTotalCents() int64 {
	return int64(i.Quantity) * (i.UnitPriceCents - i.DiscountCents)
}

func NewOrder(userID, cartID string, method PaymentMethod, items []OrderItem) Order {
	var total int64
	for _, item := range items {
		total += item.LineTotalCents()
	}
	now := time.Now().UTC()
	return Order{
		ID:            uuid.NewString(),
		Reference:     NewReference("ORD"),
		UserID:        userID,
		CartID:        cartID,
		PaymentMethod: method,
		PaymentStatus: PaymentNotInitiated,
		Status:        StatusPending,
		Items:         items,
		TotalCents:    total,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// NewReference builds a human-readable merchant reference like ORD-1A2B3C4D5E.
func NewReference(prefix string) string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return prefix + "-" + id[:10]
}

// CanCancel: cancellation is allowed only while the order is still pending.
func (o Order) CanCancel() bool {
	return o.Status == StatusPending
}
