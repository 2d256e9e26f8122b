package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/zawadicraft/storefront/internal/order/domain"
)

type Service struct {
	log     *slog.Logger
	repo    OrderRepository
	gateway GatewayClient
}

func NewService(log *slog.Logger, repo OrderRepository, gateway GatewayClient) *Service {
	return &Service{log: log, repo: repo, gateway: gateway}
}

// ReconcileResult reports what a reconcile call did. Duplicate means the
// notification had already been fully applied and nothing was touched.
type ReconcileResult struct {
	Reference string
	Outcome   domain.PaymentOutcome
	Duplicate bool
}

// Reconcile collapses one gateway notification, from either channel, into an
// idempotent state transition. The webhook may replay it arbitrarily and the
// browser callback may race it; both converge on the same stored state.
func (s *Service) Reconcile(ctx context.Context, trackingID, merchantRef string) (ReconcileResult, error) {
	res := ReconcileResult{Reference: merchantRef}

	o, err := s.repo.GetByReference(ctx, merchantRef)
	if err != nil {
		return res, fmt.Errorf("reconcile %s: %w", merchantRef, err)
	}

	// Duplicate notification: already correlated to this transaction and
	// paid. Expected steady state of a dual-channel design, not an error.
	if o.TransactionID == trackingID && o.PaymentStatus == domain.PaymentPaid {
		res.Outcome = domain.OutcomePaid
		res.Duplicate = true
		return res, nil
	}

	// One order maps to exactly one gateway transaction. A different
	// tracking id for an already-correlated order is rejected, not merged.
	if o.TransactionID != "" && o.TransactionID != trackingID {
		s.log.Error("tracking id mismatch",
			"reference", merchantRef, "stored", o.TransactionID, "got", trackingID)
		return res, fmt.Errorf("reconcile %s: tracking id mismatch: %w", merchantRef, domain.ErrInvalidTransition)
	}

	ts, err := s.gateway.GetTransactionStatus(ctx, trackingID)
	if err != nil {
		// Transient; nothing stored yet, caller may retry.
		return res, fmt.Errorf("reconcile %s: %w", merchantRef, err)
	}

	outcome := domain.OutcomeFromDescription(ts.StatusDescription)
	result := domain.NewPaymentResult(outcome, trackingID, ts.ConfirmationCode, time.Now())

	if err := s.repo.ApplyPaymentResult(ctx, o.Reference, result); err != nil {
		return res, fmt.Errorf("reconcile %s: apply payment result: %w", merchantRef, err)
	}
	res.Outcome = outcome

	if outcome != domain.OutcomePaid {
		return res, nil
	}

	// Money has moved. Everything below is guarded side effects; failures
	// are logged loudly but never roll back the payment write.
	payload, err := json.Marshal(domain.PaymentReconciled{
		OrderID:          o.ID,
		Reference:        o.Reference,
		UserID:           o.UserID,
		TransactionID:    trackingID,
		ConfirmationCode: ts.ConfirmationCode,
		TotalCents:       o.TotalCents,
	})
	if err != nil {
		return res, fmt.Errorf("reconcile %s: marshal event: %w", merchantRef, err)
	}

	claimed, err := s.repo.ClaimStockAndQueue(ctx, o.Reference, "PaymentReconciled", payload)
	if err != nil {
		s.log.Error("stock guard claim failed, manual correction required",
			"reference", o.Reference, "err", err)
		return res, nil
	}
	if !claimed {
		// The other channel got here first.
		return res, nil
	}

	if err := s.repo.DecrementStock(ctx, o.Items); err != nil {
		s.log.Error("stock decrement failed after payment, manual correction required",
			"reference", o.Reference, "err", err)
	}
	return res, nil
}

// FinalizeCheckout runs the callback-channel extras: escalating the order out
// of pending and sweeping other abandoned orders from the same cart. All of
// it is best effort; a failure here never undoes a reconciled payment.
func (s *Service) FinalizeCheckout(ctx context.Context, merchantRef string) {
	o, err := s.repo.GetByReference(ctx, merchantRef)
	if err != nil {
		s.log.Warn("finalize: order lookup failed", "reference", merchantRef, "err", err)
		return
	}
	if o.PaymentStatus == domain.PaymentPaid && o.Status == domain.StatusPending {
		if err := s.repo.EscalateStatus(ctx, o.Reference, domain.StatusPending, domain.StatusConfirmed); err != nil {
			s.log.Warn("finalize: escalation failed", "reference", o.Reference, "err", err)
		}
	}
	if o.CartID == "" {
		return
	}
	stale, err := s.repo.StalePendingByCart(ctx, o.CartID, o.Reference)
	if err != nil {
		s.log.Warn("finalize: stale order lookup failed", "cart_id", o.CartID, "err", err)
		return
	}
	for _, ref := range stale {
		if _, err := s.repo.DeletePending(ctx, ref); err != nil {
			s.log.Warn("finalize: stale order cleanup failed", "reference", ref, "err", err)
		}
	}
}

// CheckoutResult carries the created order plus the gateway redirect URL for
// gateway-method orders. RedirectURL is empty for offline methods.
type CheckoutResult struct {
	Order       domain.Order
	RedirectURL string
}

// CreateOrder persists a new order from the checkout submission and, for
// gateway payments, registers it with the gateway. The order survives a
// failed submission: the redirect view re-triggers payment later.
func (s *Service) CreateOrder(ctx context.Context, userID, cartID string, method domain.PaymentMethod, items []domain.OrderItem) (CheckoutResult, error) {
	if len(items) == 0 {
		return CheckoutResult{}, errors.New("create order: no items")
	}
	for _, item := range items {
		if item.Quantity < 1 {
			return CheckoutResult{}, fmt.Errorf("create order: quantity must be at least 1 for %s", item.ProductID)
		}
	}

	o := domain.NewOrder(userID, cartID, method, items)
	if err := s.repo.CreateWithItems(ctx, o); err != nil {
		return CheckoutResult{}, fmt.Errorf("create order: %w", err)
	}
	out := CheckoutResult{Order: o}

	if method.Offline() {
		return out, nil
	}

	url, err := s.gateway.SubmitOrder(ctx, o)
	if err != nil {
		return out, fmt.Errorf("create order %s: %w", o.Reference, err)
	}
	out.RedirectURL = url
	return out, nil
}

// Get returns an order by merchant reference.
func (s *Service) Get(ctx context.Context, merchantRef string) (domain.Order, error) {
	return s.repo.GetByReference(ctx, merchantRef)
}

// Cancel removes a still-pending order. Anything past pending is rejected
// with ErrInvalidTransition; cancellation is one-way.
func (s *Service) Cancel(ctx context.Context, merchantRef string) error {
	o, err := s.repo.GetByReference(ctx, merchantRef)
	if err != nil {
		return fmt.Errorf("cancel %s: %w", merchantRef, err)
	}
	if !o.CanCancel() {
		return fmt.Errorf("cancel %s: status %s: %w", merchantRef, o.Status, domain.ErrInvalidTransition)
	}
	deleted, err := s.repo.DeletePending(ctx, merchantRef)
	if err != nil {
		return fmt.Errorf("cancel %s: %w", merchantRef, err)
	}
	if !deleted {
		// Lost a race with a reconcile or another cancel.
		return fmt.Errorf("cancel %s: %w", merchantRef, domain.ErrInvalidTransition)
	}
	return nil
}
