package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/zawadicraft/storefront/internal/order/application"
	"github.com/zawadicraft/storefront/internal/order/domain"
	"github.com/zawadicraft/storefront/pkg/idempotency"
)

// Reconciler is the shared contract both notification channels call into.
// Orders and donations each provide one; the merchant reference prefix
// decides which record type a notification belongs to.
type Reconciler interface {
	Reconcile(ctx context.Context, trackingID, merchantRef string) (application.ReconcileResult, error)
}

const donationRefPrefix = "DON-"

// Fixed downstream pages the browser callback may land on.
const (
	pathOrderDetail       = "/orders/"
	pathCheckoutFailed    = "/checkout/failed"
	pathPaymentUnverified = "/checkout/unverified"
	pathOrderNotFound     = "/orders/not-found"
	pathDonationThanks    = "/donate/thank-you"
	pathDonationFailed    = "/donate/failed"
)

type Handler struct {
	log       *slog.Logger
	orders    *application.Service
	donations Reconciler
	idem      *idempotency.Store
	tracer    trace.Tracer
}

func NewHandler(log *slog.Logger, orders *application.Service, donations Reconciler, idem *idempotency.Store) *Handler {
	return &Handler{
		log:       log,
		orders:    orders,
		donations: donations,
		idem:      idem,
		tracer:    otel.Tracer("order-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/payments/ipn", h.handleIPN)
	r.Get("/payments/ipn", h.handleIPN)
	r.Get("/payments/callback", h.handleCallback)
	r.Post("/orders", h.createOrder)
	r.Get("/orders/{reference}", h.getOrder)
	r.Delete("/orders/{reference}", h.cancelOrder)
	return r
}

type ipnNotification struct {
	OrderTrackingID        string `json:"OrderTrackingId"`
	OrderNotificationType  string `json:"OrderNotificationType"`
	OrderMerchantReference string `json:"OrderMerchantReference"`
}

type ipnResponse struct {
	OrderTrackingID        string `json:"orderTrackingId"`
	OrderNotificationType  string `json:"orderNotificationType"`
	OrderMerchantReference string `json:"orderMerchantReference"`
	Status                 int    `json:"status"`
}

// handleIPN is the server-to-server webhook: at-least-once, unauthenticated,
// replayed freely by the gateway. The gateway inspects the status field in
// the response body, not the HTTP status line, so the echo shape is always
// emitted, even when reconciliation blows up.
func (h *Handler) handleIPN(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "IPN")
	defer span.End()

	n := h.parseNotification(r)
	echo := ipnResponse{
		OrderTrackingID:        n.OrderTrackingID,
		OrderNotificationType:  n.OrderNotificationType,
		OrderMerchantReference: n.OrderMerchantReference,
		Status:                 http.StatusOK,
	}

	defer func() {
		if rec := recover(); rec != nil {
			h.log.Error("ipn handler panic", "reference", n.OrderMerchantReference, "panic", rec)
			echo.Status = http.StatusInternalServerError
			writeJSON(w, echo)
		}
	}()

	if n.OrderTrackingID == "" || n.OrderMerchantReference == "" {
		echo.Status = http.StatusInternalServerError
		writeJSON(w, echo)
		return
	}

	key := h.idem.Key("ipn", n.OrderTrackingID, n.OrderMerchantReference)
	if done, err := h.idem.Done(ctx, key); err == nil && done {
		h.log.Info("ipn duplicate suppressed", "reference", n.OrderMerchantReference)
		writeJSON(w, echo)
		return
	}

	res, err := h.reconcilerFor(n.OrderMerchantReference).Reconcile(ctx, n.OrderTrackingID, n.OrderMerchantReference)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		// The gateway referenced an order that does not exist. Retrying
		// cannot create it; log it and let the non-200 body stop retries
		// on the gateway side or not, its choice.
		h.log.Error("ipn for unknown reference", "reference", n.OrderMerchantReference)
		echo.Status = http.StatusInternalServerError
	case err != nil:
		// Transient: a 500-shaped body makes the gateway redeliver later.
		h.log.Warn("ipn reconcile failed", "reference", n.OrderMerchantReference, "err", err)
		echo.Status = http.StatusInternalServerError
	default:
		if res.Outcome == domain.OutcomePaid || res.Outcome == domain.OutcomeRefunded {
			if err := h.idem.Mark(ctx, key); err != nil {
				h.log.Warn("ipn idempotency mark failed", "err", err)
			}
		}
	}
	writeJSON(w, echo)
}

// handleCallback is the browser redirect channel. It never renders JSON;
// every outcome maps to a redirect onto a fixed set of pages, with internal
// detail degraded to a generic unverified page.
func (h *Handler) handleCallback(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "PaymentCallback")
	defer span.End()

	trackingID := r.URL.Query().Get("OrderTrackingId")
	reference := r.URL.Query().Get("OrderMerchantReference")
	if trackingID == "" || reference == "" {
		http.Redirect(w, r, pathOrderNotFound, http.StatusSeeOther)
		return
	}

	donation := strings.HasPrefix(reference, donationRefPrefix)
	res, err := h.reconcilerFor(reference).Reconcile(ctx, trackingID, reference)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		http.Redirect(w, r, pathOrderNotFound, http.StatusSeeOther)
		return
	case err != nil:
		h.log.Warn("callback reconcile failed", "reference", reference, "err", err)
		http.Redirect(w, r, pathPaymentUnverified, http.StatusSeeOther)
		return
	}

	if donation {
		if res.Outcome == domain.OutcomePaid {
			http.Redirect(w, r, pathDonationThanks, http.StatusSeeOther)
		} else {
			http.Redirect(w, r, pathDonationFailed, http.StatusSeeOther)
		}
		return
	}

	// Callback-only extras: the channel with user context escalates the
	// order and sweeps the cart's abandoned siblings. Best effort.
	h.orders.FinalizeCheckout(ctx, reference)

	if res.Outcome == domain.OutcomePaid {
		http.Redirect(w, r, pathOrderDetail+reference, http.StatusSeeOther)
	} else {
		http.Redirect(w, r, pathCheckoutFailed+"?ref="+reference, http.StatusSeeOther)
	}
}

type createOrderRequest struct {
	UserID        string               `json:"user_id"`
	CartID        string               `json:"cart_id"`
	PaymentMethod domain.PaymentMethod `json:"payment_method"`
	Items         []domain.OrderItem   `json:"items"`
}

type createOrderResponse struct {
	Order       domain.Order `json:"order"`
	RedirectURL string       `json:"redirect_url,omitempty"`
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateOrder")
	defer span.End()

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	res, err := h.orders.CreateOrder(ctx, req.UserID, req.CartID, req.PaymentMethod, req.Items)
	switch {
	case errors.Is(err, domain.ErrGatewayUnavailable):
		// Order persisted; redirect view will re-trigger payment.
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(createOrderResponse{Order: res.Order})
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(createOrderResponse{Order: res.Order, RedirectURL: res.RedirectURL})
}

type orderResponse struct {
	Order domain.Order     `json:"order"`
	View  domain.ViewState `json:"view"`
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetOrder")
	defer span.End()

	reference := chi.URLParam(r, "reference")
	o, err := h.orders.Get(ctx, reference)
	if errors.Is(err, domain.ErrNotFound) {
		http.Error(w, "order not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	view := domain.DeriveView(o.PaymentMethod, o.PaymentStatus, o.Status, o.TransactionID != "")
	_ = json.NewEncoder(w).Encode(orderResponse{Order: o, View: view})
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CancelOrder")
	defer span.End()

	reference := chi.URLParam(r, "reference")
	err := h.orders.Cancel(ctx, reference)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "order not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrInvalidTransition):
		http.Error(w, "order can no longer be cancelled", http.StatusConflict)
	case err != nil:
		http.Error(w, "internal error", http.StatusInternalServerError)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handler) reconcilerFor(reference string) Reconciler {
	if strings.HasPrefix(reference, donationRefPrefix) {
		return h.donations
	}
	return h.orders
}

// parseNotification accepts both delivery styles the gateway uses: a JSON
// POST body and a GET with query parameters.
func (h *Handler) parseNotification(r *http.Request) ipnNotification {
	var n ipnNotification
	if r.Method == http.MethodPost {
		if err := json.NewDecoder(r.Body).Decode(&n); err == nil && n.OrderTrackingID != "" {
			return n
		}
	}
	q := r.URL.Query()
	return ipnNotification{
		OrderTrackingID:        q.Get("OrderTrackingId"),
		OrderNotificationType:  q.Get("OrderNotificationType"),
		OrderMerchantReference: q.Get("OrderMerchantReference"),
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
