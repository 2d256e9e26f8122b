package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zawadicraft/storefront/internal/order/application"
	"github.com/zawadicraft/storefront/internal/order/domain"
	"github.com/zawadicraft/storefront/pkg/idempotency"
)

type stubRepo struct {
	orders map[string]*domain.Order
}

func (s *stubRepo) GetByReference(_ context.Context, ref string) (domain.Order, error) {
	o, ok := s.orders[ref]
	if !ok {
		return domain.Order{}, domain.ErrNotFound
	}
	return *o, nil
}

func (s *stubRepo) CreateWithItems(_ context.Context, o domain.Order) error {
	s.orders[o.Reference] = &o
	return nil
}

func (s *stubRepo) ApplyPaymentResult(_ context.Context, ref string, res domain.PaymentResult) error {
	o := s.orders[ref]
	o.PaymentStatus = res.Outcome.PaymentStatus()
	o.TransactionID = res.TransactionID
	o.ConfirmationCode = res.ConfirmationCode
	o.PaidAt = res.PaidAt
	return nil
}

func (s *stubRepo) ClaimStockAndQueue(_ context.Context, ref, _ string, _ []byte) (bool, error) {
	o := s.orders[ref]
	if o.StockUpdated {
		return false, nil
	}
	o.StockUpdated = true
	return true, nil
}

func (s *stubRepo) DecrementStock(context.Context, []domain.OrderItem) error { return nil }

func (s *stubRepo) EscalateStatus(_ context.Context, ref string, from, to domain.Status) error {
	o, ok := s.orders[ref]
	if !ok || o.Status != from {
		return domain.ErrInvalidTransition
	}
	o.Status = to
	return nil
}

func (s *stubRepo) DeletePending(_ context.Context, ref string) (bool, error) {
	o, ok := s.orders[ref]
	if !ok || o.Status != domain.StatusPending {
		return false, nil
	}
	delete(s.orders, ref)
	return true, nil
}

func (s *stubRepo) StalePendingByCart(context.Context, string, string) ([]string, error) {
	return nil, nil
}

func (s *stubRepo) PaidStuckPending(context.Context, time.Duration, int) ([]string, error) {
	return nil, nil
}

func (s *stubRepo) PurgeAbandoned(context.Context, time.Duration) (int64, error) { return 0, nil }

type stubGateway struct {
	status application.TransactionStatus
	err    error
}

func (s *stubGateway) SubmitOrder(context.Context, domain.Order) (string, error) {
	return "https://pay.example/redirect", nil
}

func (s *stubGateway) GetTransactionStatus(context.Context, string) (application.TransactionStatus, error) {
	return s.status, s.err
}

type stubReconciler struct{}

func (stubReconciler) Reconcile(context.Context, string, string) (application.ReconcileResult, error) {
	return application.ReconcileResult{}, domain.ErrNotFound
}

func newTestHandler(t *testing.T, repo *stubRepo, gw *stubGateway) http.Handler {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	orders := application.NewService(log, repo, gw)
	// Unreachable redis: the guard degrades to pass-through, which is what
	// a unit test wants.
	idem := idempotency.NewStore(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}), time.Minute)
	return NewHandler(log, orders, stubReconciler{}, idem).Routes()
}

func seededRepo(ref string) *stubRepo {
	o := domain.NewOrder("user-1", "cart-1", domain.MethodGateway, []domain.OrderItem{
		{ProductID: "p1", Quantity: 1, UnitPriceCents: 1000},
	})
	o.Reference = ref
	return &stubRepo{orders: map[string]*domain.Order{ref: &o}}
}

func TestHandleIPN(t *testing.T) {
	t.Run("Given a valid notification Then echo with status 200", func(t *testing.T) {
		h := newTestHandler(t, seededRepo("ORD-1"),
			&stubGateway{status: application.TransactionStatus{StatusDescription: "Completed", ConfirmationCode: "C1"}})

		body := `{"OrderTrackingId":"track-1","OrderNotificationType":"IPNCHANGE","OrderMerchantReference":"ORD-1"}`
		req := httptest.NewRequest(http.MethodPost, "/payments/ipn", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("http status = %d", rec.Code)
		}
		var resp map[string]any
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("bad echo body: %v", err)
		}
		if resp["orderTrackingId"] != "track-1" ||
			resp["orderNotificationType"] != "IPNCHANGE" ||
			resp["orderMerchantReference"] != "ORD-1" {
			t.Errorf("echo fields wrong: %v", resp)
		}
		if resp["status"] != float64(200) {
			t.Errorf("body status = %v, want 200", resp["status"])
		}
	})

	t.Run("Given an unknown reference Then echo carries status 500", func(t *testing.T) {
		h := newTestHandler(t, &stubRepo{orders: map[string]*domain.Order{}}, &stubGateway{})

		body := `{"OrderTrackingId":"track-1","OrderNotificationType":"IPNCHANGE","OrderMerchantReference":"ORD-none"}`
		req := httptest.NewRequest(http.MethodPost, "/payments/ipn", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		// HTTP status stays 200-shaped; the body status field is what the
		// gateway inspects.
		if rec.Code != http.StatusOK {
			t.Fatalf("http status = %d", rec.Code)
		}
		var resp map[string]any
		_ = json.Unmarshal(rec.Body.Bytes(), &resp)
		if resp["status"] != float64(500) {
			t.Errorf("body status = %v, want 500", resp["status"])
		}
	})

	t.Run("Given query-style delivery Then notification still parsed", func(t *testing.T) {
		h := newTestHandler(t, seededRepo("ORD-1"),
			&stubGateway{status: application.TransactionStatus{StatusDescription: "Completed"}})

		req := httptest.NewRequest(http.MethodGet,
			"/payments/ipn?OrderTrackingId=track-1&OrderNotificationType=IPNCHANGE&OrderMerchantReference=ORD-1", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		var resp map[string]any
		_ = json.Unmarshal(rec.Body.Bytes(), &resp)
		if resp["status"] != float64(200) {
			t.Errorf("body status = %v, want 200", resp["status"])
		}
	})

	t.Run("Given gateway down Then status 500 so the gateway redelivers", func(t *testing.T) {
		h := newTestHandler(t, seededRepo("ORD-1"), &stubGateway{err: domain.ErrGatewayUnavailable})

		body := `{"OrderTrackingId":"track-1","OrderNotificationType":"IPNCHANGE","OrderMerchantReference":"ORD-1"}`
		req := httptest.NewRequest(http.MethodPost, "/payments/ipn", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		var resp map[string]any
		_ = json.Unmarshal(rec.Body.Bytes(), &resp)
		if resp["status"] != float64(500) {
			t.Errorf("body status = %v, want 500", resp["status"])
		}
	})
}

func TestHandleCallback(t *testing.T) {
	t.Run("Given payment completed Then browser lands on order detail", func(t *testing.T) {
		repo := seededRepo("ORD-1")
		h := newTestHandler(t, repo,
			&stubGateway{status: application.TransactionStatus{StatusDescription: "Completed", ConfirmationCode: "C1"}})

		req := httptest.NewRequest(http.MethodGet,
			"/payments/callback?OrderTrackingId=track-1&OrderMerchantReference=ORD-1", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusSeeOther {
			t.Fatalf("http status = %d, want redirect", rec.Code)
		}
		if loc := rec.Header().Get("Location"); loc != "/orders/ORD-1" {
			t.Errorf("redirect = %q, want /orders/ORD-1", loc)
		}
		// Callback channel escalates the paid order.
		if got := repo.orders["ORD-1"].Status; got != domain.StatusConfirmed {
			t.Errorf("status = %q, want confirmed", got)
		}
	})

	t.Run("Given payment failed Then browser lands on failure page", func(t *testing.T) {
		h := newTestHandler(t, seededRepo("ORD-1"),
			&stubGateway{status: application.TransactionStatus{StatusDescription: "Failed"}})

		req := httptest.NewRequest(http.MethodGet,
			"/payments/callback?OrderTrackingId=track-1&OrderMerchantReference=ORD-1", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if loc := rec.Header().Get("Location"); !strings.HasPrefix(loc, "/checkout/failed") {
			t.Errorf("redirect = %q, want failure page", loc)
		}
	})

	t.Run("Given unknown reference Then generic not-found page, no internals leaked", func(t *testing.T) {
		h := newTestHandler(t, &stubRepo{orders: map[string]*domain.Order{}}, &stubGateway{})

		req := httptest.NewRequest(http.MethodGet,
			"/payments/callback?OrderTrackingId=track-1&OrderMerchantReference=ORD-x", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if loc := rec.Header().Get("Location"); loc != "/orders/not-found" {
			t.Errorf("redirect = %q, want /orders/not-found", loc)
		}
	})

	t.Run("Given gateway unreachable Then degraded to unverified page", func(t *testing.T) {
		h := newTestHandler(t, seededRepo("ORD-1"), &stubGateway{err: domain.ErrGatewayUnavailable})

		req := httptest.NewRequest(http.MethodGet,
			"/payments/callback?OrderTrackingId=track-1&OrderMerchantReference=ORD-1", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if loc := rec.Header().Get("Location"); loc != pathPaymentUnverified {
			t.Errorf("redirect = %q, want %q", loc, pathPaymentUnverified)
		}
	})
}

func TestGetOrder_View(t *testing.T) {
	repo := seededRepo("ORD-1")
	h := newTestHandler(t, repo, &stubGateway{})

	req := httptest.NewRequest(http.MethodGet, "/orders/ORD-1", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("http status = %d", rec.Code)
	}
	var resp struct {
		View struct {
			View string `json:"View"`
		} `json:"view"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if resp.View.View != string(domain.ViewPaymentRedirect) {
		t.Errorf("view = %q, want payment-redirect for a fresh gateway order", resp.View.View)
	}
}

func TestCancelOrder(t *testing.T) {
	t.Run("Given pending order Then 204", func(t *testing.T) {
		h := newTestHandler(t, seededRepo("ORD-1"), &stubGateway{})
		req := httptest.NewRequest(http.MethodDelete, "/orders/ORD-1", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Errorf("status = %d, want 204", rec.Code)
		}
	})

	t.Run("Given confirmed order Then 409", func(t *testing.T) {
		repo := seededRepo("ORD-1")
		repo.orders["ORD-1"].Status = domain.StatusConfirmed
		h := newTestHandler(t, repo, &stubGateway{})
		req := httptest.NewRequest(http.MethodDelete, "/orders/ORD-1", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusConflict {
			t.Errorf("status = %d, want 409", rec.Code)
		}
	})
}
