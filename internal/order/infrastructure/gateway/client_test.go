package gateway

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/zawadicraft/storefront/internal/order/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(slog.New(slog.NewTextHandler(io.Discard, nil)), Config{
		BaseURL:     srv.URL,
		Token:       "test-token",
		CallbackURL: "http://localhost/payments/callback",
		IPNID:       "ipn-1",
		Currency:    "KES",
	})
}

func TestClient_GetTransactionStatus(t *testing.T) {
	t.Run("Given a completed transaction Then fields parsed", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
				t.Errorf("auth header = %q", got)
			}
			if got := r.URL.Query().Get("orderTrackingId"); got != "track-1" {
				t.Errorf("tracking id = %q", got)
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"payment_status_description": "Completed",
				"confirmation_code": "AB12CD",
				"payment_method": "MpesaKE",
				"amount": 55.00
			}`))
		})

		ts, err := c.GetTransactionStatus(context.Background(), "track-1")
		if err != nil {
			t.Fatalf("GetTransactionStatus failed: %v", err)
		}
		if ts.StatusDescription != "Completed" || ts.ConfirmationCode != "AB12CD" {
			t.Errorf("unexpected status %+v", ts)
		}
		if ts.AmountCents != 5500 {
			t.Errorf("amount = %d cents, want 5500", ts.AmountCents)
		}
	})

	t.Run("Given a non-200 response Then transient gateway error", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})
		_, err := c.GetTransactionStatus(context.Background(), "track-1")
		if !errors.Is(err, domain.ErrGatewayUnavailable) {
			t.Fatalf("err = %v, want ErrGatewayUnavailable", err)
		}
	})

	t.Run("Given a garbage body Then transient gateway error", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("<html>maintenance</html>"))
		})
		_, err := c.GetTransactionStatus(context.Background(), "track-1")
		if !errors.Is(err, domain.ErrGatewayUnavailable) {
			t.Fatalf("err = %v, want ErrGatewayUnavailable", err)
		}
	})
}

func TestClient_SubmitOrder(t *testing.T) {
	t.Run("Given a registered order Then redirect url returned", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("method = %s", r.Method)
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"order_tracking_id":"track-9","redirect_url":"https://pay.example/iframe/track-9","status":"200"}`))
		})

		o := domain.NewOrder("user-1", "", domain.MethodGateway, []domain.OrderItem{
			{ProductID: "p1", Quantity: 1, UnitPriceCents: 5500},
		})
		url, err := c.SubmitOrder(context.Background(), o)
		if err != nil {
			t.Fatalf("SubmitOrder failed: %v", err)
		}
		if url != "https://pay.example/iframe/track-9" {
			t.Errorf("redirect = %q", url)
		}
	})

	t.Run("Given an empty redirect Then treated as gateway failure", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"order_tracking_id":"","redirect_url":""}`))
		})
		o := domain.NewOrder("user-1", "", domain.MethodGateway, nil)
		if _, err := c.SubmitOrder(context.Background(), o); !errors.Is(err, domain.ErrGatewayUnavailable) {
			t.Fatalf("err = %v, want ErrGatewayUnavailable", err)
		}
	})
}
