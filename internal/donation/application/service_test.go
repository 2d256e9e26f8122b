package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/zawadicraft/storefront/internal/donation/domain"
	orderapp "github.com/zawadicraft/storefront/internal/order/application"
	orderdomain "github.com/zawadicraft/storefront/internal/order/domain"
)

type mockDonationRepo struct {
	mu        sync.Mutex
	donations map[string]*domain.Donation
	queued    []string
}

func newMockDonationRepo(donations ...domain.Donation) *mockDonationRepo {
	m := &mockDonationRepo{donations: make(map[string]*domain.Donation)}
	for _, d := range donations {
		dd := d
		m.donations[d.Reference] = &dd
	}
	return m
}

func (m *mockDonationRepo) GetByReference(_ context.Context, reference string) (domain.Donation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.donations[reference]
	if !ok {
		return domain.Donation{}, orderdomain.ErrNotFound
	}
	return *d, nil
}

func (m *mockDonationRepo) Create(_ context.Context, d domain.Donation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	dd := d
	m.donations[d.Reference] = &dd
	return nil
}

func (m *mockDonationRepo) ApplyPaymentResult(_ context.Context, reference string, res orderdomain.PaymentResult, status domain.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.donations[reference]
	if !ok {
		return orderdomain.ErrNotFound
	}
	d.PaymentStatus = res.Outcome.PaymentStatus()
	d.Status = status
	d.TransactionID = res.TransactionID
	d.ConfirmationCode = res.ConfirmationCode
	d.PaidAt = res.PaidAt
	return nil
}

func (m *mockDonationRepo) ClaimReceiptAndQueue(_ context.Context, reference, eventType string, _ []byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.donations[reference]
	if !ok || d.ReceiptSent {
		return false, nil
	}
	d.ReceiptSent = true
	m.queued = append(m.queued, eventType)
	return true, nil
}

type mockDonationGateway struct {
	status      orderapp.TransactionStatus
	statusErr   error
	redirectURL string
}

func (m *mockDonationGateway) SubmitDonation(_ context.Context, _ domain.Donation) (string, error) {
	return m.redirectURL, nil
}

func (m *mockDonationGateway) GetTransactionStatus(_ context.Context, _ string) (orderapp.TransactionStatus, error) {
	return m.status, m.statusErr
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestService_Reconcile(t *testing.T) {
	ctx := context.Background()

	t.Run("Given gateway reports Completed Then donation completes and one receipt queues", func(t *testing.T) {
		d := domain.NewDonation("Asha", "asha@example.org", "keep going", 5000)
		repo := newMockDonationRepo(d)
		gw := &mockDonationGateway{status: orderapp.TransactionStatus{StatusDescription: "Completed", ConfirmationCode: "C1"}}
		svc := NewService(testLogger(), repo, gw)

		if _, err := svc.Reconcile(ctx, "track-1", d.Reference); err != nil {
			t.Fatalf("Reconcile failed: %v", err)
		}
		// Second delivery from the other channel.
		res, err := svc.Reconcile(ctx, "track-1", d.Reference)
		if err != nil {
			t.Fatalf("second reconcile failed: %v", err)
		}
		if !res.Duplicate {
			t.Error("second reconcile not a duplicate")
		}

		got, _ := repo.GetByReference(ctx, d.Reference)
		if got.Status != domain.StatusCompleted || got.PaymentStatus != orderdomain.PaymentPaid {
			t.Errorf("unexpected state %+v", got)
		}
		if got.PaidAt == nil {
			t.Error("paidAt not set")
		}
		if len(repo.queued) != 1 {
			t.Errorf("receipt queued %d times, want exactly 1", len(repo.queued))
		}
	})

	t.Run("Given gateway reports Reversed Then donation fails closed", func(t *testing.T) {
		d := domain.NewDonation("Asha", "asha@example.org", "", 5000)
		repo := newMockDonationRepo(d)
		gw := &mockDonationGateway{status: orderapp.TransactionStatus{StatusDescription: "Reversed"}}
		svc := NewService(testLogger(), repo, gw)

		if _, err := svc.Reconcile(ctx, "track-1", d.Reference); err != nil {
			t.Fatal(err)
		}
		got, _ := repo.GetByReference(ctx, d.Reference)
		if got.Status != domain.StatusFailed {
			t.Errorf("status = %q, want failed", got.Status)
		}
		if len(repo.queued) != 0 {
			t.Error("receipt queued for a reversed donation")
		}
	})

	t.Run("Given unknown reference Then NotFound", func(t *testing.T) {
		svc := NewService(testLogger(), newMockDonationRepo(), &mockDonationGateway{})
		if _, err := svc.Reconcile(ctx, "track-1", "DON-missing"); !errors.Is(err, orderdomain.ErrNotFound) {
			t.Fatalf("err = %v, want ErrNotFound", err)
		}
	})
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("Given valid donation Then persisted pending with redirect", func(t *testing.T) {
		repo := newMockDonationRepo()
		svc := NewService(testLogger(), repo, &mockDonationGateway{redirectURL: "https://pay.example/d"})

		res, err := svc.Create(ctx, "Asha", "asha@example.org", "", 5000)
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if res.RedirectURL == "" {
			t.Error("no redirect URL")
		}
		got, err := repo.GetByReference(ctx, res.Donation.Reference)
		if err != nil {
			t.Fatalf("donation not persisted: %v", err)
		}
		if got.Status != domain.StatusPending {
			t.Errorf("status = %q, want pending", got.Status)
		}
	})

	t.Run("Given non-positive amount Then rejected", func(t *testing.T) {
		svc := NewService(testLogger(), newMockDonationRepo(), &mockDonationGateway{})
		if _, err := svc.Create(ctx, "A", "a@example.org", "", 0); err == nil {
			t.Fatal("zero amount accepted")
		}
	})
}
