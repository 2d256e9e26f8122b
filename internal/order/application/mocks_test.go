package application

import (
	"context"
	"sync"
	"time"

	"github.com/zawadicraft/storefront/internal/order/domain"
)

// mockRepo is an in-memory OrderRepository that applies mutations the way
// the postgres implementation would, so chained reconcile calls observe
// each other's writes.
type mockRepo struct {
	mu     sync.Mutex
	orders map[string]*domain.Order

	applyCalls   int
	claimCalls   int
	decremented  [][]domain.OrderItem
	queuedEvents []string
	escalations  []string
	deleted      []string
	staleRefs    []string
	stuckRefs    []string

	applyErr     error
	claimErr     error
	decrementErr error
}

func newMockRepo(orders ...domain.Order) *mockRepo {
	m := &mockRepo{orders: make(map[string]*domain.Order)}
	for _, o := range orders {
		oo := o
		m.orders[o.Reference] = &oo
	}
	return m
}

func (m *mockRepo) GetByReference(_ context.Context, reference string) (domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[reference]
	if !ok {
		return domain.Order{}, domain.ErrNotFound
	}
	return *o, nil
}

func (m *mockRepo) CreateWithItems(_ context.Context, o domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	oo := o
	m.orders[o.Reference] = &oo
	return nil
}

func (m *mockRepo) ApplyPaymentResult(_ context.Context, reference string, res domain.PaymentResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applyCalls++
	if m.applyErr != nil {
		return m.applyErr
	}
	o, ok := m.orders[reference]
	if !ok {
		return domain.ErrNotFound
	}
	o.PaymentStatus = res.Outcome.PaymentStatus()
	o.TransactionID = res.TransactionID
	o.ConfirmationCode = res.ConfirmationCode
	o.PaidAt = res.PaidAt
	return nil
}

func (m *mockRepo) ClaimStockAndQueue(_ context.Context, reference, eventType string, _ []byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.claimCalls++
	if m.claimErr != nil {
		return false, m.claimErr
	}
	o, ok := m.orders[reference]
	if !ok || o.StockUpdated {
		return false, nil
	}
	o.StockUpdated = true
	m.queuedEvents = append(m.queuedEvents, eventType)
	return true, nil
}

func (m *mockRepo) DecrementStock(_ context.Context, items []domain.OrderItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.decrementErr != nil {
		return m.decrementErr
	}
	m.decremented = append(m.decremented, items)
	return nil
}

func (m *mockRepo) EscalateStatus(_ context.Context, reference string, from, to domain.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[reference]
	if !ok || o.Status != from {
		return domain.ErrInvalidTransition
	}
	o.Status = to
	m.escalations = append(m.escalations, reference)
	return nil
}

func (m *mockRepo) DeletePending(_ context.Context, reference string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[reference]
	if !ok || o.Status != domain.StatusPending {
		return false, nil
	}
	delete(m.orders, reference)
	m.deleted = append(m.deleted, reference)
	return true, nil
}

func (m *mockRepo) StalePendingByCart(_ context.Context, _, _ string) ([]string, error) {
	return m.staleRefs, nil
}

func (m *mockRepo) PaidStuckPending(_ context.Context, _ time.Duration, _ int) ([]string, error) {
	return m.stuckRefs, nil
}

func (m *mockRepo) PurgeAbandoned(_ context.Context, _ time.Duration) (int64, error) {
	return 0, nil
}

type mockGateway struct {
	mu          sync.Mutex
	statusCalls int
	submitCalls int

	status    TransactionStatus
	statusErr error

	redirectURL string
	submitErr   error
}

func (m *mockGateway) SubmitOrder(_ context.Context, _ domain.Order) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submitCalls++
	return m.redirectURL, m.submitErr
}

func (m *mockGateway) GetTransactionStatus(_ context.Context, _ string) (TransactionStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statusCalls++
	return m.status, m.statusErr
}
