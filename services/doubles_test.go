package services

import (
	"context"
	"sync"
	"time"

	"ec-payment/models"
	"ec-payment/payments"

	"github.com/google/uuid"
)

// memStore is the in-memory Persistence Store double. It copies records on
// the way in and out and enforces the same version CAS as the real
// repository, so the engine's retry loop is exercised for real under
// concurrent access.
type memStore struct {
	mu             sync.Mutex
	payments       map[uuid.UUID]*models.Payment
	orders         map[string]*models.Order
	inserts        int
	insertErr      error
	alwaysConflict bool
}

func newMemStore() *memStore {
	return &memStore{
		payments: make(map[uuid.UUID]*models.Payment),
		orders:   make(map[string]*models.Order),
	}
}

func (m *memStore) seed(p models.Payment) models.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Version == 0 {
		p.Version = 1
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().Add(-time.Minute)
		p.UpdatedAt = p.CreatedAt
	}
	cp := p
	m.payments[cp.ID] = &cp
	return cp
}

func (m *memStore) seedOrder(o models.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := o
	m.orders[cp.ID] = &cp
}

func (m *memStore) get(id uuid.UUID) models.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.payments[id]
}

func (m *memStore) GetByOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var latest *models.Payment
	for _, p := range m.payments {
		if p.OrderID == orderID && (latest == nil || p.CreatedAt.After(latest.CreatedAt)) {
			latest = p
		}
	}
	if latest == nil {
		return nil, ErrPaymentNotFound
	}
	cp := *latest
	return &cp, nil
}

func (m *memStore) Insert(ctx context.Context, payment *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.insertErr != nil {
		return m.insertErr
	}
	for _, existing := range m.payments {
		if existing.OrderID == payment.OrderID && !existing.Status.IsTerminal() {
			return ErrDuplicatePayment
		}
	}

	cp := *payment
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
		cp.UpdatedAt = cp.CreatedAt
	}
	m.payments[cp.ID] = &cp
	m.inserts++
	return nil
}

func (m *memStore) UpdateIfVersion(ctx context.Context, payment *models.Payment, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.alwaysConflict {
		return ErrVersionConflict
	}

	stored, ok := m.payments[payment.ID]
	if !ok {
		return ErrPaymentNotFound
	}
	if stored.Version != expectedVersion {
		return ErrVersionConflict
	}

	cp := *payment
	cp.Version = expectedVersion + 1
	cp.UpdatedAt = time.Now()
	m.payments[cp.ID] = &cp

	// Same contract as the real repository: the caller gets the row as
	// stored, not a client-side approximation.
	*payment = cp
	return nil
}

func (m *memStore) FindStalePending(ctx context.Context, olderThan time.Time, limit int) ([]models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var stale []models.Payment
	for _, p := range m.payments {
		if p.Status == models.PaymentStatusPending && p.CreatedAt.Before(olderThan) {
			stale = append(stale, *p)
			if len(stale) == limit {
				break
			}
		}
	}
	return stale, nil
}

func (m *memStore) GetOrderByID(ctx context.Context, orderID string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	cp := *order
	return &cp, nil
}

type fakeProvider struct {
	mu          sync.Mutex
	createResp  *payments.CreateTransactionResponse
	createErr   error
	createCalls int
	statusResp  *payments.TransactionStatus
	statusErr   error
	statusCalls int
}

func (f *fakeProvider) CreateTransaction(ctx context.Context, req payments.CreateTransactionRequest) (*payments.CreateTransactionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.createResp, nil
}

func (f *fakeProvider) QueryStatus(ctx context.Context, orderID string) (*payments.TransactionStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return f.statusResp, nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	notified []models.Payment
}

func (f *fakeNotifier) PaymentStatusChanged(payment *models.Payment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notified = append(f.notified, *payment)
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.notified)
}
