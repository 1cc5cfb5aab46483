package service_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/boddenberg/billstats-bfa/internal/domain"
)

// --- Mocks ---

type mockBillStore struct {
	mu        sync.Mutex
	bills     map[string]domain.Bill
	seq       int
	listCalls int
	listErr   error
}

func newMockBillStore(bills ...domain.Bill) *mockBillStore {
	m := &mockBillStore{bills: make(map[string]domain.Bill)}
	for _, b := range bills {
		m.put(b)
	}
	return m
}

func (m *mockBillStore) put(b domain.Bill) domain.Bill {
	m.seq++
	if b.ID == "" {
		b.ID = fmt.Sprintf("b%d", m.seq)
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Date(2024, 1, 1, 0, 0, m.seq, 0, time.UTC)
	}
	m.bills[b.ID] = b
	return b
}

func (m *mockBillStore) CreateBill(_ context.Context, bill *domain.Bill) (*domain.Bill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.put(*bill)
	return &b, nil
}

func (m *mockBillStore) GetBill(_ context.Context, userID, billID string) (*domain.Bill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bills[billID]
	if !ok || b.UserID != userID {
		return nil, &domain.ErrNotFound{Resource: "bill", ID: billID}
	}
	return &b, nil
}

func (m *mockBillStore) UpdateBill(_ context.Context, bill *domain.Bill) (*domain.Bill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.bills[bill.ID]
	if !ok || old.UserID != bill.UserID {
		return nil, &domain.ErrNotFound{Resource: "bill", ID: bill.ID}
	}
	m.bills[bill.ID] = *bill
	b := *bill
	return &b, nil
}

func (m *mockBillStore) DeleteBill(_ context.Context, userID, billID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bills[billID]
	if !ok || b.UserID != userID {
		return &domain.ErrNotFound{Resource: "bill", ID: billID}
	}
	delete(m.bills, billID)
	return nil
}

func (m *mockBillStore) ListBills(_ context.Context, userID string, f domain.BillFilter) ([]domain.Bill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}

	var out []domain.Bill
	for _, b := range m.bills {
		switch {
		case b.UserID != userID,
			!f.From.IsZero() && b.Date.Before(f.From),
			!f.To.IsZero() && b.Date.After(f.To),
			f.Type != "" && b.Type != f.Type,
			f.Category != "" && b.Category != f.Category:
			continue
		}
		out = append(out, b)
	}
	slices.SortFunc(out, func(a, b domain.Bill) int {
		if c := b.Date.Compare(a.Date); c != 0 {
			return c
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

type mockPublisher struct {
	mu     sync.Mutex
	events []domain.BillEvent
	err    error
}

func (m *mockPublisher) PublishBillEvent(_ context.Context, e domain.BillEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, e)
	return nil
}

type mockProfileStore struct {
	profile *domain.Profile
	err     error
	updated string
}

func (m *mockProfileStore) GetProfile(_ context.Context, userID string) (*domain.Profile, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.profile, nil
}

func (m *mockProfileStore) UpdateUsername(_ context.Context, userID, username string) (*domain.Profile, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.updated = username
	return &domain.Profile{UserID: userID, Username: username}, nil
}

var errBoom = errors.New("boom")

// fixedClock pins "now" to 2024-03-13 12:00 UTC, a Wednesday.
func fixedClock() time.Time {
	return time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC)
}

// pausingBillStore holds its first ListBills result until release is closed,
// after the rows were already read.
type pausingBillStore struct {
	*mockBillStore
	once    sync.Once
	paused  chan struct{}
	release chan struct{}
}

func newPausingBillStore(inner *mockBillStore) *pausingBillStore {
	return &pausingBillStore{mockBillStore: inner, paused: make(chan struct{}), release: make(chan struct{})}
}

func (p *pausingBillStore) ListBills(ctx context.Context, userID string, f domain.BillFilter) ([]domain.Bill, error) {
	bills, err := p.mockBillStore.ListBills(ctx, userID, f)
	p.once.Do(func() {
		close(p.paused)
		<-p.release
	})
	return bills, err
}
