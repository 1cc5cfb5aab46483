package worker_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/boddenberg/billstats-bfa/internal/domain"
	"github.com/boddenberg/billstats-bfa/internal/infra/cache"
	"github.com/boddenberg/billstats-bfa/internal/infra/observability"
	"github.com/boddenberg/billstats-bfa/internal/infra/sheets"
	"github.com/boddenberg/billstats-bfa/internal/infra/sqlite"
	"github.com/boddenberg/billstats-bfa/internal/service"
	"github.com/boddenberg/billstats-bfa/internal/worker"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var fixedNow = time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC)

func newStatsService(t *testing.T, bills ...domain.Bill) *service.StatsService {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "bills.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	for i := range bills {
		_, err := store.CreateBill(ctx, &bills[i])
		require.NoError(t, err)
	}

	c := cache.New[*domain.Statistics](time.Minute)
	t.Cleanup(c.Close)
	return service.NewStatsService(store, c, observability.NewMetrics(), zap.NewNop(),
		func() time.Time { return fixedNow }, time.UTC)
}

func bill(userID string, typ domain.BillType, amount, category, date string) domain.Bill {
	d, err := domain.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return domain.Bill{UserID: userID, Type: typ, Amount: decimal.RequireFromString(amount), Category: category, Date: d}
}

func event(userID, date string) domain.BillEvent {
	d, _ := domain.ParseDate(date)
	return domain.BillEvent{ID: "evt-1", Type: domain.BillCreated, UserID: userID, BillType: domain.BillTypeExpense, Date: d}
}

func TestStatsSync_ExportsTheEventMonth(t *testing.T) {
	svc := newStatsService(t,
		bill("u1", domain.BillTypeExpense, "40", "food", "2024-01-05"),
		bill("u1", domain.BillTypeExpense, "60", "transport", "2024-01-20"),
		bill("u1", domain.BillTypeIncome, "1000", "salary", "2024-01-31"),
		bill("u1", domain.BillTypeExpense, "5", "food", "2024-02-01"),
		bill("u2", domain.BillTypeExpense, "7", "food", "2024-01-07"),
	)
	exporter := sheets.NewMemory()
	sync := worker.NewStatsSync(svc, exporter, observability.NewMetrics(), zap.NewNop())

	require.NoError(t, sync.Handle(context.Background(), event("u1", "2024-01-20")))

	rows := exporter.Rows()
	require.Len(t, rows, 3)

	// Expenses first, largest amount first.
	assert.Equal(t, "2024-01", rows[0][2])
	assert.Equal(t, "expense", rows[0][3])
	assert.Equal(t, "transport", rows[0][4])
	assert.Equal(t, "60.00", rows[0][6])
	assert.Equal(t, 60.0, rows[0][8])

	assert.Equal(t, "food", rows[1][4])
	assert.Equal(t, "40.00", rows[1][6])

	assert.Equal(t, "income", rows[2][3])
	assert.Equal(t, "1000.00", rows[2][6])
	assert.Equal(t, "u1", rows[2][1])
}

func TestStatsSync_EmptyMonthExportsNothing(t *testing.T) {
	exporter := sheets.NewMemory()
	sync := worker.NewStatsSync(newStatsService(t), exporter, observability.NewMetrics(), zap.NewNop())

	require.NoError(t, sync.Handle(context.Background(), event("u1", "2023-07-01")))
	assert.Empty(t, exporter.Rows())
}

type failingExporter struct{ calls int }

func (f *failingExporter) ExportStatistics(context.Context, string, *domain.Statistics) error {
	f.calls++
	return &domain.ErrExternalService{Service: "sheets", Err: errors.New("quota exceeded")}
}

func TestStatsSync_ExportErrorIsReturnedForRedelivery(t *testing.T) {
	exporter := &failingExporter{}
	sync := worker.NewStatsSync(newStatsService(t), exporter, observability.NewMetrics(), zap.NewNop())

	err := sync.Handle(context.Background(), event("u1", "2024-03-01"))

	var ext *domain.ErrExternalService
	require.ErrorAs(t, err, &ext)
	assert.Equal(t, 1, exporter.calls)
}

type stubStats struct{ err error }

func (s stubStats) MonthStatistics(context.Context, string, int, time.Month) (*domain.Statistics, error) {
	return nil, s.err
}

func TestStatsSync_InvalidMonthIsDropped(t *testing.T) {
	exporter := &failingExporter{}
	sync := worker.NewStatsSync(stubStats{err: &domain.ErrValidation{Field: "year", Message: "out of range"}},
		exporter, observability.NewMetrics(), zap.NewNop())

	assert.NoError(t, sync.Handle(context.Background(), event("u1", "2024-03-01")))
	assert.Zero(t, exporter.calls)
}

func TestStatsSync_StoreErrorIsReturned(t *testing.T) {
	boom := errors.New("connection reset")
	sync := worker.NewStatsSync(stubStats{err: boom}, sheets.NewMemory(), observability.NewMetrics(), zap.NewNop())

	assert.ErrorIs(t, sync.Handle(context.Background(), event("u1", "2024-03-01")), boom)
}
