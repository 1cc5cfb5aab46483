package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/boddenberg/billstats-bfa/internal/domain"
	"github.com/boddenberg/billstats-bfa/internal/infra/cache"
	"github.com/boddenberg/billstats-bfa/internal/infra/observability"
	"github.com/boddenberg/billstats-bfa/internal/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type billFixture struct {
	svc       *service.BillService
	store     *mockBillStore
	cache     *cache.InMemory[*domain.Statistics]
	publisher *mockPublisher
	metrics   *observability.Metrics
}

func newBillFixture(t *testing.T, bills ...domain.Bill) *billFixture {
	t.Helper()
	f := &billFixture{
		store:     newMockBillStore(bills...),
		cache:     cache.New[*domain.Statistics](time.Minute),
		publisher: &mockPublisher{},
		metrics:   observability.NewMetrics(),
	}
	t.Cleanup(f.cache.Close)
	f.svc = service.NewBillService(f.store, f.cache, f.publisher, f.metrics, zap.NewNop(), fixedClock, time.UTC)
	return f
}

func strPtr(s string) *string { return &s }

func TestBillService_CreateDefaultsDateToToday(t *testing.T) {
	f := newBillFixture(t)

	bill, err := f.svc.Create(context.Background(), "u1", &domain.CreateBillRequest{
		Type:        "expense",
		Amount:      "12.30",
		Category:    "food",
		Description: strPtr("  lunch  "),
	})
	require.NoError(t, err)

	assert.Equal(t, "u1", bill.UserID)
	assert.Equal(t, "2024-03-13", bill.Date.String())
	assert.Equal(t, "12.3", bill.Amount.String())
	require.NotNil(t, bill.Description)
	assert.Equal(t, "lunch", *bill.Description)

	require.Len(t, f.publisher.events, 1)
	ev := f.publisher.events[0]
	assert.Equal(t, domain.BillCreated, ev.Type)
	assert.Equal(t, bill.ID, ev.BillID)
	assert.Equal(t, "u1", ev.UserID)
	assert.NotEmpty(t, ev.ID)

	snap := f.metrics.Snapshot()
	assert.Equal(t, int64(1), snap.BillsWritten)
	assert.Equal(t, int64(1), snap.EventsPublished)
}

func TestBillService_CreateUsesTimezoneForToday(t *testing.T) {
	shanghai := time.FixedZone("CST", 8*3600)
	clock := func() time.Time { return time.Date(2024, 3, 13, 20, 0, 0, 0, time.UTC) }
	svc := service.NewBillService(newMockBillStore(), nil, nil, observability.NewMetrics(), zap.NewNop(), clock, shanghai)

	bill, err := svc.Create(context.Background(), "u1", &domain.CreateBillRequest{Type: "income", Amount: "1", Category: "salary"})
	require.NoError(t, err)
	assert.Equal(t, "2024-03-14", bill.Date.String())
}

func TestBillService_CreateValidation(t *testing.T) {
	tests := []struct {
		name  string
		req   domain.CreateBillRequest
		field string
	}{
		{"bad type", domain.CreateBillRequest{Type: "transfer", Amount: "1", Category: "food"}, "type"},
		{"missing amount", domain.CreateBillRequest{Type: "expense", Category: "food"}, "amount"},
		{"non numeric amount", domain.CreateBillRequest{Type: "expense", Amount: "abc", Category: "food"}, "amount"},
		{"zero amount", domain.CreateBillRequest{Type: "expense", Amount: "0", Category: "food"}, "amount"},
		{"negative amount", domain.CreateBillRequest{Type: "expense", Amount: "-5", Category: "food"}, "amount"},
		{"missing category", domain.CreateBillRequest{Type: "expense", Amount: "1"}, "category"},
		{"category of other type", domain.CreateBillRequest{Type: "income", Amount: "1", Category: "food"}, "category"},
		{"bad date", domain.CreateBillRequest{Type: "expense", Amount: "1", Category: "food", Date: "13/03/2024"}, "date"},
		{"long description", domain.CreateBillRequest{Type: "expense", Amount: "1", Category: "food", Description: strPtr(strings.Repeat("饭", 201))}, "description"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newBillFixture(t)
			_, err := f.svc.Create(context.Background(), "u1", &tt.req)

			var v *domain.ErrValidation
			require.ErrorAs(t, err, &v)
			assert.Equal(t, tt.field, v.Field)
			assert.Empty(t, f.publisher.events)
		})
	}
}

func TestBillService_CreateBlankDescriptionBecomesNil(t *testing.T) {
	f := newBillFixture(t)

	bill, err := f.svc.Create(context.Background(), "u1", &domain.CreateBillRequest{
		Type: "expense", Amount: "5", Category: "other", Description: strPtr("   "), Date: "2024-02-29",
	})
	require.NoError(t, err)
	assert.Nil(t, bill.Description)
	assert.Equal(t, "2024-02-29", bill.Date.String())
}

func TestBillService_WriteInvalidatesUserStatistics(t *testing.T) {
	f := newBillFixture(t)
	f.cache.Set("stats:u1:month:2024-03-13", &domain.Statistics{})
	f.cache.Set("stats:u1:week:2024-03-13", &domain.Statistics{})
	f.cache.Set("stats:u2:month:2024-03-13", &domain.Statistics{})

	_, err := f.svc.Create(context.Background(), "u1", &domain.CreateBillRequest{Type: "expense", Amount: "1", Category: "food"})
	require.NoError(t, err)

	_, ok := f.cache.Get("stats:u1:month:2024-03-13")
	assert.False(t, ok)
	_, ok = f.cache.Get("stats:u2:month:2024-03-13")
	assert.True(t, ok)
}

func TestBillService_PublishFailureDoesNotFailWrite(t *testing.T) {
	f := newBillFixture(t)
	f.publisher.err = errBoom

	_, err := f.svc.Create(context.Background(), "u1", &domain.CreateBillRequest{Type: "expense", Amount: "1", Category: "food"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), f.metrics.Snapshot().EventsFailed)
}

func TestBillService_UpdateMergesAndRevalidates(t *testing.T) {
	d := domain.NewDate(2024, time.March, 10)
	f := newBillFixture(t, domain.Bill{ID: "b1", UserID: "u1", Type: domain.BillTypeExpense, Amount: decimal.NewFromInt(10), Category: "food", Date: d})

	updated, err := f.svc.Update(context.Background(), "u1", "b1", &domain.UpdateBillRequest{Amount: strPtr("25.5")})
	require.NoError(t, err)
	assert.Equal(t, "25.5", updated.Amount.String())
	assert.Equal(t, "food", updated.Category)

	_, err = f.svc.Update(context.Background(), "u1", "b1", &domain.UpdateBillRequest{Type: strPtr("income")})
	var v *domain.ErrValidation
	require.ErrorAs(t, err, &v)
	assert.Equal(t, "category", v.Field)

	_, err = f.svc.Update(context.Background(), "u2", "b1", &domain.UpdateBillRequest{Amount: strPtr("1")})
	var nf *domain.ErrNotFound
	assert.ErrorAs(t, err, &nf)
}

func TestBillService_UpdateAcrossMonthsAnnouncesBothMonths(t *testing.T) {
	f := newBillFixture(t, domain.Bill{
		ID: "b1", UserID: "u1", Type: domain.BillTypeExpense, Amount: decimal.NewFromInt(10),
		Category: "food", Date: domain.NewDate(2024, time.February, 28),
	})

	_, err := f.svc.Update(context.Background(), "u1", "b1", &domain.UpdateBillRequest{Date: strPtr("2024-03-01")})
	require.NoError(t, err)

	require.Len(t, f.publisher.events, 2)
	assert.Equal(t, "2024-03-01", f.publisher.events[0].Date.String())
	assert.Equal(t, "2024-02-28", f.publisher.events[1].Date.String())
}

func TestBillService_Delete(t *testing.T) {
	f := newBillFixture(t, domain.Bill{ID: "b1", UserID: "u1", Type: domain.BillTypeIncome, Amount: decimal.NewFromInt(1), Category: "gift", Date: domain.NewDate(2024, 3, 1)})

	var nf *domain.ErrNotFound
	assert.ErrorAs(t, f.svc.Delete(context.Background(), "u2", "b1"), &nf)

	require.NoError(t, f.svc.Delete(context.Background(), "u1", "b1"))
	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, domain.BillDeleted, f.publisher.events[0].Type)
	assert.Equal(t, domain.BillTypeIncome, f.publisher.events[0].BillType)

	_, err := f.svc.Get(context.Background(), "u1", "b1")
	assert.ErrorAs(t, err, &nf)
}

func TestBillService_ListMonth(t *testing.T) {
	f := newBillFixture(t,
		domain.Bill{UserID: "u1", Type: domain.BillTypeExpense, Amount: decimal.RequireFromString("30.10"), Category: "food", Date: domain.NewDate(2024, 2, 1)},
		domain.Bill{UserID: "u1", Type: domain.BillTypeIncome, Amount: decimal.RequireFromString("100"), Category: "salary", Date: domain.NewDate(2024, 2, 29)},
		domain.Bill{UserID: "u1", Type: domain.BillTypeExpense, Amount: decimal.RequireFromString("5"), Category: "food", Date: domain.NewDate(2024, 3, 1)},
		domain.Bill{UserID: "u2", Type: domain.BillTypeExpense, Amount: decimal.RequireFromString("7"), Category: "food", Date: domain.NewDate(2024, 2, 10)},
	)

	got, err := f.svc.ListMonth(context.Background(), "u1", 2024, 2)
	require.NoError(t, err)

	assert.Equal(t, "2024-02-29", got.Range.End.String())
	require.Len(t, got.Bills, 2)
	assert.Equal(t, "2024-02-29", got.Bills[0].Date.String())
	assert.Equal(t, "100.00", got.TotalIncome.StringFixed(2))
	assert.Equal(t, "30.10", got.TotalExpense.StringFixed(2))
	assert.Equal(t, "69.90", got.Balance.StringFixed(2))
}

func TestBillService_ListMonthValidation(t *testing.T) {
	f := newBillFixture(t)
	var v *domain.ErrValidation

	_, err := f.svc.ListMonth(context.Background(), "u1", 2024, 13)
	require.ErrorAs(t, err, &v)
	assert.Equal(t, "month", v.Field)

	_, err = f.svc.ListMonth(context.Background(), "u1", 1969, 1)
	require.ErrorAs(t, err, &v)
	assert.Equal(t, "year", v.Field)
}

func TestBillService_ListRejectsInvertedRange(t *testing.T) {
	f := newBillFixture(t)

	_, err := f.svc.List(context.Background(), "u1", domain.BillFilter{
		From: domain.NewDate(2024, 3, 10),
		To:   domain.NewDate(2024, 3, 1),
	})
	var v *domain.ErrValidation
	assert.ErrorAs(t, err, &v)
}
