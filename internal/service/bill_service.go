// Package service provides the business logic layer (use cases).
// BillService records bills, StatsService aggregates them and
// ProfileService edits the user's display name.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/boddenberg/billstats-bfa/internal/domain"
	"github.com/boddenberg/billstats-bfa/internal/infra/observability"
	"github.com/boddenberg/billstats-bfa/internal/port"
	"github.com/boddenberg/billstats-bfa/internal/stats"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var billTracer = otel.Tracer("service/bills")

const (
	maxDescriptionLen = 200
	minYear           = 1970
	maxYear           = 9999
)

// Clock returns the current instant. Services take one so tests can pin "today".
type Clock func() time.Time

// BillService validates and stores bills, then tells the rest of the
// system about the change.
type BillService struct {
	store     port.BillStore
	cache     port.Cache[*domain.Statistics]
	publisher port.EventPublisher
	metrics   *observability.Metrics
	logger    *zap.Logger
	clock     Clock
	loc       *time.Location
}

// NewBillService wires the bill use cases. publisher may be nil.
func NewBillService(
	store port.BillStore,
	cache port.Cache[*domain.Statistics],
	publisher port.EventPublisher,
	metrics *observability.Metrics,
	logger *zap.Logger,
	clock Clock,
	loc *time.Location,
) *BillService {
	if clock == nil {
		clock = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	return &BillService{
		store:     store,
		cache:     cache,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		clock:     clock,
		loc:       loc,
	}
}

// Today is the current calendar date in the configured timezone.
func (s *BillService) Today() domain.Date {
	return domain.DateOf(s.clock().In(s.loc))
}

// ============================================================
// Commands
// ============================================================

func (s *BillService) Create(ctx context.Context, userID string, req *domain.CreateBillRequest) (*domain.Bill, error) {
	ctx, span := billTracer.Start(ctx, "BillService.Create")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	bill := &domain.Bill{UserID: userID, Date: s.Today()}

	typ, err := domain.ParseBillType(req.Type)
	if err != nil {
		return nil, &domain.ErrValidation{Field: "type", Message: "must be income or expense"}
	}
	bill.Type = typ

	if bill.Amount, err = parseAmount(req.Amount); err != nil {
		return nil, err
	}
	bill.Category = strings.TrimSpace(req.Category)
	if bill.Description, err = normalizeDescription(req.Description); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Date) != "" {
		if bill.Date, err = parseBillDate(req.Date); err != nil {
			return nil, err
		}
	}
	if err := validateCategory(bill.Type, bill.Category); err != nil {
		return nil, err
	}

	created, err := s.store.CreateBill(ctx, bill)
	if err != nil {
		s.logger.Error("create bill failed", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("create bill: %w", err)
	}

	s.afterWrite(ctx, domain.BillCreated, created)
	return created, nil
}

// Update applies the non-nil fields of req and re-validates the result.
func (s *BillService) Update(ctx context.Context, userID, billID string, req *domain.UpdateBillRequest) (*domain.Bill, error) {
	ctx, span := billTracer.Start(ctx, "BillService.Update")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID), attribute.String("bill.id", billID))

	bill, err := s.store.GetBill(ctx, userID, billID)
	if err != nil {
		return nil, err
	}
	previousDate := bill.Date

	if req.Type != nil {
		typ, err := domain.ParseBillType(*req.Type)
		if err != nil {
			return nil, &domain.ErrValidation{Field: "type", Message: "must be income or expense"}
		}
		bill.Type = typ
	}
	if req.Amount != nil {
		if bill.Amount, err = parseAmount(*req.Amount); err != nil {
			return nil, err
		}
	}
	if req.Category != nil {
		bill.Category = strings.TrimSpace(*req.Category)
	}
	if req.Description != nil {
		if bill.Description, err = normalizeDescription(req.Description); err != nil {
			return nil, err
		}
	}
	if req.Date != nil {
		if bill.Date, err = parseBillDate(*req.Date); err != nil {
			return nil, err
		}
	}
	// Switching type may leave the old category behind.
	if err := validateCategory(bill.Type, bill.Category); err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateBill(ctx, bill)
	if err != nil {
		return nil, fmt.Errorf("update bill: %w", err)
	}

	s.afterWrite(ctx, domain.BillUpdated, updated)
	if previousDate.Year != updated.Date.Year || previousDate.Month != updated.Date.Month {
		moved := *updated
		moved.Date = previousDate
		s.publish(ctx, domain.BillUpdated, &moved)
	}
	return updated, nil
}

func (s *BillService) Delete(ctx context.Context, userID, billID string) error {
	ctx, span := billTracer.Start(ctx, "BillService.Delete")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID), attribute.String("bill.id", billID))

	bill, err := s.store.GetBill(ctx, userID, billID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteBill(ctx, userID, billID); err != nil {
		return fmt.Errorf("delete bill: %w", err)
	}

	s.afterWrite(ctx, domain.BillDeleted, bill)
	return nil
}

// ============================================================
// Queries
// ============================================================

func (s *BillService) Get(ctx context.Context, userID, billID string) (*domain.Bill, error) {
	ctx, span := billTracer.Start(ctx, "BillService.Get")
	defer span.End()

	return s.store.GetBill(ctx, userID, billID)
}

// List returns the user's bills, newest first.
func (s *BillService) List(ctx context.Context, userID string, filter domain.BillFilter) ([]domain.Bill, error) {
	ctx, span := billTracer.Start(ctx, "BillService.List")
	defer span.End()

	if !filter.From.IsZero() && !filter.To.IsZero() && filter.From.After(filter.To) {
		return nil, &domain.ErrValidation{Field: "from", Message: "must not be after to"}
	}
	if filter.Limit < 0 {
		return nil, &domain.ErrValidation{Field: "limit", Message: "must not be negative"}
	}
	return s.store.ListBills(ctx, userID, filter)
}

// ListMonth returns every bill of one calendar month with its totals.
func (s *BillService) ListMonth(ctx context.Context, userID string, year, month int) (*domain.MonthlyBills, error) {
	ctx, span := billTracer.Start(ctx, "BillService.ListMonth")
	defer span.End()
	span.SetAttributes(attribute.Int("year", year), attribute.Int("month", month))

	if err := validateMonth(year, month); err != nil {
		return nil, err
	}

	r := stats.MonthRange(year, time.Month(month))
	bills, err := s.store.ListBills(ctx, userID, domain.BillFilter{From: r.Start, To: r.End})
	if err != nil {
		return nil, fmt.Errorf("list month: %w", err)
	}

	income, expense, balance := stats.Totals(bills)
	return &domain.MonthlyBills{
		Year:         year,
		Month:        month,
		Range:        r,
		Bills:        bills,
		TotalIncome:  income,
		TotalExpense: expense,
		Balance:      balance,
	}, nil
}

// ============================================================
// Side effects
// ============================================================

func (s *BillService) afterWrite(ctx context.Context, kind domain.BillEventType, bill *domain.Bill) {
	op := strings.TrimPrefix(string(kind), "bill.")
	s.metrics.IncrBillWritten(op, bill.Type)

	if s.cache != nil {
		n := s.cache.DeletePrefix(statsKeyPrefix(bill.UserID))
		s.logger.Debug("statistics cache invalidated",
			zap.String("user_id", bill.UserID),
			zap.Int("entries", n),
		)
	}

	s.publish(ctx, kind, bill)
}

// publish never fails the write; the bill is already stored.
func (s *BillService) publish(ctx context.Context, kind domain.BillEventType, bill *domain.Bill) {
	if s.publisher == nil {
		return
	}

	event := domain.BillEvent{
		ID:         uuid.NewString(),
		Type:       kind,
		BillID:     bill.ID,
		UserID:     bill.UserID,
		BillType:   bill.Type,
		Date:       bill.Date,
		OccurredAt: s.clock().UTC(),
	}
	if err := s.publisher.PublishBillEvent(ctx, event); err != nil {
		s.metrics.IncrEventPublished("error")
		s.logger.Warn("failed to publish bill event",
			zap.String("event", string(kind)),
			zap.String("bill_id", bill.ID),
			zap.Error(err),
		)
		return
	}
	s.metrics.IncrEventPublished("ok")
}

// ============================================================
// Validation
// ============================================================

func parseAmount(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, &domain.ErrValidation{Field: "amount", Message: "is required"}
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, &domain.ErrValidation{Field: "amount", Message: "must be a number"}
	}
	if !amount.IsPositive() {
		return decimal.Zero, &domain.ErrValidation{Field: "amount", Message: "must be greater than 0"}
	}
	return amount, nil
}

func normalizeDescription(desc *string) (*string, error) {
	if desc == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*desc)
	if trimmed == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(trimmed) > maxDescriptionLen {
		return nil, &domain.ErrValidation{Field: "description", Message: fmt.Sprintf("must be at most %d characters", maxDescriptionLen)}
	}
	return &trimmed, nil
}

func parseBillDate(raw string) (domain.Date, error) {
	d, err := domain.ParseDate(strings.TrimSpace(raw))
	if err != nil {
		return domain.Date{}, &domain.ErrValidation{Field: "date", Message: "must be YYYY-MM-DD"}
	}
	return d, nil
}

func validateCategory(t domain.BillType, category string) error {
	if category == "" {
		return &domain.ErrValidation{Field: "category", Message: "is required"}
	}
	if !domain.IsValidCategory(t, category) {
		return &domain.ErrValidation{Field: "category", Message: fmt.Sprintf("%q is not a %s category", category, t)}
	}
	return nil
}

func validateMonth(year, month int) error {
	if month < 1 || month > 12 {
		return &domain.ErrValidation{Field: "month", Message: "must be between 1 and 12"}
	}
	if year < minYear || year > maxYear {
		return &domain.ErrValidation{Field: "year", Message: fmt.Sprintf("must be between %d and %d", minYear, maxYear)}
	}
	return nil
}
