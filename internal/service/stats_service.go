package service

import (
	"context"
	"fmt"
	"time"

	"github.com/boddenberg/billstats-bfa/internal/domain"
	"github.com/boddenberg/billstats-bfa/internal/infra/observability"
	"github.com/boddenberg/billstats-bfa/internal/port"
	"github.com/boddenberg/billstats-bfa/internal/stats"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var statsTracer = otel.Tracer("service/stats")

// recentBillsLimit is how many bills the overview shows.
const recentBillsLimit = 5

func statsKeyPrefix(userID string) string {
	return fmt.Sprintf("stats:%s:", userID)
}

func statsKey(userID string, period domain.Period, today domain.Date) string {
	return fmt.Sprintf("%s%s:%s", statsKeyPrefix(userID), period, today)
}

// StatsService builds period statistics on top of the bill store.
type StatsService struct {
	store   port.BillStore
	cache   port.Cache[*domain.Statistics]
	metrics *observability.Metrics
	logger  *zap.Logger
	clock   Clock
	loc     *time.Location
}

func NewStatsService(
	store port.BillStore,
	cache port.Cache[*domain.Statistics],
	metrics *observability.Metrics,
	logger *zap.Logger,
	clock Clock,
	loc *time.Location,
) *StatsService {
	if clock == nil {
		clock = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	return &StatsService{store: store, cache: cache, metrics: metrics, logger: logger, clock: clock, loc: loc}
}

func (s *StatsService) today() domain.Date {
	return domain.DateOf(s.clock().In(s.loc))
}

// GetStatistics aggregates the user's bills for period, ending today.
// An empty period means month.
func (s *StatsService) GetStatistics(ctx context.Context, userID string, period domain.Period) (*domain.Statistics, error) {
	ctx, span := statsTracer.Start(ctx, "StatsService.GetStatistics")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID), attribute.String("period", string(period)))

	period, err := domain.ParsePeriod(string(period))
	if err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("statistics", time.Since(start))
	}()

	today := s.today()
	prefix := statsKeyPrefix(userID)
	key := statsKey(userID, period, today)
	if cached, ok := s.cache.Get(key); ok {
		s.metrics.IncrCacheHit("statistics")
		return cached, nil
	}
	s.metrics.IncrCacheMiss("statistics")
	gen := s.cache.Generation(prefix)

	r := stats.ComputeDateRange(period, today)
	result, err := s.aggregateRange(ctx, userID, period, r)
	if err != nil {
		return nil, err
	}
	result.Description = stats.Describe(period, today)

	if !s.cache.SetIfGeneration(prefix, gen, key, result) {
		s.logger.Debug("statistics changed during aggregation, not caching",
			zap.String("user_id", userID),
			zap.String("period", string(period)),
		)
	}
	return result, nil
}

// MonthStatistics aggregates one explicit calendar month. The export
// worker uses it to rebuild the month a changed bill belongs to.
func (s *StatsService) MonthStatistics(ctx context.Context, userID string, year int, month time.Month) (*domain.Statistics, error) {
	ctx, span := statsTracer.Start(ctx, "StatsService.MonthStatistics")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID), attribute.Int("year", year), attribute.Int("month", int(month)))

	if err := validateMonth(year, int(month)); err != nil {
		return nil, err
	}

	r := stats.MonthRange(year, month)
	result, err := s.aggregateRange(ctx, userID, domain.PeriodMonth, r)
	if err != nil {
		return nil, err
	}
	result.Description = stats.Describe(domain.PeriodMonth, r.Start)
	return result, nil
}

// Overview loads this month's statistics and the latest bills concurrently.
func (s *StatsService) Overview(ctx context.Context, userID string) (*domain.Overview, error) {
	ctx, span := statsTracer.Start(ctx, "StatsService.Overview")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	var (
		monthStats *domain.Statistics
		recent     []domain.Bill
	)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		st, err := s.GetStatistics(gCtx, userID, domain.PeriodMonth)
		if err != nil {
			return fmt.Errorf("month statistics: %w", err)
		}
		monthStats = st
		return nil
	})

	g.Go(func() error {
		bills, err := s.store.ListBills(gCtx, userID, domain.BillFilter{Limit: recentBillsLimit})
		if err != nil {
			s.logger.Error("failed to fetch recent bills",
				zap.String("user_id", userID),
				zap.Error(err),
			)
			s.metrics.IncrExternalError("bills")
			return fmt.Errorf("recent bills: %w", err)
		}
		recent = bills
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &domain.Overview{
		Month:        monthStats.Description,
		Range:        monthStats.Range,
		TotalIncome:  monthStats.TotalIncome,
		TotalExpense: monthStats.TotalExpense,
		Balance:      monthStats.NetBalance,
		RecentBills:  recent,
	}, nil
}

func (s *StatsService) aggregateRange(ctx context.Context, userID string, period domain.Period, r domain.DateRange) (*domain.Statistics, error) {
	bills, err := s.store.ListBills(ctx, userID, domain.BillFilter{From: r.Start, To: r.End})
	if err != nil {
		s.logger.Error("failed to fetch bills for statistics",
			zap.String("user_id", userID),
			zap.String("period", string(period)),
			zap.Error(err),
		)
		s.metrics.IncrExternalError("bills")
		return nil, fmt.Errorf("list bills: %w", err)
	}

	result := stats.Aggregate(stats.FilterByRange(bills, r), period)
	result.Range = r
	return &result, nil
}
