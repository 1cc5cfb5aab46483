// Package worker rebuilds monthly statistics when bills change and ships
// them to the configured exporter.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/boddenberg/billstats-bfa/internal/domain"
	"github.com/boddenberg/billstats-bfa/internal/infra/observability"
	"github.com/boddenberg/billstats-bfa/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("worker")

// MonthStats produces the statistics of one calendar month.
// *service.StatsService implements it.
type MonthStats interface {
	MonthStatistics(ctx context.Context, userID string, year int, month time.Month) (*domain.Statistics, error)
}

// StatsSync reacts to bill events by re-exporting the affected month.
type StatsSync struct {
	stats    MonthStats
	exporter port.StatsExporter
	metrics  *observability.Metrics
	logger   *zap.Logger
}

func NewStatsSync(stats MonthStats, exporter port.StatsExporter, metrics *observability.Metrics, logger *zap.Logger) *StatsSync {
	return &StatsSync{stats: stats, exporter: exporter, metrics: metrics, logger: logger}
}

// Handle processes one event. A returned error asks the broker to
// redeliver; events that can never succeed are logged and dropped.
func (s *StatsSync) Handle(ctx context.Context, event domain.BillEvent) error {
	ctx, span := tracer.Start(ctx, "StatsSync.Handle")
	defer span.End()
	span.SetAttributes(
		attribute.String("event.id", event.ID),
		attribute.String("event.type", string(event.Type)),
		attribute.String("user.id", event.UserID),
	)

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("stats_sync", time.Since(start))
	}()

	st, err := s.stats.MonthStatistics(ctx, event.UserID, event.Date.Year, event.Date.Month)
	if err != nil {
		var validation *domain.ErrValidation
		if errors.As(err, &validation) {
			s.logger.Warn("dropping bill event",
				zap.String("event_id", event.ID),
				zap.Error(err),
			)
			return nil
		}
		s.metrics.IncrExternalError("bills")
		return err
	}

	if err := s.exporter.ExportStatistics(ctx, event.UserID, st); err != nil {
		s.metrics.IncrExternalError("sheets")
		s.logger.Error("statistics export failed",
			zap.String("event_id", event.ID),
			zap.String("user_id", event.UserID),
			zap.Error(err),
		)
		return err
	}

	s.logger.Info("statistics exported",
		zap.String("event_id", event.ID),
		zap.String("user_id", event.UserID),
		zap.String("month", st.Description),
		zap.Int("expense_categories", len(st.ExpenseStats)),
		zap.Int("income_categories", len(st.IncomeStats)),
	)
	return nil
}
