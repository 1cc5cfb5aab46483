package observability

import (
	"time"

	"github.com/boddenberg/billstats-bfa/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	externalErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	billsWritten    *prometheus.CounterVec
	eventsPublished *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "billstats_operation_duration_seconds",
				Help:    "Duration of service operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billstats_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billstats_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billstats_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		billsWritten: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billstats_bills_written_total",
				Help: "Bills created, updated or deleted.",
			},
			[]string{"op", "type"},
		),
		eventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billstats_events_published_total",
				Help: "Bill events handed to the broker.",
			},
			[]string{"status"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrBillWritten counts a bill write; op is create, update or delete.
func (m *Metrics) IncrBillWritten(op string, billType domain.BillType) {
	m.billsWritten.WithLabelValues(op, string(billType)).Inc()
}

// IncrEventPublished counts a publish attempt; status is ok or error.
func (m *Metrics) IncrEventPublished(status string) {
	m.eventsPublished.WithLabelValues(status).Inc()
}

// Snapshot reads the counters back for GET /v1/metrics/service.
func (m *Metrics) Snapshot() *domain.ServiceMetrics {
	hits := sumCounter(m.cacheHits)
	misses := sumCounter(m.cacheMisses)

	hitRate := float64(0)
	if hits+misses > 0 {
		hitRate = hits / (hits + misses)
	}

	return &domain.ServiceMetrics{
		CacheHits:       int64(hits),
		CacheMisses:     int64(misses),
		CacheHitRate:    hitRate,
		BillsWritten:    int64(sumCounter(m.billsWritten)),
		EventsPublished: int64(getCounterValue(m.eventsPublished, "ok")),
		EventsFailed:    int64(getCounterValue(m.eventsPublished, "error")),
		ExternalErrors:  int64(sumCounter(m.externalErrors)),
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

// sumCounter adds up every label combination of a CounterVec.
func sumCounter(cv *prometheus.CounterVec) float64 {
	ch := make(chan prometheus.Metric, 64)
	go func() {
		cv.Collect(ch)
		close(ch)
	}()

	total := float64(0)
	for metric := range ch {
		m := &dto.Metric{}
		if err := metric.Write(m); err != nil {
			continue
		}
		if m.Counter != nil {
			total += m.Counter.GetValue()
		}
	}
	return total
}
