package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/boddenberg/billstats-bfa/internal/domain"
	"github.com/boddenberg/billstats-bfa/internal/infra/observability"
	"github.com/boddenberg/billstats-bfa/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Pinger is a dependency the health endpoints can check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services groups what the router dispatches to.
type Services struct {
	Bills    *service.BillService
	Stats    *service.StatsService
	Profiles *service.ProfileService
	Tokens   TokenValidator

	// Backend names the bill store ("supabase" or "sqlite") and Store checks it.
	Backend string
	Store   Pinger
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svc Services, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svc.Backend, svc.Store))
	r.Get("/readyz", readyzHandler(svc.Store, logger))
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		r.Get("/categories", categoriesHandler(logger))

		r.Group(func(r chi.Router) {
			r.Use(JWTAuthMiddleware(svc.Tokens, logger))

			r.Route("/bills", func(r chi.Router) {
				r.Get("/", listBillsHandler(svc.Bills, logger))
				r.Post("/", createBillHandler(svc.Bills, logger))
				r.Get("/monthly", monthlyBillsHandler(svc.Bills, logger))
				r.Get("/{billId}", getBillHandler(svc.Bills, logger))
				r.Patch("/{billId}", updateBillHandler(svc.Bills, logger))
				r.Delete("/{billId}", deleteBillHandler(svc.Bills, logger))
			})

			r.Get("/stats", statisticsHandler(svc.Stats, logger))
			r.Get("/overview", overviewHandler(svc.Stats, logger))

			r.Get("/me", getProfileHandler(svc.Profiles, logger))
			r.Patch("/me/username", updateUsernameHandler(svc.Profiles, logger))

			r.Get("/metrics/service", serviceMetricsHandler(metrics))
		})
	})

	return r
}

// ============================================================
// Operational handlers
// ============================================================

// healthzHandler always answers 200; a failing store shows up as degraded.
func healthzHandler(backend string, store Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "billstats-api", Status: "healthy", LatencyMs: 0, LastChecked: now},
		}

		if store != nil {
			start := time.Now()
			err := store.Ping(r.Context())
			status := "healthy"
			if err != nil {
				status = "degraded"
			}
			services = append(services, domain.ServiceHealth{
				Name: backend, Status: status, LatencyMs: time.Since(start).Milliseconds(), LastChecked: now,
			})
		}

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status == "degraded" {
				overallStatus = "degraded"
				break
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overallStatus,
			Backend:  backend,
			Services: services,
		})
	}
}

// readyzHandler answers 503 until the bill store responds.
func readyzHandler(store Pinger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := store.Ping(ctx); err != nil {
				logger.Warn("readiness check failed", zap.Error(err))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
