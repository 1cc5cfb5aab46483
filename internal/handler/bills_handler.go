package handler

import (
	"net/http"

	"github.com/boddenberg/billstats-bfa/internal/domain"
	"github.com/boddenberg/billstats-bfa/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Bills Handlers
// ============================================================

func listBillsHandler(svc *service.BillService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/bills")
		defer span.End()

		filter, err := parseBillFilter(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		bills, err := svc.List(ctx, UserIDFromContext(ctx), filter)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.Int("bills.count", len(bills)))
		writeJSON(w, http.StatusOK, domain.ListResponse[domain.Bill]{Data: bills, Total: len(bills)})
	}
}

func createBillHandler(svc *service.BillService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/bills")
		defer span.End()

		var req domain.CreateBillRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		bill, err := svc.Create(ctx, UserIDFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, bill)
	}
}

func getBillHandler(svc *service.BillService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/bills/{billId}")
		defer span.End()

		bill, err := svc.Get(ctx, UserIDFromContext(ctx), chi.URLParam(r, "billId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, bill)
	}
}

func updateBillHandler(svc *service.BillService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/bills/{billId}")
		defer span.End()

		var req domain.UpdateBillRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		bill, err := svc.Update(ctx, UserIDFromContext(ctx), chi.URLParam(r, "billId"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, bill)
	}
}

func deleteBillHandler(svc *service.BillService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/bills/{billId}")
		defer span.End()

		billID := chi.URLParam(r, "billId")
		if err := svc.Delete(ctx, UserIDFromContext(ctx), billID); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "bill deleted", ID: billID})
	}
}

// monthlyBillsHandler defaults year and month to the current month.
func monthlyBillsHandler(svc *service.BillService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/bills/monthly")
		defer span.End()

		today := svc.Today()
		year, err := queryInt(r, "year", today.Year)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		month, err := queryInt(r, "month", int(today.Month))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		result, err := svc.ListMonth(ctx, UserIDFromContext(ctx), year, month)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// categoriesHandler lists the catalog, optionally for one bill type.
func categoriesHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := r.URL.Query().Get("type")
		if raw == "" {
			writeJSON(w, http.StatusOK, map[string][]domain.CategoryInfo{
				string(domain.BillTypeExpense): domain.CategoriesFor(domain.BillTypeExpense),
				string(domain.BillTypeIncome):  domain.CategoriesFor(domain.BillTypeIncome),
			})
			return
		}

		t, err := domain.ParseBillType(raw)
		if err != nil {
			handleServiceError(w, &domain.ErrValidation{Field: "type", Message: "must be income or expense"}, logger)
			return
		}
		list := domain.CategoriesFor(t)
		writeJSON(w, http.StatusOK, domain.ListResponse[domain.CategoryInfo]{Data: list, Total: len(list)})
	}
}
