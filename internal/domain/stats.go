package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ============================================================
// Statistics
// ============================================================

// Period is the aggregation window; it always ends today.
type Period string

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// ParsePeriod validates a period selector. An empty string means month.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case "":
		return PeriodMonth, nil
	case PeriodWeek, PeriodMonth, PeriodYear:
		return Period(s), nil
	}
	return "", &ErrValidation{Field: "period", Message: fmt.Sprintf("must be week, month or year (got %q)", s)}
}

// DateRange is an inclusive range of calendar dates.
type DateRange struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

// Contains reports whether d falls inside r, both ends included.
func (r DateRange) Contains(d Date) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

// CategoryStat summarises one category within a period.
type CategoryStat struct {
	Category   string          `json:"category"`
	Label      string          `json:"label"`
	Icon       string          `json:"icon"`
	Amount     decimal.Decimal `json:"amount"`
	Count      int             `json:"count"`
	Percentage float64         `json:"percentage"`
}

// Statistics is the aggregate view of a set of bills.
type Statistics struct {
	Period       Period          `json:"period"`
	Range        DateRange       `json:"range"`
	Description  string          `json:"description,omitempty"`
	TotalIncome  decimal.Decimal `json:"total_income"`
	TotalExpense decimal.Decimal `json:"total_expense"`
	NetBalance   decimal.Decimal `json:"net_balance"`
	ExpenseStats []CategoryStat  `json:"expense_stats"`
	IncomeStats  []CategoryStat  `json:"income_stats"`
}

// ServiceMetrics is a point-in-time read of the service counters.
type ServiceMetrics struct {
	CacheHits       int64   `json:"cache_hits"`
	CacheMisses     int64   `json:"cache_misses"`
	CacheHitRate    float64 `json:"cache_hit_rate"`
	BillsWritten    int64   `json:"bills_written"`
	EventsPublished int64   `json:"events_published"`
	EventsFailed    int64   `json:"events_failed"`
	ExternalErrors  int64   `json:"external_errors"`
}
