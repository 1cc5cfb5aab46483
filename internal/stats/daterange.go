// Package stats turns a list of bills into period totals and per-category
// breakdowns. Everything here is pure: callers supply "today" and the bills.
package stats

import (
	"fmt"
	"time"

	"github.com/boddenberg/billstats-bfa/internal/domain"
)

// ComputeDateRange returns the inclusive window for period ending today.
// Weeks start on Monday, so a Sunday is the seventh day of its week.
// Unknown periods fall back to the month window.
func ComputeDateRange(period domain.Period, today domain.Date) domain.DateRange {
	var start domain.Date
	switch period {
	case domain.PeriodWeek:
		start = today.AddDays(-daysSinceMonday(today.Weekday()))
	case domain.PeriodYear:
		start = domain.Date{Year: today.Year, Month: time.January, Day: 1}
	default:
		start = domain.Date{Year: today.Year, Month: today.Month, Day: 1}
	}
	return domain.DateRange{Start: start, End: today}
}

func daysSinceMonday(wd time.Weekday) int {
	if wd == time.Sunday {
		return 6
	}
	return int(wd) - 1
}

// MonthRange returns the first and last day of a calendar month.
func MonthRange(year int, month time.Month) domain.DateRange {
	start := domain.Date{Year: year, Month: month, Day: 1}
	// Day 0 of the following month is the last day of this one.
	end := domain.NewDate(year, month+1, 0)
	return domain.DateRange{Start: start, End: end}
}

// Describe returns the human label for a period as seen on today.
func Describe(period domain.Period, today domain.Date) string {
	switch period {
	case domain.PeriodWeek:
		return "本周"
	case domain.PeriodYear:
		return fmt.Sprintf("%d年", today.Year)
	default:
		return fmt.Sprintf("%d年%d月", today.Year, int(today.Month))
	}
}

// FilterByRange keeps the bills whose date lies inside r, preserving order.
func FilterByRange(bills []domain.Bill, r domain.DateRange) []domain.Bill {
	out := make([]domain.Bill, 0, len(bills))
	for _, b := range bills {
		if r.Contains(b.Date) {
			out = append(out, b)
		}
	}
	return out
}
