// Package sheets exports aggregated statistics as spreadsheet rows.
package sheets

import (
	"fmt"
	"math"
	"time"

	"github.com/boddenberg/billstats-bfa/internal/domain"
)

// Header is the first row of an export sheet.
var Header = []any{"exported_at", "user_id", "month", "kind", "category", "label", "amount", "count", "percentage"}

// Rows flattens stats into one row per category, expenses first.
// The month column is the range start as YYYY-MM.
func Rows(exportedAt time.Time, userID string, stats *domain.Statistics) [][]any {
	month := fmt.Sprintf("%04d-%02d", stats.Range.Start.Year, int(stats.Range.Start.Month))
	stamp := exportedAt.UTC().Format(time.RFC3339)

	rows := make([][]any, 0, len(stats.ExpenseStats)+len(stats.IncomeStats))
	add := func(kind domain.BillType, list []domain.CategoryStat) {
		for _, s := range list {
			rows = append(rows, []any{
				stamp,
				userID,
				month,
				string(kind),
				s.Category,
				s.Label,
				s.Amount.StringFixed(2),
				s.Count,
				math.Round(s.Percentage*100) / 100,
			})
		}
	}
	add(domain.BillTypeExpense, stats.ExpenseStats)
	add(domain.BillTypeIncome, stats.IncomeStats)
	return rows
}
