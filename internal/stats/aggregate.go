package stats

import (
	"slices"

	"github.com/boddenberg/billstats-bfa/internal/domain"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Aggregate folds bills into totals and per-category stats for period.
// Bills are expected to be pre-filtered to the period's range; see
// FilterByRange. Categories are grouped by their raw key, and stats are
// ordered by amount descending. Equal amounts keep the order in which the
// categories were first seen, which callers should not depend on.
func Aggregate(bills []domain.Bill, period domain.Period) domain.Statistics {
	var expenses, income []domain.Bill
	for _, b := range bills {
		switch b.Type {
		case domain.BillTypeExpense:
			expenses = append(expenses, b)
		case domain.BillTypeIncome:
			income = append(income, b)
		}
	}

	totalExpense := sum(expenses)
	totalIncome := sum(income)

	return domain.Statistics{
		Period:       period,
		TotalIncome:  totalIncome,
		TotalExpense: totalExpense,
		NetBalance:   totalIncome.Sub(totalExpense),
		ExpenseStats: categoryStats(expenses, totalExpense),
		IncomeStats:  categoryStats(income, totalIncome),
	}
}

// Totals returns income, expense and income minus expense for bills.
func Totals(bills []domain.Bill) (income, expense, balance decimal.Decimal) {
	income, expense = decimal.Zero, decimal.Zero
	for _, b := range bills {
		switch b.Type {
		case domain.BillTypeIncome:
			income = income.Add(b.Amount)
		case domain.BillTypeExpense:
			expense = expense.Add(b.Amount)
		}
	}
	return income, expense, income.Sub(expense)
}

func sum(bills []domain.Bill) decimal.Decimal {
	total := decimal.Zero
	for _, b := range bills {
		total = total.Add(b.Amount)
	}
	return total
}

func categoryStats(bills []domain.Bill, total decimal.Decimal) []domain.CategoryStat {
	index := make(map[string]int)
	out := make([]domain.CategoryStat, 0)

	for _, b := range bills {
		i, ok := index[b.Category]
		if !ok {
			i = len(out)
			index[b.Category] = i
			out = append(out, domain.CategoryStat{
				Category: b.Category,
				Label:    domain.CategoryLabel(b.Category),
				Icon:     domain.CategoryIcon(b.Category),
				Amount:   decimal.Zero,
			})
		}
		out[i].Amount = out[i].Amount.Add(b.Amount)
		out[i].Count++
	}

	for i := range out {
		out[i].Percentage = percentage(out[i].Amount, total)
	}

	slices.SortStableFunc(out, func(a, b domain.CategoryStat) int {
		return b.Amount.Cmp(a.Amount)
	})
	return out
}

func percentage(amount, total decimal.Decimal) float64 {
	if !total.IsPositive() {
		return 0
	}
	return amount.Div(total).Mul(hundred).InexactFloat64()
}
