package cli

import (
	"fmt"
	"strings"

	"github.com/boddenberg/billstats-bfa/internal/domain"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorBorder = lipgloss.Color("#575653")
	colorText   = lipgloss.Color("#FFFCF0")
	colorAccent = lipgloss.Color("#3AA99F")
	colorGreen  = lipgloss.Color("#879A39")
	colorRed    = lipgloss.Color("#D14D41")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorText)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorAccent)

	valueStyle   = lipgloss.NewStyle().Foreground(colorText)
	dimStyle     = lipgloss.NewStyle().Foreground(colorBorder)
	incomeStyle  = lipgloss.NewStyle().Foreground(colorGreen)
	expenseStyle = lipgloss.NewStyle().Foreground(colorRed)
)

// table is a bordered text table. The first column is left-aligned,
// the rest right-aligned.
type table struct {
	title   string
	headers []string
	rows    [][]string
}

func renderTitle(title string) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Width(48).
		Align(lipgloss.Center).
		Padding(0, 1)
	return box.Render(titleStyle.Render(title))
}

func renderTable(t table) string {
	numCols := len(t.headers)
	widths := make([]int, numCols)
	for i, h := range t.headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < numCols {
				widths[i] = max(widths[i], lipgloss.Width(cell))
			}
		}
	}

	rule := func(left, mid, right string) string {
		var b strings.Builder
		b.WriteString(left)
		for i, w := range widths {
			b.WriteString(strings.Repeat("─", w+2))
			if i < numCols-1 {
				b.WriteString(mid)
			}
		}
		b.WriteString(right)
		return dimStyle.Render(b.String()) + "\n"
	}

	line := func(cells []string, style lipgloss.Style) string {
		var b strings.Builder
		b.WriteString(dimStyle.Render("│"))
		for i := 0; i < numCols; i++ {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			pad := strings.Repeat(" ", widths[i]-lipgloss.Width(cell))
			if i == 0 {
				b.WriteString(style.Render(" " + cell + pad + " "))
			} else {
				b.WriteString(style.Render(" " + pad + cell + " "))
			}
			b.WriteString(dimStyle.Render("│"))
		}
		return b.String() + "\n"
	}

	var b strings.Builder
	if t.title != "" {
		b.WriteString("  " + headerStyle.Render(t.title) + "\n")
	}
	b.WriteString(rule("╭", "┬", "╮"))
	b.WriteString(line(t.headers, headerStyle))
	b.WriteString(rule("├", "┼", "┤"))
	for _, row := range t.rows {
		b.WriteString(line(row, valueStyle))
	}
	b.WriteString(rule("╰", "┴", "╯"))
	return b.String()
}

// renderStatistics prints totals followed by one table per bill type.
func renderStatistics(st domain.Statistics) string {
	var b strings.Builder

	title := fmt.Sprintf("%s  %s ~ %s", st.Description, st.Range.Start, st.Range.End)
	b.WriteString(renderTitle(title) + "\n\n")

	fmt.Fprintf(&b, "  Income   %s\n", incomeStyle.Render(st.TotalIncome.StringFixed(2)))
	fmt.Fprintf(&b, "  Expense  %s\n", expenseStyle.Render(st.TotalExpense.StringFixed(2)))
	balance := st.NetBalance.StringFixed(2)
	if st.NetBalance.IsNegative() {
		balance = expenseStyle.Render(balance)
	} else {
		balance = incomeStyle.Render(balance)
	}
	fmt.Fprintf(&b, "  Balance  %s\n\n", balance)

	b.WriteString(renderCategoryStats("Expenses", st.ExpenseStats))
	b.WriteString("\n")
	b.WriteString(renderCategoryStats("Income", st.IncomeStats))
	return b.String()
}

func renderCategoryStats(title string, list []domain.CategoryStat) string {
	if len(list) == 0 {
		return "  " + headerStyle.Render(title) + "\n  " + dimStyle.Render("no bills") + "\n"
	}
	rows := make([][]string, 0, len(list))
	for _, s := range list {
		rows = append(rows, []string{
			s.Label,
			s.Amount.StringFixed(2),
			fmt.Sprintf("%d", s.Count),
			fmt.Sprintf("%.1f%%", s.Percentage),
		})
	}
	return renderTable(table{
		title:   title,
		headers: []string{"Category", "Amount", "Bills", "Share"},
		rows:    rows,
	})
}
