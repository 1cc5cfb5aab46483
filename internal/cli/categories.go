package cli

import (
	"fmt"
	"strings"

	"github.com/boddenberg/billstats-bfa/internal/domain"

	"github.com/spf13/cobra"
)

func newCategoriesCommand() *cobra.Command {
	var billType string

	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List the category catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			types := []domain.BillType{domain.BillTypeExpense, domain.BillTypeIncome}
			if billType != "" {
				t, err := domain.ParseBillType(billType)
				if err != nil {
					return err
				}
				types = []domain.BillType{t}
			}

			var b strings.Builder
			for i, t := range types {
				if i > 0 {
					b.WriteString("\n")
				}
				rows := [][]string{}
				for _, c := range domain.CategoriesFor(t) {
					rows = append(rows, []string{c.Key, c.Label, c.Icon})
				}
				b.WriteString(renderTable(table{
					title:   string(t),
					headers: []string{"Key", "Label", "Icon"},
					rows:    rows,
				}))
			}
			_, err := fmt.Fprint(cmd.OutOrStdout(), b.String())
			return err
		},
	}

	cmd.Flags().StringVar(&billType, "type", "", "only income or expense")

	return cmd
}
