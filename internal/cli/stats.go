package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/boddenberg/billstats-bfa/internal/domain"
	"github.com/boddenberg/billstats-bfa/internal/stats"

	"github.com/spf13/cobra"
)

const statsExample = `  billstatsctl stats --file bills.yaml --period month
  billstatsctl stats --file bills.json --period week --today 2024-03-13 --json`

func newStatsCommand() *cobra.Command {
	var (
		file   string
		period string
		today  string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:     "stats",
		Short:   "Aggregate a bill file for a week, month or year",
		Example: statsExample,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := domain.ParsePeriod(period)
			if err != nil {
				return err
			}

			day := domain.DateOf(time.Now())
			if today != "" {
				if day, err = domain.ParseDate(today); err != nil {
					return fmt.Errorf("--today: %w", err)
				}
			}

			bills, err := loadBills(file)
			if err != nil {
				return err
			}
			return runStats(cmd.OutOrStdout(), bills, p, day, asJSON)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML or JSON file with a top-level bills list (required)")
	_ = cmd.MarkFlagRequired("file")
	cmd.Flags().StringVarP(&period, "period", "p", string(domain.PeriodMonth), "week, month or year")
	cmd.Flags().StringVar(&today, "today", "", "reference date as YYYY-MM-DD (default: today)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of tables")

	return cmd
}

func runStats(w io.Writer, bills []domain.Bill, period domain.Period, today domain.Date, asJSON bool) error {
	r := stats.ComputeDateRange(period, today)
	st := stats.Aggregate(stats.FilterByRange(bills, r), period)
	st.Range = r
	st.Description = stats.Describe(period, today)

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}

	_, err := fmt.Fprint(w, renderStatistics(st))
	return err
}
