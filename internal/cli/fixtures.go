package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/boddenberg/billstats-bfa/internal/domain"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// billFile is the on-disk fixture shape. JSON files parse too since
// YAML is a superset of JSON.
type billFile struct {
	Bills []billEntry `yaml:"bills"`
}

type billEntry struct {
	Type        string `yaml:"type"`
	Amount      string `yaml:"amount"`
	Category    string `yaml:"category"`
	Description string `yaml:"description"`
	Date        string `yaml:"date"`
}

// loadBills reads and validates a bill fixture file.
func loadBills(path string) ([]domain.Bill, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return parseBills(data)
}

func parseBills(data []byte) ([]domain.Bill, error) {
	var f billFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing bills: %w", err)
	}

	bills := make([]domain.Bill, 0, len(f.Bills))
	for i, e := range f.Bills {
		b, err := e.toBill()
		if err != nil {
			return nil, fmt.Errorf("bill %d: %w", i+1, err)
		}
		bills = append(bills, b)
	}
	return bills, nil
}

func (e billEntry) toBill() (domain.Bill, error) {
	typ, err := domain.ParseBillType(e.Type)
	if err != nil {
		return domain.Bill{}, err
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(e.Amount))
	if err != nil {
		return domain.Bill{}, fmt.Errorf("amount %q: %w", e.Amount, err)
	}
	if !amount.IsPositive() {
		return domain.Bill{}, fmt.Errorf("amount %q must be greater than 0", e.Amount)
	}
	date, err := domain.ParseDate(strings.TrimSpace(e.Date))
	if err != nil {
		return domain.Bill{}, fmt.Errorf("date %q: %w", e.Date, err)
	}

	b := domain.Bill{Type: typ, Amount: amount, Category: strings.TrimSpace(e.Category), Date: date}
	if d := strings.TrimSpace(e.Description); d != "" {
		b.Description = &d
	}
	return b, nil
}
