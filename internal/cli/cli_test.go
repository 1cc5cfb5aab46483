package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/boddenberg/billstats-bfa/internal/domain"
	"github.com/boddenberg/billstats-bfa/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureYAML = `bills:
  - type: expense
    amount: 30
    category: food
    date: 2024-03-02
  - type: expense
    amount: "70.50"
    category: housing
    description: rent share
    date: 2024-03-05
  - type: income
    amount: 500
    category: salary
    date: 2024-03-10
  - type: expense
    amount: 999
    category: food
    date: 2024-02-29
`

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseBills(t *testing.T) {
	bills, err := parseBills([]byte(fixtureYAML))
	require.NoError(t, err)
	require.Len(t, bills, 4)

	assert.Equal(t, domain.BillTypeExpense, bills[1].Type)
	assert.Equal(t, "70.5", bills[1].Amount.String())
	require.NotNil(t, bills[1].Description)
	assert.Equal(t, "rent share", *bills[1].Description)
	assert.Nil(t, bills[0].Description)
	assert.Equal(t, "2024-02-29", bills[3].Date.String())
}

func TestParseBills_JSON(t *testing.T) {
	bills, err := parseBills([]byte(`{"bills":[{"type":"income","amount":"12.25","category":"bonus","date":"2024-01-01"}]}`))
	require.NoError(t, err)
	require.Len(t, bills, 1)
	assert.Equal(t, "12.25", bills[0].Amount.String())
}

func TestParseBills_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"bad type", "bills:\n  - {type: refund, amount: 1, category: food, date: 2024-01-01}\n"},
		{"zero amount", "bills:\n  - {type: expense, amount: 0, category: food, date: 2024-01-01}\n"},
		{"bad amount", "bills:\n  - {type: expense, amount: abc, category: food, date: 2024-01-01}\n"},
		{"bad date", "bills:\n  - {type: expense, amount: 1, category: food, date: 2024-02-30}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseBills([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestStatsCommand_JSON(t *testing.T) {
	path := writeFile(t, "bills.yaml", fixtureYAML)

	out, err := runCLI(t, "stats", "--file", path, "--period", "month", "--today", "2024-03-13", "--json")
	require.NoError(t, err)

	var st domain.Statistics
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.Equal(t, "2024-03-01", st.Range.Start.String())
	assert.Equal(t, "2024-03-13", st.Range.End.String())
	assert.Equal(t, "100.5", st.TotalExpense.String())
	assert.Equal(t, "500", st.TotalIncome.String())
	assert.Equal(t, "399.5", st.NetBalance.String())
	require.Len(t, st.ExpenseStats, 2)
	assert.Equal(t, "housing", st.ExpenseStats[0].Category)
}

func TestStatsCommand_Table(t *testing.T) {
	path := writeFile(t, "bills.yaml", fixtureYAML)

	out, err := runCLI(t, "stats", "--file", path, "--today", "2024-03-13")
	require.NoError(t, err)

	assert.Contains(t, out, "2024年3月")
	assert.Contains(t, out, "住房")
	assert.Contains(t, out, "70.50")
	assert.Contains(t, out, "399.50")
}

func TestStatsCommand_Errors(t *testing.T) {
	path := writeFile(t, "bills.yaml", fixtureYAML)

	_, err := runCLI(t, "stats", "--file", path, "--period", "decade")
	assert.Error(t, err)

	_, err = runCLI(t, "stats", "--file", path, "--today", "yesterday")
	assert.Error(t, err)

	_, err = runCLI(t, "stats")
	assert.Error(t, err)
}

func TestMigrateCommand(t *testing.T) {
	db := filepath.Join(t.TempDir(), "nested", "billstats.db")

	out, err := runCLI(t, "migrate", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "migrated")
	assert.FileExists(t, db)

	// Idempotent.
	_, err = runCLI(t, "migrate", "--db", db)
	assert.NoError(t, err)
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("SUPABASE_JWT_SECRET", "cli-test-secret")

	out, err := runCLI(t, "token", "--user", "u-42", "--email", "u42@example.com")
	require.NoError(t, err)

	claims, err := service.NewTokenService("cli-test-secret").Validate(string(bytes.TrimSpace([]byte(out))))
	require.NoError(t, err)
	assert.Equal(t, "u-42", claims.Subject)
	assert.Equal(t, "u42@example.com", claims.Email)
}

func TestTokenCommand_RequiresSecret(t *testing.T) {
	t.Setenv("SUPABASE_JWT_SECRET", "")

	_, err := runCLI(t, "token", "--user", "u-42")
	assert.Error(t, err)
}

func TestCategoriesCommand(t *testing.T) {
	out, err := runCLI(t, "categories", "--type", "income")
	require.NoError(t, err)
	assert.Contains(t, out, "salary")
	assert.NotContains(t, out, "transport")

	out, err = runCLI(t, "categories")
	require.NoError(t, err)
	assert.Contains(t, out, "transport")
	assert.Contains(t, out, "salary")
}
