package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Bills
// ============================================================

// BillType partitions bills into money in and money out.
type BillType string

const (
	BillTypeIncome  BillType = "income"
	BillTypeExpense BillType = "expense"
)

// ParseBillType validates a raw type string.
func ParseBillType(s string) (BillType, error) {
	switch BillType(s) {
	case BillTypeIncome, BillTypeExpense:
		return BillType(s), nil
	}
	return "", fmt.Errorf("unknown bill type %q", s)
}

// Bill is a single income or expense record owned by one user.
type Bill struct {
	ID          string          `json:"id" yaml:"id"`
	UserID      string          `json:"user_id" yaml:"user_id"`
	Type        BillType        `json:"type" yaml:"type"`
	Amount      decimal.Decimal `json:"amount" yaml:"amount"`
	Category    string          `json:"category" yaml:"category"`
	Description *string         `json:"description" yaml:"description"`
	Date        Date            `json:"date" yaml:"date"`
	CreatedAt   time.Time       `json:"created_at" yaml:"created_at"`
}

// CreateBillRequest is the input for recording a new bill.
// Amount stays a string so "12.30" keeps its exact decimal value.
type CreateBillRequest struct {
	Type        string  `json:"type"`
	Amount      string  `json:"amount"`
	Category    string  `json:"category"`
	Description *string `json:"description,omitempty"`
	Date        string  `json:"date,omitempty"`
}

// UpdateBillRequest carries a partial update; nil fields are left untouched.
type UpdateBillRequest struct {
	Type        *string `json:"type,omitempty"`
	Amount      *string `json:"amount,omitempty"`
	Category    *string `json:"category,omitempty"`
	Description *string `json:"description,omitempty"`
	Date        *string `json:"date,omitempty"`
}

// BillFilter narrows a bill listing. Zero values mean "no constraint".
type BillFilter struct {
	From     Date
	To       Date
	Type     BillType
	Category string
	Limit    int
}

// MonthlyBills is the month-picker listing: every bill in one calendar
// month plus its totals.
type MonthlyBills struct {
	Year         int             `json:"year"`
	Month        int             `json:"month"`
	Range        DateRange       `json:"range"`
	Bills        []Bill          `json:"bills"`
	TotalIncome  decimal.Decimal `json:"total_income"`
	TotalExpense decimal.Decimal `json:"total_expense"`
	Balance      decimal.Decimal `json:"balance"`
}

// Overview backs the home screen: this month's totals and the latest bills.
type Overview struct {
	Month        string          `json:"month"`
	Range        DateRange       `json:"range"`
	TotalIncome  decimal.Decimal `json:"total_income"`
	TotalExpense decimal.Decimal `json:"total_expense"`
	Balance      decimal.Decimal `json:"balance"`
	RecentBills  []Bill          `json:"recent_bills"`
}

// ============================================================
// Events
// ============================================================

type BillEventType string

const (
	BillCreated BillEventType = "bill.created"
	BillUpdated BillEventType = "bill.updated"
	BillDeleted BillEventType = "bill.deleted"
)

// BillEvent is published after every successful bill write.
type BillEvent struct {
	ID         string        `json:"id"`
	Type       BillEventType `json:"type"`
	BillID     string        `json:"bill_id"`
	UserID     string        `json:"user_id"`
	BillType   BillType      `json:"bill_type"`
	Date       Date          `json:"date"`
	OccurredAt time.Time     `json:"occurred_at"`
}
