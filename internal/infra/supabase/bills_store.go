package supabase

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/boddenberg/billstats-bfa/internal/domain"
	"github.com/boddenberg/billstats-bfa/internal/infra/resilience"
	"github.com/boddenberg/billstats-bfa/internal/port"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

var _ port.BillStore = (*Client)(nil)

const billsTable = "bills"

// billRow maps the bills table columns.
type billRow struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description *string         `json:"description"`
	Date        string          `json:"date"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (r billRow) toDomain() (domain.Bill, error) {
	d, err := domain.ParseDate(r.Date)
	if err != nil {
		return domain.Bill{}, fmt.Errorf("bill %s: %w", r.ID, err)
	}
	return domain.Bill{
		ID:          r.ID,
		UserID:      r.UserID,
		Type:        domain.BillType(r.Type),
		Amount:      r.Amount,
		Category:    r.Category,
		Description: r.Description,
		Date:        d,
		CreatedAt:   r.CreatedAt,
	}, nil
}

func billColumns(b *domain.Bill) map[string]any {
	return map[string]any{
		"user_id":     b.UserID,
		"type":        string(b.Type),
		"amount":      b.Amount,
		"category":    b.Category,
		"description": b.Description,
		"date":        b.Date.String(),
	}
}

func ownedBy(userID, billID string) url.Values {
	q := url.Values{}
	q.Set("id", "eq."+billID)
	q.Set("user_id", "eq."+userID)
	return q
}

// firstBill decodes a representation answer and returns its single row,
// or ErrNotFound when PostgREST matched nothing.
func firstBill(body []byte, billID string) (*domain.Bill, error) {
	rows, err := decodeRows[billRow](body)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, resilience.Permanent(&domain.ErrNotFound{Resource: "bill", ID: billID})
	}
	b, err := rows[0].toDomain()
	if err != nil {
		return nil, resilience.Permanent(err)
	}
	return &b, nil
}

// CreateBill inserts a bill and returns the stored row (with id and created_at).
func (c *Client) CreateBill(ctx context.Context, bill *domain.Bill) (*domain.Bill, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateBill")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", bill.UserID))

	var created *domain.Bill
	err := c.call(ctx, "supabase/bills", func() error {
		body, err := c.doPost(ctx, billsTable, billColumns(bill))
		if err != nil {
			return err
		}
		created, err = firstBill(body, "new")
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetBill fetches one bill owned by userID.
func (c *Client) GetBill(ctx context.Context, userID, billID string) (*domain.Bill, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetBill")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID), attribute.String("bill.id", billID))

	q := ownedBy(userID, billID)
	q.Set("select", "*")
	q.Set("limit", "1")

	var bill *domain.Bill
	err := c.call(ctx, "supabase/bills", func() error {
		body, err := c.doGet(ctx, billsTable, q)
		if err != nil {
			return err
		}
		bill, err = firstBill(body, billID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return bill, nil
}

// UpdateBill overwrites the mutable columns of an existing bill.
func (c *Client) UpdateBill(ctx context.Context, bill *domain.Bill) (*domain.Bill, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateBill")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", bill.UserID), attribute.String("bill.id", bill.ID))

	cols := billColumns(bill)
	delete(cols, "user_id")

	var updated *domain.Bill
	err := c.call(ctx, "supabase/bills", func() error {
		body, err := c.doPatch(ctx, billsTable, ownedBy(bill.UserID, bill.ID), cols)
		if err != nil {
			return err
		}
		updated, err = firstBill(body, bill.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteBill removes a bill; deleting someone else's or a missing bill is ErrNotFound.
func (c *Client) DeleteBill(ctx context.Context, userID, billID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteBill")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID), attribute.String("bill.id", billID))

	return c.call(ctx, "supabase/bills", func() error {
		body, err := c.doDelete(ctx, billsTable, ownedBy(userID, billID))
		if err != nil {
			return err
		}
		_, err = firstBill(body, billID)
		return err
	})
}

// ListBills returns the user's bills matching filter, newest date first.
// It pages with limit/offset until a short page, so the server's max-rows
// cap never truncates a range.
func (c *Client) ListBills(ctx context.Context, userID string, filter domain.BillFilter) ([]domain.Bill, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListBills")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	q := url.Values{}
	q.Set("select", "*")
	q.Set("user_id", "eq."+userID)
	if !filter.From.IsZero() {
		q.Add("date", "gte."+filter.From.String())
	}
	if !filter.To.IsZero() {
		q.Add("date", "lte."+filter.To.String())
	}
	if filter.Type != "" {
		q.Set("type", "eq."+string(filter.Type))
	}
	if filter.Category != "" {
		q.Set("category", "eq."+filter.Category)
	}
	q.Set("order", "date.desc,created_at.desc,id.desc")

	bills := make([]domain.Bill, 0)
	for {
		size := c.pageSize
		if filter.Limit > 0 && filter.Limit-len(bills) < size {
			size = filter.Limit - len(bills)
		}
		q.Set("limit", strconv.Itoa(size))
		q.Set("offset", strconv.Itoa(len(bills)))

		var page []domain.Bill
		err := c.call(ctx, "supabase/bills", func() error {
			body, err := c.doGet(ctx, billsTable, q)
			if err != nil {
				return err
			}
			rows, err := decodeRows[billRow](body)
			if err != nil {
				return err
			}
			page = make([]domain.Bill, 0, len(rows))
			for _, r := range rows {
				b, err := r.toDomain()
				if err != nil {
					return resilience.Permanent(err)
				}
				page = append(page, b)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}

		bills = append(bills, page...)
		if len(page) < size || (filter.Limit > 0 && len(bills) >= filter.Limit) {
			break
		}
	}

	span.SetAttributes(attribute.Int("bills.count", len(bills)))
	return bills, nil
}
