// Package sqlite is the local BillStore and ProfileStore, used for
// development and self-hosting without Supabase.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/boddenberg/billstats-bfa/internal/domain"
	"github.com/boddenberg/billstats-bfa/internal/port"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

var tracer = otel.Tracer("sqlite")

var (
	_ port.BillStore    = (*Store)(nil)
	_ port.ProfileStore = (*Store)(nil)
)

// created_at is stored fixed-width so text ordering matches time ordering.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

// Store keeps bills and profiles in a single SQLite file.
type Store struct {
	db     *sql.DB
	now    func() time.Time
	logger *zap.Logger
}

// Open creates the parent directory, opens the database and applies migrations.
func Open(dbPath string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// modernc sqlite serialises writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("sqlite store ready", zap.String("path", dbPath))
	return &Store{db: db, now: time.Now, logger: logger}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping is used by /readyz.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const billColumns = "id, user_id, type, amount, category, description, date, created_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBill(row rowScanner) (domain.Bill, error) {
	var (
		b                     domain.Bill
		typ, amount, date, ts string
		description           sql.NullString
	)
	if err := row.Scan(&b.ID, &b.UserID, &typ, &amount, &b.Category, &description, &date, &ts); err != nil {
		return domain.Bill{}, err
	}

	var err error
	b.Type = domain.BillType(typ)
	if b.Amount, err = decimal.NewFromString(amount); err != nil {
		return domain.Bill{}, fmt.Errorf("parse amount of bill %s: %w", b.ID, err)
	}
	if b.Date, err = domain.ParseDate(date); err != nil {
		return domain.Bill{}, fmt.Errorf("parse date of bill %s: %w", b.ID, err)
	}
	if b.CreatedAt, err = time.Parse(timestampLayout, ts); err != nil {
		return domain.Bill{}, fmt.Errorf("parse created_at of bill %s: %w", b.ID, err)
	}
	if description.Valid {
		d := description.String
		b.Description = &d
	}
	return b, nil
}

func nullable(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// CreateBill assigns an id and creation time and inserts the bill.
func (s *Store) CreateBill(ctx context.Context, bill *domain.Bill) (*domain.Bill, error) {
	ctx, span := tracer.Start(ctx, "SQLite.CreateBill")
	defer span.End()

	created := *bill
	created.ID = uuid.NewString()
	created.CreatedAt = s.now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO bills (`+billColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		created.ID, created.UserID, string(created.Type), created.Amount.String(), created.Category,
		nullable(created.Description), created.Date.String(), created.CreatedAt.Format(timestampLayout),
	)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "sqlite", Err: fmt.Errorf("insert bill: %w", err)}
	}
	span.SetAttributes(attribute.String("bill.id", created.ID))
	return &created, nil
}

// GetBill returns the bill if it exists and belongs to userID.
func (s *Store) GetBill(ctx context.Context, userID, billID string) (*domain.Bill, error) {
	ctx, span := tracer.Start(ctx, "SQLite.GetBill")
	defer span.End()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+billColumns+` FROM bills WHERE id = ? AND user_id = ?`, billID, userID)
	b, err := scanBill(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.ErrNotFound{Resource: "bill", ID: billID}
	}
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "sqlite", Err: err}
	}
	return &b, nil
}

// UpdateBill overwrites the mutable columns; id, owner and created_at stay.
func (s *Store) UpdateBill(ctx context.Context, bill *domain.Bill) (*domain.Bill, error) {
	ctx, span := tracer.Start(ctx, "SQLite.UpdateBill")
	defer span.End()

	res, err := s.db.ExecContext(ctx,
		`UPDATE bills SET type = ?, amount = ?, category = ?, description = ?, date = ?
		 WHERE id = ? AND user_id = ?`,
		string(bill.Type), bill.Amount.String(), bill.Category, nullable(bill.Description), bill.Date.String(),
		bill.ID, bill.UserID,
	)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "sqlite", Err: fmt.Errorf("update bill: %w", err)}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, &domain.ErrNotFound{Resource: "bill", ID: bill.ID}
	}
	return s.GetBill(ctx, bill.UserID, bill.ID)
}

// DeleteBill removes the bill if it belongs to userID.
func (s *Store) DeleteBill(ctx context.Context, userID, billID string) error {
	ctx, span := tracer.Start(ctx, "SQLite.DeleteBill")
	defer span.End()

	res, err := s.db.ExecContext(ctx, `DELETE FROM bills WHERE id = ? AND user_id = ?`, billID, userID)
	if err != nil {
		return &domain.ErrExternalService{Service: "sqlite", Err: fmt.Errorf("delete bill: %w", err)}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.ErrNotFound{Resource: "bill", ID: billID}
	}
	return nil
}

// ListBills returns the user's bills matching filter, newest date first.
func (s *Store) ListBills(ctx context.Context, userID string, filter domain.BillFilter) ([]domain.Bill, error) {
	ctx, span := tracer.Start(ctx, "SQLite.ListBills")
	defer span.End()

	where := []string{"user_id = ?"}
	args := []any{userID}
	if !filter.From.IsZero() {
		where = append(where, "date >= ?")
		args = append(args, filter.From.String())
	}
	if !filter.To.IsZero() {
		where = append(where, "date <= ?")
		args = append(args, filter.To.String())
	}
	if filter.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(filter.Type))
	}
	if filter.Category != "" {
		where = append(where, "category = ?")
		args = append(args, filter.Category)
	}

	query := `SELECT ` + billColumns + ` FROM bills WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY date DESC, created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "sqlite", Err: fmt.Errorf("list bills: %w", err)}
	}
	defer rows.Close()

	bills := make([]domain.Bill, 0)
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, &domain.ErrExternalService{Service: "sqlite", Err: err}
		}
		bills = append(bills, b)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.ErrExternalService{Service: "sqlite", Err: err}
	}

	span.SetAttributes(attribute.Int("bills.count", len(bills)))
	return bills, nil
}

// GetProfile returns the stored profile. A user without a row yet gets an
// empty profile, since there is no auth provider to ask locally.
func (s *Store) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "SQLite.GetProfile")
	defer span.End()

	p := &domain.Profile{UserID: userID}
	err := s.db.QueryRowContext(ctx,
		`SELECT email, username, avatar_url FROM profiles WHERE user_id = ?`, userID,
	).Scan(&p.Email, &p.Username, &p.AvatarURL)
	if errors.Is(err, sql.ErrNoRows) {
		return p, nil
	}
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "sqlite", Err: fmt.Errorf("get profile: %w", err)}
	}
	return p, nil
}

// UpdateUsername upserts the profile row.
func (s *Store) UpdateUsername(ctx context.Context, userID, username string) (*domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "SQLite.UpdateUsername")
	defer span.End()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO profiles (user_id, username, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET username = excluded.username, updated_at = excluded.updated_at`,
		userID, username, s.now().UTC().Format(timestampLayout),
	)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "sqlite", Err: fmt.Errorf("update username: %w", err)}
	}
	s.logger.Debug("username updated", zap.String("user_id", userID))
	return s.GetProfile(ctx, userID)
}
