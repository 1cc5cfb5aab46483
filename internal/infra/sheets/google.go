package sheets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/boddenberg/billstats-bfa/internal/domain"
	"github.com/boddenberg/billstats-bfa/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

var tracer = otel.Tracer("sheets")

var _ port.StatsExporter = (*Google)(nil)

// Google appends statistics rows to one sheet of a spreadsheet.
type Google struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	now           func() time.Time
	logger        *zap.Logger
}

// NewGoogle builds an exporter from explicit client options.
func NewGoogle(ctx context.Context, spreadsheetID, sheetName string, logger *zap.Logger, opts ...option.ClientOption) (*Google, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if sheetName == "" {
		sheetName = "Stats"
	}

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Google{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		now:           time.Now,
		logger:        logger,
	}, nil
}

// NewGoogleFromServiceAccount authenticates with a service account key file.
func NewGoogleFromServiceAccount(ctx context.Context, spreadsheetID, sheetName, keyFile string, logger *zap.Logger) (*Google, error) {
	credentials, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	logger.Info("creating sheets service from service account",
		zap.String("file", keyFile),
		zap.Int("credentials_size", len(credentials)),
	)
	return NewGoogle(ctx, spreadsheetID, sheetName, logger,
		option.WithCredentialsJSON(credentials),
		option.WithScopes(gsheet.SpreadsheetsScope),
	)
}

// ExportStatistics appends one row per category below the existing data.
func (g *Google) ExportStatistics(ctx context.Context, userID string, stats *domain.Statistics) error {
	ctx, span := tracer.Start(ctx, "Sheets.ExportStatistics")
	defer span.End()

	rows := Rows(g.now(), userID, stats)
	span.SetAttributes(attribute.Int("rows", len(rows)))
	if len(rows) == 0 {
		return nil
	}

	rng := fmt.Sprintf("%s!A:I", g.sheetName)
	_, err := g.svc.Spreadsheets.Values.Append(g.spreadsheetID, rng, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return &domain.ErrExternalService{Service: "sheets", Err: fmt.Errorf("append rows to %s: %w", g.sheetName, err)}
	}

	g.logger.Info("statistics exported",
		zap.String("user_id", userID),
		zap.String("sheet", g.sheetName),
		zap.Int("rows", len(rows)),
	)
	return nil
}
