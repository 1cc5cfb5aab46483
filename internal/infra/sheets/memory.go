package sheets

import (
	"context"
	"sync"
	"time"

	"github.com/boddenberg/billstats-bfa/internal/domain"
	"github.com/boddenberg/billstats-bfa/internal/port"
)

var _ port.StatsExporter = (*Memory)(nil)

// Memory keeps exported rows in process. Used when no spreadsheet is
// configured and in tests.
type Memory struct {
	mu   sync.Mutex
	rows [][]any
	now  func() time.Time
}

// NewMemory returns an empty in-memory exporter.
func NewMemory() *Memory {
	return &Memory{now: time.Now}
}

// ExportStatistics appends the rows for stats.
func (m *Memory) ExportStatistics(_ context.Context, userID string, stats *domain.Statistics) error {
	rows := Rows(m.now(), userID, stats)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, rows...)
	return nil
}

// Rows returns a copy of everything exported so far.
func (m *Memory) Rows() [][]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]any(nil), m.rows...)
}
