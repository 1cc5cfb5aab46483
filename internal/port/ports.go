// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/boddenberg/billstats-bfa/internal/domain"
)

// BillStore persists bills. Every call is scoped to one owner.
// Implemented by the Supabase adapter and the local SQLite store.
type BillStore interface {
	CreateBill(ctx context.Context, bill *domain.Bill) (*domain.Bill, error)
	GetBill(ctx context.Context, userID, billID string) (*domain.Bill, error)
	UpdateBill(ctx context.Context, bill *domain.Bill) (*domain.Bill, error)
	DeleteBill(ctx context.Context, userID, billID string) error

	// ListBills returns bills ordered by date desc, then created_at desc.
	ListBills(ctx context.Context, userID string, filter domain.BillFilter) ([]domain.Bill, error)
}

// ProfileStore reads and updates user metadata kept by the auth provider.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)
	UpdateUsername(ctx context.Context, userID, username string) (*domain.Profile, error)
}

// EventPublisher announces bill writes to other processes.
type EventPublisher interface {
	PublishBillEvent(ctx context.Context, event domain.BillEvent) error
}

// StatsExporter ships aggregated statistics to an external sink.
type StatsExporter interface {
	ExportStatistics(ctx context.Context, userID string, stats *domain.Statistics) error
}

// Cache provides generic caching with TTL.
// DeletePrefix bumps the prefix generation; SetIfGeneration refuses to
// store a value read before the latest bump.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
	DeletePrefix(prefix string) int
	Generation(prefix string) uint64
	SetIfGeneration(prefix string, gen uint64, key string, value T) bool
}
