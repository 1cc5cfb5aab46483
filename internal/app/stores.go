// Package app holds the wiring shared by the API server and the export worker.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/boddenberg/billstats-bfa/internal/config"
	"github.com/boddenberg/billstats-bfa/internal/infra/resilience"
	"github.com/boddenberg/billstats-bfa/internal/infra/sqlite"
	"github.com/boddenberg/billstats-bfa/internal/infra/supabase"
	"github.com/boddenberg/billstats-bfa/internal/port"

	"go.uber.org/zap"
)

// Stores is the persistence selected by BACKEND.
type Stores struct {
	Backend  string
	Bills    port.BillStore
	Profiles port.ProfileStore

	ping  func(ctx context.Context) error
	close func() error
}

// Ping checks the backing store.
func (s *Stores) Ping(ctx context.Context) error {
	return s.ping(ctx)
}

// Close releases the store. Safe to call on the Supabase backend.
func (s *Stores) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// OpenStores builds the bill and profile stores for cfg.Backend.
func OpenStores(cfg *config.Config, logger *zap.Logger) (*Stores, error) {
	switch cfg.Backend {
	case config.BackendSupabase:
		logger.Info("using Supabase as data backend",
			zap.String("supabase_url", cfg.SupabaseURL),
		)
		client := supabase.NewClient(
			&http.Client{Timeout: cfg.HTTPTimeout},
			cfg.SupabaseURL,
			cfg.SupabaseAnonKey,
			cfg.SupabaseServiceKey,
			resilience.NewCircuitBreaker("supabase"),
			resilience.Config{
				MaxRetries:     cfg.MaxRetries,
				InitialBackoff: cfg.InitialBackoff,
				MaxConcurrency: cfg.MaxConcurrency,
			},
			logger,
		)
		return &Stores{
			Backend:  cfg.Backend,
			Bills:    client,
			Profiles: client,
			ping:     client.Ping,
		}, nil

	case config.BackendSQLite:
		logger.Info("using SQLite as data backend", zap.String("path", cfg.SQLitePath))
		store, err := sqlite.Open(cfg.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		return &Stores{
			Backend:  cfg.Backend,
			Bills:    store,
			Profiles: store,
			ping:     store.Ping,
			close:    store.Close,
		}, nil
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}
