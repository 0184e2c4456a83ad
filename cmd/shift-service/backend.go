package main

import (
	"context"
	"fmt"

	"shifter/shift-service/internal/config"
	"shifter/shift-service/internal/store"
	"shifter/shift-service/internal/store/postgres"
	"shifter/shift-service/internal/store/sqlite"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// backend bundles the configured store with its schema and shutdown hooks.
type backend struct {
	store   store.Store
	migrate func(context.Context) error
	close   func()
}

func openBackend(ctx context.Context, cfg config.Config, logger *zap.Logger) (*backend, error) {
	switch cfg.DatabaseDriver {
	case config.DriverSQLite:
		st, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		logger.Info("using sqlite store", zap.String("path", cfg.SQLitePath))
		return &backend{
			store:   st,
			migrate: st.Migrate,
			close:   func() { _ = st.Close() },
		}, nil
	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("db connect: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("db ping: %w", err)
		}
		st := postgres.NewStore(pool)
		logger.Info("using postgres store")
		return &backend{
			store:   st,
			migrate: st.Migrate,
			close:   pool.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DatabaseDriver)
	}
}
