package database

import (
	"context"
	"fmt"

	"github.com/npezzotti/go-dm/internal/config"
)

// Open returns the store selected by cfg.StoreDriver. A PostgreSQL store
// is migrated before it is returned when cfg.MigrateOnStart is set.
func Open(ctx context.Context, cfg *config.Config) (Repository, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		repo, err := NewPgRepository(ctx, PgOptions{
			DSN:             cfg.DatabaseDSN,
			MaxConns:        cfg.MaxConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
		})
		if err != nil {
			return nil, err
		}
		if cfg.MigrateOnStart {
			if err := repo.Migrate(ctx); err != nil {
				repo.Close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
		return repo, nil
	case config.DriverFile:
		return NewFileRepository(cfg.StorePath)
	case config.DriverMemory:
		return NewMemRepository(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
