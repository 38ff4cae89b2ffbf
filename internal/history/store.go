package history

import (
	"context"
	"fmt"

	"github.com/nerrad567/ir-emitter/internal/infrastructure/database"
	"github.com/nerrad567/ir-emitter/migrations"
)

// Store is an opened, migrated history database.
type Store struct {
	*SQLiteRepository
	db *database.DB
}

// Open opens the history database at cfg.Path and applies pending migrations.
func Open(ctx context.Context, cfg database.Config) (*Store, error) {
	db, err := database.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}

	if err := db.Migrate(ctx, migrations.FS, migrations.Dir); err != nil {
		db.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("migrating history: %w", err)
	}

	return &Store{
		SQLiteRepository: NewSQLiteRepository(db.DB),
		db:               db,
	}, nil
}

// HealthCheck verifies the database still answers queries.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.db.HealthCheck(ctx)
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}
