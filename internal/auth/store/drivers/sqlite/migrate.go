package sqlite

import (
	"errors"
	"fmt"

	"github.com/aussiebroadwan/usermgmt/internal/auth/store/drivers/sqlite/migrations"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// ApplyMigrations applies any pending migrations from the embedded SQL files.
// The migrate instance is deliberately not closed: closing it would close the
// store's *sql.DB.
func (s *Store) ApplyMigrations() error {
	// 1. Wrap the open database for golang-migrate
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("sqlite: migrate driver: %w", err)
	}

	// 2. Source the embedded migration files
	source, err := iofs.New(migrations.Migrations, ".")
	if err != nil {
		return fmt.Errorf("sqlite: migrate source: %w", err)
	}

	// 3. Build the migrate instance
	instance, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("sqlite: migrate init: %w", err)
	}

	// 4. Apply all up migrations
	if err := instance.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("sqlite: migrate up: %w", err)
	}

	return nil
}
