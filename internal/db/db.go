package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/AdamBeresnev/op-chess-club/internal/config"
	"github.com/AdamBeresnev/op-chess-club/migrations"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

// DSN builds the sqlite3 connection string. Write transactions take the lock on BEGIN so
// that capacity checks and round generation cannot interleave.
func DSN(path string) string {
	return fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate", path)
}

func InitDB(cfg config.Database) (*sqlx.DB, error) {
	db, err := sqlx.Connect("sqlite3", DSN(cfg.Path))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to DB: %w", err)
	}

	log.Info().Str("path", cfg.Path).Msg("database connected")
	return db, nil
}

// RunMigrations applies the embedded migrations. The migrate instance is not closed since
// that would close the shared *sql.DB.
func RunMigrations(database *sql.DB) error {
	driver, err := sqlite3.WithInstance(database, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migrate driver: %w", err)
	}

	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("failed to open migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// InitTestDB opens a private in-memory database with the schema applied. The pool is
// limited to one connection because every sqlite in-memory connection is its own database.
func InitTestDB() (*sqlx.DB, error) {
	db, err := sqlx.Connect("sqlite3", "file::memory:?_foreign_keys=on")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if err := RunMigrations(db.DB); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
