// Package postgres opens the host schema on PostgreSQL and bootstraps it
// for development.
package postgres

import (
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/alfredjeanlab/adverthide/internal/store/sqlstore"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrationsTable is the schema version table, created with the table prefix.
const MigrationsTable = "adverthide_schema_migrations"

// Open opens a connection pool to the PostgreSQL database at the given URL
// and verifies it with a ping.
func Open(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// New opens the database and returns a store over the host tables with the
// given prefix. It never changes the schema.
func New(databaseURL, prefix string) (*sqlstore.Store, error) {
	db, err := Open(databaseURL)
	if err != nil {
		return nil, err
	}
	s, err := sqlstore.New(db, sqlstore.Postgres, prefix)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the host tables and the plugin's defaults. It is only run
// on explicit request.
func Migrate(databaseURL, prefix string) error {
	if err := sqlstore.ValidatePrefix(prefix); err != nil {
		return err
	}
	db, err := Open(databaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	sourceDriver, err := iofs.New(sqlstore.PrefixFS(migrationsFS, prefix), "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: prefix + MigrationsTable})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
