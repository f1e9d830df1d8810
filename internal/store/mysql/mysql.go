// Package mysql opens the host schema on MySQL or MariaDB, the host
// platform's native database, and bootstraps it for development.
package mysql

import (
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/alfredjeanlab/adverthide/internal/store/sqlstore"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrationsTable is the schema version table, created with the table prefix.
const MigrationsTable = "adverthide_schema_migrations"

// Config parses a go-sql-driver DSN and applies the settings the store
// relies on: DATETIME columns scan as time.Time in UTC.
func Config(dsn string) (*mysql.Config, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg, nil
}

func open(cfg *mysql.Config) (*sql.DB, error) {
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db := sql.OpenDB(connector)

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(3 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// Open opens a connection pool to the MySQL database described by dsn.
func Open(dsn string) (*sql.DB, error) {
	cfg, err := Config(dsn)
	if err != nil {
		return nil, err
	}
	return open(cfg)
}

// New opens the database and returns a store over the host tables with the
// given prefix. It never changes the schema.
func New(dsn, prefix string) (*sqlstore.Store, error) {
	db, err := Open(dsn)
	if err != nil {
		return nil, err
	}
	s, err := sqlstore.New(db, sqlstore.MySQL, prefix)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the host tables and the plugin's defaults. It is only run
// on explicit request.
func Migrate(dsn, prefix string) error {
	if err := sqlstore.ValidatePrefix(prefix); err != nil {
		return err
	}
	cfg, err := Config(dsn)
	if err != nil {
		return err
	}
	// Migration files hold several statements each.
	cfg.MultiStatements = true

	db, err := open(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	sourceDriver, err := iofs.New(sqlstore.PrefixFS(migrationsFS, prefix), "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := migratemysql.WithInstance(db, &migratemysql.Config{MigrationsTable: prefix + MigrationsTable})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "mysql", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
