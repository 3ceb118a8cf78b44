// Package database opens the SQLite database shared by the API server and the
// Telegram bot and keeps its schema current.
package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// connParams are applied to every connection. Timestamps are written in
// SQLite's text format so they sort and compare as strings.
var connParams = url.Values{
	"_pragma":      {"foreign_keys(1)", "busy_timeout(5000)"},
	"_time_format": {"sqlite"},
}

// DB wraps the application connection pool.
type DB struct {
	SQL *sql.DB
}

// NewDB creates the parent directory, migrates the schema and opens a single
// connection pool on dbPath.
func NewDB(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath+"?"+connParams.Encode())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &DB{SQL: conn}, nil
}

// SchemaVersion returns the applied migration version and whether the last
// migration was left half-applied.
func (d *DB) SchemaVersion(ctx context.Context) (version uint, dirty bool, err error) {
	err = d.SQL.QueryRowContext(ctx, `SELECT version, dirty FROM schema_migrations LIMIT 1`).Scan(&version, &dirty)
	if err != nil {
		return 0, false, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, dirty, nil
}

func (d *DB) Close() error {
	return d.SQL.Close()
}

// RunMigrations applies the embedded migrations to the database at path.
func RunMigrations(path string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to read embedded migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, "sqlite://"+path)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}
