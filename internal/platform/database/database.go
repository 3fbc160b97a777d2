// Package database opens the consultation store and applies its migrations.
// postgres:// URLs are served by lib/pq, sqlite3:// URLs by go-sqlite3.
package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrations embed.FS

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// Driver picks the sql driver and DSN for a database URL.
func Driver(url string) (driver, dsn string, err error) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return DriverPostgres, url, nil
	case strings.HasPrefix(url, "sqlite3://"):
		return DriverSQLite, strings.TrimPrefix(url, "sqlite3://"), nil
	case strings.HasPrefix(url, "sqlite://"):
		return DriverSQLite, strings.TrimPrefix(url, "sqlite://"), nil
	default:
		return "", "", fmt.Errorf("unsupported database url %q", url)
	}
}

// Open connects to url, retrying the first ping a few times while the
// database container starts up.
func Open(url string, attempts int, log *zap.Logger) (*sql.DB, string, error) {
	driver, dsn, err := Driver(url)
	if err != nil {
		return nil, "", err
	}
	if log == nil {
		log = zap.NewNop()
	}
	if attempts < 1 {
		attempts = 1
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, "", err
	}
	if driver == DriverSQLite {
		// A single connection keeps :memory: databases alive and serialises writers.
		db.SetMaxOpenConns(1)
	}

	for i := 0; i < attempts; i++ {
		if err = db.Ping(); err == nil {
			return db, driver, nil
		}
		log.Info("waiting for database", zap.Int("attempt", i+1), zap.Int("of", attempts), zap.Error(err))
		if i < attempts-1 {
			time.Sleep(time.Second)
		}
	}
	db.Close()
	return nil, "", fmt.Errorf("could not connect to database: %w", err)
}

// Migrate brings the schema up to date. It leaves db open.
func Migrate(db *sql.DB, driver string) error {
	var (
		target database.Driver
		err    error
	)
	switch driver {
	case DriverPostgres:
		target, err = postgres.WithInstance(db, &postgres.Config{})
	case DriverSQLite:
		target, err = sqlite3.WithInstance(db, &sqlite3.Config{})
	default:
		return fmt.Errorf("unsupported driver %q", driver)
	}
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}

	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, driver, target)
	if err != nil {
		return fmt.Errorf("migration init failed: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}
