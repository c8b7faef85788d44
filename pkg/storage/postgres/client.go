// Package postgres implements the Postgres-backed repository and port
// adapters (session/cycle/membership/conversation repositories, the outbox
// port, and the processed-event idempotency store) behind plain
// database/sql, grounded on the teacher's pkg/database/client.go connection
// bootstrap and migration-on-startup discipline. The teacher's persistence
// layer sits on ent's generated client; this repo models the persistence
// boundary as Go interfaces instead (spec.md §9's repository ports) with
// hand-written SQL, since the generated ent client cannot be produced
// without running `go generate` — see DESIGN.md's go.mod reconciliation.
package postgres

import (
	"context"
	stdsql "database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the pgx driver for database/sql
)

//go:embed migrations
var migrationsFS embed.FS

// Config holds the Postgres connection and pool settings.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// Client wraps the shared *sql.DB every repository and port adapter in this
// package operates against.
type Client struct {
	DB *stdsql.DB
}

// NewClientFromDB wraps an already-open *sql.DB, useful for testcontainers-
// backed integration tests.
func NewClientFromDB(db *stdsql.DB) *Client {
	return &Client{DB: db}
}

// NewClient opens a pooled connection to cfg and applies pending migrations.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := stdsql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db, cfg.Database); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Client{DB: db}, nil
}

func runMigrations(db *stdsql.DB, databaseName string) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create postgres driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, databaseName, driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	// Only close the source driver: m.Close() would also close db through
	// the instance passed to postgres.WithInstance, and db is shared with
	// every repository adapter constructed from this Client.
	return sourceDriver.Close()
}

// Close closes the underlying connection pool.
func (c *Client) Close() error {
	return c.DB.Close()
}
