// Package mariadb implements database.Store on MariaDB/MySQL, typically the
// same server PhotoPrism already runs on.
package mariadb

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/kozaktomas/photo-curator/internal/database"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Pool manages a MariaDB connection pool.
type Pool struct {
	db *sql.DB
}

// NewPool creates a new MariaDB connection pool. parseTime is forced on so
// DATETIME columns scan into time.Time.
func NewPool(ctx context.Context, dsn string) (*Pool, error) {
	if dsn == "" {
		return nil, errors.New("MariaDB DSN is required")
	}

	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse MariaDB DSN: %w", err)
	}
	cfg.ParseTime = true

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open MariaDB: %w", err)
	}
	db := sql.OpenDB(connector)

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MariaDB: %w", err)
	}

	return &Pool{db: db}, nil
}

// Migrate applies all pending migrations
func (p *Pool) Migrate(ctx context.Context, logger *slog.Logger) error {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	return database.Migrate(ctx, p.db, sub, database.BindQuestion, logger)
}

// Close closes the connection pool.
func (p *Pool) Close() error {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			return fmt.Errorf("closing database connection: %w", err)
		}
	}
	return nil
}

// Store is the MariaDB database.Store
type Store struct {
	pool         *Pool
	fingerprints *FingerprintRepository
}

// Open connects, applies pending migrations and returns the store.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*Store, error) {
	pool, err := NewPool(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Migrate(ctx, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return &Store{pool: pool, fingerprints: &FingerprintRepository{pool: pool}}, nil
}

// GetSetting returns the value for key and whether it exists
func (s *Store) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.pool.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE name = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query setting: %w", err)
	}
	return value, true, nil
}

// PutSetting creates or replaces the value for key
func (s *Store) PutSetting(ctx context.Context, key, value string) error {
	_, err := s.pool.db.ExecContext(ctx,
		"INSERT INTO settings (name, value) VALUES (?, ?) ON DUPLICATE KEY UPDATE value = VALUES(value)",
		key, value)
	if err != nil {
		return fmt.Errorf("upsert setting: %w", err)
	}
	return nil
}

// DeleteSetting removes key
func (s *Store) DeleteSetting(ctx context.Context, key string) error {
	if _, err := s.pool.db.ExecContext(ctx, "DELETE FROM settings WHERE name = ?", key); err != nil {
		return fmt.Errorf("delete setting: %w", err)
	}
	return nil
}

// Fingerprints returns the fingerprint repository
func (s *Store) Fingerprints() database.FingerprintWriter {
	return s.fingerprints
}

// Close closes the pool
func (s *Store) Close() error {
	return s.pool.Close()
}

var _ database.Store = (*Store)(nil)
