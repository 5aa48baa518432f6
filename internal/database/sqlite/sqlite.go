// Package sqlite implements database.Store on a local SQLite file. It is
// the default backend when no server database is configured.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kozaktomas/photo-curator/internal/database"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is the SQLite database.Store
type Store struct {
	db           *sql.DB
	fingerprints *FingerprintRepository
}

// Open opens or creates the database at path and applies pending migrations.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if path == "" {
		return nil, errors.New("SQLite path is required")
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}
	// a single writer avoids SQLITE_BUSY under concurrent workers
	db.SetMaxOpenConns(1)

	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open migrations: %w", err)
	}
	if err := database.Migrate(ctx, db, sub, database.BindQuestion, logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: db, fingerprints: &FingerprintRepository{db: db}}, nil
}

// GetSetting returns the value for key and whether it exists
func (s *Store) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE name = ?", key).Scan(&value)
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
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (name, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (name) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, value)
	if err != nil {
		return fmt.Errorf("upsert setting: %w", err)
	}
	return nil
}

// DeleteSetting removes key
func (s *Store) DeleteSetting(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM settings WHERE name = ?", key); err != nil {
		return fmt.Errorf("delete setting: %w", err)
	}
	return nil
}

// Fingerprints returns the fingerprint repository
func (s *Store) Fingerprints() database.FingerprintWriter {
	return s.fingerprints
}

// Close closes the database
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

var _ database.Store = (*Store)(nil)

// FingerprintRepository stores feature prints as float32 blobs
type FingerprintRepository struct {
	db  *sql.DB
	now func() time.Time
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFingerprint(row scanner) (database.StoredFingerprint, error) {
	var (
		fp      database.StoredFingerprint
		blob    []byte
		created string
	)
	if err := row.Scan(&fp.AssetID, &fp.Model, &blob, &created); err != nil {
		return fp, err
	}
	vec, err := database.DecodeVector(blob)
	if err != nil {
		return fp, err
	}
	fp.Vector = vec
	if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
		fp.CreatedAt = t
	}
	return fp, nil
}

// Get retrieves the print of an asset for a model, returns nil if not found
func (r *FingerprintRepository) Get(ctx context.Context, assetID, model string) (*database.StoredFingerprint, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT asset_id, model, vector, created_at FROM fingerprints WHERE asset_id = ? AND model = ?",
		assetID, model)
	fp, err := scanFingerprint(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query fingerprint: %w", err)
	}
	return &fp, nil
}

// Count returns the total number of prints stored
func (r *FingerprintRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM fingerprints").Scan(&count); err != nil {
		return 0, fmt.Errorf("count fingerprints: %w", err)
	}
	return count, nil
}

// List returns every stored print for a model
func (r *FingerprintRepository) List(ctx context.Context, model string) ([]database.StoredFingerprint, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT asset_id, model, vector, created_at FROM fingerprints WHERE model = ? ORDER BY asset_id",
		model)
	if err != nil {
		return nil, fmt.Errorf("query fingerprints: %w", err)
	}
	defer rows.Close()

	var out []database.StoredFingerprint
	for rows.Next() {
		fp, err := scanFingerprint(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fingerprint: %w", err)
		}
		out = append(out, fp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fingerprints: %w", err)
	}
	return out, nil
}

// Save creates or replaces the print of an asset
func (r *FingerprintRepository) Save(ctx context.Context, fp database.StoredFingerprint) error {
	now := time.Now
	if r.now != nil {
		now = r.now
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO fingerprints (asset_id, model, vector, created_at)
		VALUES (?, ?, ?, ?)
	`, fp.AssetID, fp.Model, database.EncodeVector(fp.Vector), now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("upsert fingerprint: %w", err)
	}
	return nil
}

// Delete removes every print of an asset
func (r *FingerprintRepository) Delete(ctx context.Context, assetID string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM fingerprints WHERE asset_id = ?", assetID); err != nil {
		return fmt.Errorf("delete fingerprint: %w", err)
	}
	return nil
}
