package mariadb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kozaktomas/photo-curator/internal/database"
)

// FingerprintRepository stores feature prints as JSON arrays
type FingerprintRepository struct {
	pool *Pool
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFingerprint(row scanner) (database.StoredFingerprint, error) {
	var (
		fp   database.StoredFingerprint
		data []byte
	)
	if err := row.Scan(&fp.AssetID, &fp.Model, &data, &fp.CreatedAt); err != nil {
		return fp, err
	}
	if err := json.Unmarshal(data, &fp.Vector); err != nil {
		return fp, fmt.Errorf("decode vector of %s: %w", fp.AssetID, err)
	}
	return fp, nil
}

// Get retrieves the print of an asset for a model, returns nil if not found
func (r *FingerprintRepository) Get(ctx context.Context, assetID, model string) (*database.StoredFingerprint, error) {
	row := r.pool.db.QueryRowContext(ctx,
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
	if err := r.pool.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM fingerprints").Scan(&count); err != nil {
		return 0, fmt.Errorf("count fingerprints: %w", err)
	}
	return count, nil
}

// List returns every stored print for a model
func (r *FingerprintRepository) List(ctx context.Context, model string) ([]database.StoredFingerprint, error) {
	rows, err := r.pool.db.QueryContext(ctx,
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
	data, err := json.Marshal(fp.Vector)
	if err != nil {
		return fmt.Errorf("marshal vector: %w", err)
	}
	_, err = r.pool.db.ExecContext(ctx, `
		INSERT INTO fingerprints (asset_id, model, vector) VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE vector = VALUES(vector), created_at = CURRENT_TIMESTAMP(6)
	`, fp.AssetID, fp.Model, data)
	if err != nil {
		return fmt.Errorf("upsert fingerprint: %w", err)
	}
	return nil
}

// Delete removes every print of an asset
func (r *FingerprintRepository) Delete(ctx context.Context, assetID string) error {
	if _, err := r.pool.db.ExecContext(ctx, "DELETE FROM fingerprints WHERE asset_id = ?", assetID); err != nil {
		return fmt.Errorf("delete fingerprint: %w", err)
	}
	return nil
}
