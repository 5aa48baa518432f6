package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/photo-curator/internal/database"
)

// FingerprintRepository provides PostgreSQL-backed feature print storage
type FingerprintRepository struct {
	pool *Pool
}

// NewFingerprintRepository creates a new fingerprint repository
func NewFingerprintRepository(pool *Pool) *FingerprintRepository {
	return &FingerprintRepository{pool: pool}
}

// Get retrieves the print of an asset for a model, returns nil if not found
func (r *FingerprintRepository) Get(ctx context.Context, assetID, model string) (*database.StoredFingerprint, error) {
	var (
		fp  database.StoredFingerprint
		vec pgvector.Vector
	)
	err := r.pool.db.QueryRowContext(ctx, `
		SELECT asset_id, model, vector, created_at
		FROM fingerprints
		WHERE asset_id = $1 AND model = $2
	`, assetID, model).Scan(&fp.AssetID, &fp.Model, &vec, &fp.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query fingerprint: %w", err)
	}
	fp.Vector = vec.Slice()
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

// CountByAssets returns how many of assetIDs have a print of model
func (r *FingerprintRepository) CountByAssets(ctx context.Context, assetIDs []string, model string) (int, error) {
	if len(assetIDs) == 0 {
		return 0, nil
	}
	var count int
	err := r.pool.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM fingerprints WHERE model = $1 AND asset_id = ANY($2)",
		model, pq.Array(assetIDs)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count fingerprints by assets: %w", err)
	}
	return count, nil
}

// List returns every stored print for a model
func (r *FingerprintRepository) List(ctx context.Context, model string) ([]database.StoredFingerprint, error) {
	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT asset_id, model, vector, created_at
		FROM fingerprints
		WHERE model = $1
		ORDER BY asset_id
	`, model)
	if err != nil {
		return nil, fmt.Errorf("query fingerprints: %w", err)
	}
	defer rows.Close()

	var out []database.StoredFingerprint
	for rows.Next() {
		var (
			fp  database.StoredFingerprint
			vec pgvector.Vector
		)
		if err := rows.Scan(&fp.AssetID, &fp.Model, &vec, &fp.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan fingerprint: %w", err)
		}
		fp.Vector = vec.Slice()
		out = append(out, fp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fingerprints: %w", err)
	}
	return out, nil
}

// FindNearest returns up to limit prints of model ordered by cosine distance
// to vector, computed by pgvector. It serves lookups when no in-memory index
// has been built.
func (r *FingerprintRepository) FindNearest(ctx context.Context, vector []float32, model string, limit int) ([]database.Neighbor, error) {
	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT asset_id, vector <=> $1 AS distance
		FROM fingerprints
		WHERE model = $2
		ORDER BY distance
		LIMIT $3
	`, pgvector.NewVector(vector), model, limit)
	if err != nil {
		return nil, fmt.Errorf("query nearest fingerprints: %w", err)
	}
	defer rows.Close()

	var out []database.Neighbor
	for rows.Next() {
		var n database.Neighbor
		if err := rows.Scan(&n.AssetID, &n.Distance); err != nil {
			return nil, fmt.Errorf("scan neighbor: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate neighbors: %w", err)
	}
	return out, nil
}

// Save creates or replaces the print of an asset
func (r *FingerprintRepository) Save(ctx context.Context, fp database.StoredFingerprint) error {
	_, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO fingerprints (asset_id, model, vector, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (asset_id, model) DO UPDATE SET vector = EXCLUDED.vector, created_at = NOW()
	`, fp.AssetID, fp.Model, pgvector.NewVector(fp.Vector))
	if err != nil {
		return fmt.Errorf("upsert fingerprint: %w", err)
	}
	return nil
}

// Delete removes every print of an asset
func (r *FingerprintRepository) Delete(ctx context.Context, assetID string) error {
	if _, err := r.pool.db.ExecContext(ctx, "DELETE FROM fingerprints WHERE asset_id = $1", assetID); err != nil {
		return fmt.Errorf("delete fingerprint: %w", err)
	}
	return nil
}
