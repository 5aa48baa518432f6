package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SettingsRepository stores settings in the settings table
type SettingsRepository struct {
	pool *Pool
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(pool *Pool) *SettingsRepository {
	return &SettingsRepository{pool: pool}
}

// GetSetting returns the value for key and whether it exists
func (r *SettingsRepository) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.pool.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE name = $1", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query setting: %w", err)
	}
	return value, true, nil
}

// PutSetting creates or replaces the value for key
func (r *SettingsRepository) PutSetting(ctx context.Context, key, value string) error {
	_, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO settings (name, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`, key, value)
	if err != nil {
		return fmt.Errorf("upsert setting: %w", err)
	}
	return nil
}

// DeleteSetting removes key
func (r *SettingsRepository) DeleteSetting(ctx context.Context, key string) error {
	if _, err := r.pool.db.ExecContext(ctx, "DELETE FROM settings WHERE name = $1", key); err != nil {
		return fmt.Errorf("delete setting: %w", err)
	}
	return nil
}
