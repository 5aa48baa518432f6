package database

import (
	"context"
)

// SettingsStore is a persistent key-value store for user settings
type SettingsStore interface {
	// GetSetting returns the value for key and whether it exists
	GetSetting(ctx context.Context, key string) (string, bool, error)
	// PutSetting creates or replaces the value for key
	PutSetting(ctx context.Context, key, value string) error
	// DeleteSetting removes key, it is not an error if key does not exist
	DeleteSetting(ctx context.Context, key string) error
}

// FingerprintReader provides read-only access to persisted feature prints
type FingerprintReader interface {
	// Get retrieves the print of an asset for a model, returns nil if not found
	Get(ctx context.Context, assetID, model string) (*StoredFingerprint, error)
	// Count returns the total number of prints stored
	Count(ctx context.Context) (int, error)
	// List returns every stored print for a model
	List(ctx context.Context, model string) ([]StoredFingerprint, error)
}

// FingerprintWriter provides write access to persisted feature prints
type FingerprintWriter interface {
	FingerprintReader

	// Save creates or replaces the print of an asset
	Save(ctx context.Context, fp StoredFingerprint) error
	// Delete removes every print of an asset
	Delete(ctx context.Context, assetID string) error
}

// Store bundles the repositories of one storage backend
type Store interface {
	SettingsStore
	Fingerprints() FingerprintWriter
	Close() error
}
