// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/kozaktomas/photo-curator/internal/database"
)

// MockSettingsStore is a mock implementation of database.SettingsStore
type MockSettingsStore struct {
	mu     sync.RWMutex
	values map[string]string
	puts   int

	// Error injection
	GetError    error
	PutError    error
	DeleteError error
}

// NewMockSettingsStore creates a new mock settings store
func NewMockSettingsStore() *MockSettingsStore {
	return &MockSettingsStore{
		values: make(map[string]string),
	}
}

// GetSetting returns the value for key
func (m *MockSettingsStore) GetSetting(ctx context.Context, key string) (string, bool, error) {
	if m.GetError != nil {
		return "", false, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

// PutSetting stores the value for key
func (m *MockSettingsStore) PutSetting(ctx context.Context, key, value string) error {
	if m.PutError != nil {
		return m.PutError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	m.puts++
	return nil
}

// DeleteSetting removes key
func (m *MockSettingsStore) DeleteSetting(ctx context.Context, key string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// Puts returns how many writes were made
func (m *MockSettingsStore) Puts() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.puts
}

// MockFingerprintStore is a mock implementation of database.FingerprintWriter
type MockFingerprintStore struct {
	mu     sync.RWMutex
	prints map[string]database.StoredFingerprint // keyed by model + "/" + asset ID

	// Error injection
	GetError    error
	CountError  error
	ListError   error
	SaveError   error
	DeleteError error
}

// NewMockFingerprintStore creates a new mock fingerprint store
func NewMockFingerprintStore() *MockFingerprintStore {
	return &MockFingerprintStore{
		prints: make(map[string]database.StoredFingerprint),
	}
}

func printKey(model, assetID string) string {
	return model + "/" + assetID
}

// Get retrieves a print by asset ID and model
func (m *MockFingerprintStore) Get(ctx context.Context, assetID, model string) (*database.StoredFingerprint, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	fp, ok := m.prints[printKey(model, assetID)]
	if !ok {
		return nil, nil
	}
	return &fp, nil
}

// Count returns the number of stored prints
func (m *MockFingerprintStore) Count(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.prints), nil
}

// List returns every print for a model
func (m *MockFingerprintStore) List(ctx context.Context, model string) ([]database.StoredFingerprint, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []database.StoredFingerprint
	for _, fp := range m.prints {
		if fp.Model == model {
			out = append(out, fp)
		}
	}
	return out, nil
}

// Save stores a print
func (m *MockFingerprintStore) Save(ctx context.Context, fp database.StoredFingerprint) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if fp.CreatedAt.IsZero() {
		fp.CreatedAt = time.Now()
	}
	m.prints[printKey(fp.Model, fp.AssetID)] = fp
	return nil
}

// Delete removes all prints of an asset
func (m *MockFingerprintStore) Delete(ctx context.Context, assetID string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, fp := range m.prints {
		if fp.AssetID == assetID {
			delete(m.prints, k)
		}
	}
	return nil
}

// MockStore is a mock implementation of database.Store
type MockStore struct {
	*MockSettingsStore
	FingerprintStore *MockFingerprintStore
	Closed           bool
}

// NewMockStore creates a new mock store
func NewMockStore() *MockStore {
	return &MockStore{
		MockSettingsStore: NewMockSettingsStore(),
		FingerprintStore:  NewMockFingerprintStore(),
	}
}

// Fingerprints returns the fingerprint repository
func (m *MockStore) Fingerprints() database.FingerprintWriter {
	return m.FingerprintStore
}

// Close marks the store as closed
func (m *MockStore) Close() error {
	m.Closed = true
	return nil
}
