package database

import (
	"time"
)

// StoredFingerprint represents a feature print stored in the database
type StoredFingerprint struct {
	AssetID   string
	Model     string
	Vector    []float32
	CreatedAt time.Time
}
