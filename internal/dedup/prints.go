package dedup

import (
	"context"
	"log/slog"

	"github.com/kozaktomas/photo-curator/internal/cache"
	"github.com/kozaktomas/photo-curator/internal/database"
	"github.com/kozaktomas/photo-curator/internal/fingerprint"
	"github.com/kozaktomas/photo-curator/internal/logging"
)

// PrintCache memoizes feature prints by asset ID, optionally reading
// through and writing through to a persistent store. Store failures are
// logged and never fail a lookup.
type PrintCache struct {
	memo   *cache.Memo[string, fingerprint.Print]
	store  database.FingerprintWriter
	model  string
	logger *slog.Logger
}

// NewPrintCache creates a cache for prints of model. store may be nil.
// The caller owns memo.
func NewPrintCache(memo *cache.Memo[string, fingerprint.Print], store database.FingerprintWriter, model string, logger *slog.Logger) *PrintCache {
	return &PrintCache{memo: memo, store: store, model: model, logger: logging.OrDefault(logger)}
}

// Get returns the print of assetID
func (c *PrintCache) Get(ctx context.Context, assetID string) (fingerprint.Print, bool) {
	if p, ok := c.memo.Get(assetID); ok {
		return p, true
	}
	if c.store == nil {
		return fingerprint.Print{}, false
	}
	stored, err := c.store.Get(ctx, assetID, c.model)
	if err != nil {
		c.logger.Warn("failed to read stored print", "asset", assetID, "error", err)
		return fingerprint.Print{}, false
	}
	if stored == nil {
		return fingerprint.Print{}, false
	}
	p := fingerprint.Print{Vector: stored.Vector, Confidence: 1, Model: stored.Model}
	c.memo.Set(assetID, p)
	return p, true
}

// ClearCache drops the memoized prints. Persisted prints are kept and are
// read through again on the next Get.
func (c *PrintCache) ClearCache() {
	c.memo.Clear()
}

// Set stores the print of assetID
func (c *PrintCache) Set(ctx context.Context, assetID string, p fingerprint.Print) {
	c.memo.Set(assetID, p)
	if c.store == nil {
		return
	}
	err := c.store.Save(ctx, database.StoredFingerprint{
		AssetID: assetID,
		Model:   c.model,
		Vector:  p.Vector,
	})
	if err != nil {
		c.logger.Warn("failed to persist print", "asset", assetID, "error", err)
	}
}
