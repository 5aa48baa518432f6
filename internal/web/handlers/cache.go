package handlers

import (
	"log/slog"
	"net/http"
)

// CacheClearer drops memoized results
type CacheClearer interface {
	ClearCache()
}

// CacheHandler invalidates the process-wide label, print and place caches
type CacheHandler struct {
	caches []CacheClearer
	logger *slog.Logger
}

// NewCacheHandler creates a handler clearing caches
func NewCacheHandler(logger *slog.Logger, caches ...CacheClearer) *CacheHandler {
	return &CacheHandler{caches: caches, logger: logger}
}

// Clear empties every cache. Cached recommendations are not affected.
func (h *CacheHandler) Clear(w http.ResponseWriter, r *http.Request) {
	for _, c := range h.caches {
		c.ClearCache()
	}
	h.logger.Info("caches cleared", "caches", len(h.caches))
	w.WriteHeader(http.StatusNoContent)
}
