package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/photo-curator/internal/constants"
	"github.com/kozaktomas/photo-curator/internal/database"
)

// SimilarHandler answers nearest neighbor queries over indexed prints
type SimilarHandler struct {
	index *database.FingerprintIndex
}

// NewSimilarHandler creates a similarity handler over index
func NewSimilarHandler(index *database.FingerprintIndex) *SimilarHandler {
	return &SimilarHandler{index: index}
}

// Similar returns assets whose prints are close to the given asset's print.
// Query parameters: limit (default 20, max 100) and max_distance (default 0.5).
func (h *SimilarHandler) Similar(w http.ResponseWriter, r *http.Request) {
	assetID := chi.URLParam(r, "id")
	if assetID == "" {
		respondError(w, http.StatusBadRequest, "missing asset ID")
		return
	}

	limit := constants.DefaultSimilarLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, constants.MaxSimilarLimit)
	}

	maxDistance := constants.DefaultSimilarMaxDistance
	if s := r.URL.Query().Get("max_distance"); s != "" {
		d, err := strconv.ParseFloat(s, 64)
		if err != nil || d <= 0 {
			respondError(w, http.StatusBadRequest, "invalid max_distance")
			return
		}
		maxDistance = d
	}

	fp := h.index.Get(assetID)
	if fp == nil {
		respondError(w, http.StatusNotFound, "no fingerprint for asset")
		return
	}

	hits, err := h.index.Search(fp.Vector, limit, maxDistance, assetID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "search failed")
		return
	}
	if hits == nil {
		hits = []database.Neighbor{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"asset_id": assetID,
		"model":    fp.Model,
		"results":  hits,
	})
}
