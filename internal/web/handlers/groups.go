package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/kozaktomas/photo-curator/internal/constants"
	"github.com/kozaktomas/photo-curator/internal/grouping"
	"github.com/kozaktomas/photo-curator/internal/library"
	"github.com/kozaktomas/photo-curator/internal/logging"
	"github.com/kozaktomas/photo-curator/internal/recommend"
)

// GroupsHandler exposes analysis passes and per-group recommendations
type GroupsHandler struct {
	curator *recommend.Curator
	logger  *slog.Logger
}

// NewGroupsHandler creates a groups handler
func NewGroupsHandler(curator *recommend.Curator, logger *slog.Logger) *GroupsHandler {
	return &GroupsHandler{curator: curator, logger: logging.OrDefault(logger)}
}

type analyzeRequest struct {
	Mode string `json:"mode"`
}

// GroupSummary is a group without its full asset list
type GroupSummary struct {
	ID       uuid.UUID        `json:"id"`
	Title    string           `json:"title,omitempty"`
	Location library.Location `json:"location"`
	Size     int              `json:"size"`
	Preview  []library.Asset  `json:"preview"`
	State    recommend.State  `json:"state,omitempty"`
}

// GroupDetail is a group with its processing state and, once completed,
// its recommendation
type GroupDetail struct {
	GroupSummary
	Assets         []library.Asset           `json:"assets"`
	Recommendation *recommend.Recommendation `json:"recommendation,omitempty"`
}

func (h *GroupsHandler) summarize(g grouping.LocationGroup) GroupSummary {
	s := GroupSummary{
		ID:       g.ID,
		Title:    g.Title,
		Location: g.Location,
		Size:     g.Size(),
		Preview:  g.Preview(constants.GroupPreviewSize),
	}
	if state, ok := h.curator.Manager().State(g.ID); ok {
		s.State = state
	}
	return s
}

func (h *GroupsHandler) summaries(groups []grouping.LocationGroup) []GroupSummary {
	out := make([]GroupSummary, len(groups))
	for i, g := range groups {
		out[i] = h.summarize(g)
	}
	return out
}

// Analyze starts a new analysis pass
func (h *GroupsHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	mode, ok := grouping.ParseMode(req.Mode)
	if !ok {
		h.logger.Warn("unknown analysis mode", "mode", sanitizeForLog(req.Mode))
		respondError(w, http.StatusBadRequest, "unknown mode")
		return
	}

	// the pass outlives the request, group work runs on the manager
	groups, err := h.curator.Analyze(context.WithoutCancel(r.Context()), mode)
	if errors.Is(err, context.Canceled) {
		respondError(w, http.StatusConflict, "superseded by a newer analysis")
		return
	}
	if err != nil {
		h.logger.Error("analysis failed", "mode", mode, "error", err)
		respondError(w, http.StatusBadGateway, "failed to list library")
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]any{
		"mode":   mode,
		"groups": h.summaries(groups),
	})
}

// List returns the groups of the current pass
func (h *GroupsHandler) List(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"groups": h.summaries(h.curator.Groups()),
	})
}

// Get returns a group with its state and recommendation
func (h *GroupsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}
	g, found := h.curator.Group(id)
	if !found {
		respondError(w, http.StatusNotFound, "group not found")
		return
	}

	detail := GroupDetail{GroupSummary: h.summarize(g), Assets: g.Assets}
	if rec, ok := h.curator.Manager().Recommendation(id); ok {
		detail.Recommendation = &rec
	}
	respondJSON(w, http.StatusOK, detail)
}

// Process resubmits a group, typically after it was cancelled
func (h *GroupsHandler) Process(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}
	submitted, found := h.curator.Process(id)
	if !found {
		respondError(w, http.StatusNotFound, "group not found")
		return
	}

	state, _ := h.curator.Manager().State(id)
	status := http.StatusOK
	if submitted {
		status = http.StatusAccepted
	}
	respondJSON(w, status, map[string]any{
		"submitted": submitted,
		"state":     state,
	})
}

// CancelAll cancels every pending and running group
func (h *GroupsHandler) CancelAll(w http.ResponseWriter, r *http.Request) {
	h.curator.Manager().CancelAll()
	h.logger.Info("cancelled all processing")
	w.WriteHeader(http.StatusNoContent)
}
