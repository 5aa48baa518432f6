package handlers

import (
	"log/slog"
	"net/http"

	"github.com/kozaktomas/photo-curator/internal/labels"
	"github.com/kozaktomas/photo-curator/internal/logging"
)

// SettingsHandler reads and updates the persisted label policy
type SettingsHandler struct {
	settings *labels.Settings
	logger   *slog.Logger
}

// NewSettingsHandler creates a settings handler
func NewSettingsHandler(settings *labels.Settings, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{settings: settings, logger: logging.OrDefault(logger)}
}

// LabelSettings is the persisted label configuration
type LabelSettings struct {
	Required      []string `json:"required"`
	Excluded      []string `json:"excluded"`
	MaxPhotoCount int      `json:"max_photo_count"`
}

// labelSettingsUpdate is a partial update; nil fields are left unchanged
type labelSettingsUpdate struct {
	Required      *[]string `json:"required"`
	Excluded      *[]string `json:"excluded"`
	MaxPhotoCount *int      `json:"max_photo_count"`
}

func (h *SettingsHandler) respondCurrent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	required, err := h.settings.Required(ctx)
	if err != nil {
		h.internalError(w, err)
		return
	}
	excluded, err := h.settings.Excluded(ctx)
	if err != nil {
		h.internalError(w, err)
		return
	}
	maxCount, err := h.settings.MaxPhotoCount(ctx)
	if err != nil {
		h.internalError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, LabelSettings{
		Required:      nonNil(required),
		Excluded:      nonNil(excluded),
		MaxPhotoCount: maxCount,
	})
}

func (h *SettingsHandler) internalError(w http.ResponseWriter, err error) {
	h.logger.Error("settings store failed", "error", err)
	respondError(w, http.StatusInternalServerError, "failed to access settings")
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Get returns the label settings
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.respondCurrent(w, r)
}

// Put updates the fields present in the body and returns the result
func (h *SettingsHandler) Put(w http.ResponseWriter, r *http.Request) {
	var req labelSettingsUpdate
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.MaxPhotoCount != nil && *req.MaxPhotoCount < 0 {
		respondError(w, http.StatusBadRequest, "max_photo_count must not be negative")
		return
	}

	ctx := r.Context()
	if req.Required != nil {
		if err := h.settings.SetRequired(ctx, *req.Required); err != nil {
			h.internalError(w, err)
			return
		}
	}
	if req.Excluded != nil {
		if err := h.settings.SetExcluded(ctx, *req.Excluded); err != nil {
			h.internalError(w, err)
			return
		}
	}
	if req.MaxPhotoCount != nil {
		if err := h.settings.SetMaxPhotoCount(ctx, *req.MaxPhotoCount); err != nil {
			h.internalError(w, err)
			return
		}
	}
	h.respondCurrent(w, r)
}

// Reset restores the default label sets
func (h *SettingsHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.settings.Reset(r.Context()); err != nil {
		h.internalError(w, err)
		return
	}
	h.logger.Info("label settings reset to defaults")
	h.respondCurrent(w, r)
}
