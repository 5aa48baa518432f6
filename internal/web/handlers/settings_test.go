package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"

	"github.com/kozaktomas/photo-curator/internal/config"
	dbmock "github.com/kozaktomas/photo-curator/internal/database/mock"
	"github.com/kozaktomas/photo-curator/internal/labels"
)

var testDefaults = config.LabelDefaults{
	Required: []string{"beach", "mountain"},
	Excluded: []string{"screenshot"},
}

func newSettingsHandler(t *testing.T) (*SettingsHandler, *dbmock.MockSettingsStore) {
	t.Helper()
	store := dbmock.NewMockSettingsStore()
	settings := labels.NewSettings(store, testDefaults)
	if _, err := settings.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate settings: %v", err)
	}
	return NewSettingsHandler(settings, discard), store
}

func TestSettingsHandler_Get(t *testing.T) {
	h, _ := newSettingsHandler(t)

	recorder := httptest.NewRecorder()
	h.Get(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/settings/labels", nil))
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", recorder.Code)
	}

	var got LabelSettings
	decodeBody(t, recorder, &got)
	if !slices.Equal(got.Required, testDefaults.Required) {
		t.Errorf("expected required %v, got %v", testDefaults.Required, got.Required)
	}
	if !slices.Equal(got.Excluded, testDefaults.Excluded) {
		t.Errorf("expected excluded %v, got %v", testDefaults.Excluded, got.Excluded)
	}
	if got.MaxPhotoCount != 0 {
		t.Errorf("expected unlimited photo count, got %d", got.MaxPhotoCount)
	}
}

func TestSettingsHandler_Put(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		wantStatus   int
		wantRequired []string
		wantExcluded []string
		wantMax      int
	}{
		{
			name:         "partial update keeps other fields",
			body:         `{"required":["Sunset","beach"]}`,
			wantStatus:   http.StatusOK,
			wantRequired: []string{"beach", "sunset"},
			wantExcluded: []string{"screenshot"},
		},
		{
			name:         "clear excluded and set limit",
			body:         `{"excluded":[],"max_photo_count":250}`,
			wantStatus:   http.StatusOK,
			wantRequired: []string{"beach", "mountain"},
			wantExcluded: []string{},
			wantMax:      250,
		},
		{
			name:       "negative limit",
			body:       `{"max_photo_count":-1}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed",
			body:       `{"required":`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h, _ := newSettingsHandler(t)

			recorder := httptest.NewRecorder()
			h.Put(recorder, jsonRequest(http.MethodPut, "/api/v1/settings/labels", tc.body))
			if recorder.Code != tc.wantStatus {
				t.Fatalf("expected status %d, got %d", tc.wantStatus, recorder.Code)
			}
			if tc.wantStatus != http.StatusOK {
				return
			}

			var got LabelSettings
			decodeBody(t, recorder, &got)
			if !slices.Equal(got.Required, tc.wantRequired) {
				t.Errorf("expected required %v, got %v", tc.wantRequired, got.Required)
			}
			if !slices.Equal(got.Excluded, tc.wantExcluded) {
				t.Errorf("expected excluded %v, got %v", tc.wantExcluded, got.Excluded)
			}
			if got.MaxPhotoCount != tc.wantMax {
				t.Errorf("expected max photo count %d, got %d", tc.wantMax, got.MaxPhotoCount)
			}
		})
	}
}

func TestSettingsHandler_Reset(t *testing.T) {
	h, _ := newSettingsHandler(t)

	recorder := httptest.NewRecorder()
	h.Put(recorder, jsonRequest(http.MethodPut, "/", `{"required":["dog"],"excluded":["cat"]}`))
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", recorder.Code)
	}

	recorder = httptest.NewRecorder()
	h.Reset(recorder, httptest.NewRequest(http.MethodPost, "/api/v1/settings/labels/reset", nil))
	var got LabelSettings
	decodeBody(t, recorder, &got)
	if !slices.Equal(got.Required, testDefaults.Required) || !slices.Equal(got.Excluded, testDefaults.Excluded) {
		t.Errorf("expected defaults after reset, got %+v", got)
	}
}

func TestSettingsHandler_StoreErrors(t *testing.T) {
	h, store := newSettingsHandler(t)
	store.GetError = errors.New("disk full")
	store.PutError = errors.New("disk full")

	tests := []struct {
		name    string
		handler http.HandlerFunc
		req     *http.Request
	}{
		{"get", h.Get, httptest.NewRequest(http.MethodGet, "/", nil)},
		{"put", h.Put, jsonRequest(http.MethodPut, "/", `{"required":["dog"]}`)},
		{"reset", h.Reset, httptest.NewRequest(http.MethodPost, "/", nil)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			tc.handler(recorder, tc.req)
			if recorder.Code != http.StatusInternalServerError {
				t.Errorf("expected status 500, got %d", recorder.Code)
			}
		})
	}
}
