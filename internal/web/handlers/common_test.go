package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/kozaktomas/photo-curator/internal/constants"
)

func TestRespondJSON(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		data       any
		wantBody   string
	}{
		{"OK with data", http.StatusOK, map[string]int{"count": 42}, `{"count":42}`},
		{"Created", http.StatusCreated, map[string]string{"id": "x"}, `{"id":"x"}`},
		{"NoContent without data", http.StatusNoContent, nil, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			respondJSON(recorder, tc.statusCode, tc.data)

			if recorder.Code != tc.statusCode {
				t.Errorf("expected status %d, got %d", tc.statusCode, recorder.Code)
			}
			if ct := recorder.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("expected Content-Type 'application/json', got '%s'", ct)
			}
			if got := strings.TrimSpace(recorder.Body.String()); got != tc.wantBody {
				t.Errorf("expected body %q, got %q", tc.wantBody, got)
			}
		})
	}
}

func TestRespondError(t *testing.T) {
	recorder := httptest.NewRecorder()
	respondError(recorder, http.StatusNotFound, "group not found")

	if recorder.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", recorder.Code)
	}
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if result["error"] != "group not found" {
		t.Errorf("expected error 'group not found', got '%s'", result["error"])
	}
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantErr  bool
		wantMode string
	}{
		{"valid body", `{"mode":"moment"}`, false, "moment"},
		{"empty body", "", false, ""},
		{"malformed", `{"mode":`, true, ""},
		{"too large", `{"mode":"` + strings.Repeat("x", constants.MaxRequestBodySize) + `"}`, true, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			var req analyzeRequest
			err := decodeJSON(recorder, jsonRequest(http.MethodPost, "/", tc.body), &req)

			if tc.wantErr != (err != nil) {
				t.Fatalf("expected error %v, got %v", tc.wantErr, err)
			}
			if req.Mode != tc.wantMode {
				t.Errorf("expected mode %q, got %q", tc.wantMode, req.Mode)
			}
		})
	}
}

func TestParseUUIDParam(t *testing.T) {
	valid := uuid.New()
	tests := []struct {
		name       string
		value      string
		wantOK     bool
		wantStatus int
	}{
		{"valid", valid.String(), true, http.StatusOK},
		{"invalid", "not-a-uuid", false, http.StatusBadRequest},
		{"missing", "", false, http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			req := requestWithChiParams(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"id": tc.value})

			id, ok := parseUUIDParam(recorder, req, "id")
			if ok != tc.wantOK {
				t.Fatalf("expected ok %v, got %v", tc.wantOK, ok)
			}
			if ok && id != valid {
				t.Errorf("expected %s, got %s", valid, id)
			}
			if recorder.Code != tc.wantStatus {
				t.Errorf("expected status %d, got %d", tc.wantStatus, recorder.Code)
			}
		})
	}
}

func TestSanitizeForLog(t *testing.T) {
	if got := sanitizeForLog("moment\r\nforged line"); got != "momentforged line" {
		t.Errorf("expected newlines stripped, got %q", got)
	}
}

func TestHealthCheck(t *testing.T) {
	recorder := httptest.NewRecorder()
	HealthCheck(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	if recorder.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", recorder.Code)
	}
	var result map[string]string
	decodeBody(t, recorder, &result)
	if result["status"] != "ok" {
		t.Errorf("expected status 'ok', got '%s'", result["status"])
	}
}
