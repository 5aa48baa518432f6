package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/kozaktomas/photo-curator/internal/recommend"
)

func analyze(t *testing.T, h *GroupsHandler, body string) (int, []GroupSummary) {
	t.Helper()
	recorder := httptest.NewRecorder()
	h.Analyze(recorder, jsonRequest(http.MethodPost, "/api/v1/analyze", body))

	var result struct {
		Mode   string         `json:"mode"`
		Groups []GroupSummary `json:"groups"`
	}
	if recorder.Code == http.StatusAccepted {
		decodeBody(t, recorder, &result)
	}
	return recorder.Code, result.Groups
}

func TestGroupsHandler_Analyze(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantGroups int
	}{
		{"default mode", "", http.StatusAccepted, 1},
		{"distance", `{"mode":"distance"}`, http.StatusAccepted, 1},
		{"moment without moments", `{"mode":"moment"}`, http.StatusAccepted, 0},
		{"unknown mode", `{"mode":"season"}`, http.StatusBadRequest, 0},
		{"malformed", `{"mode":`, http.StatusBadRequest, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			curator := newTestCurator(t, twoCityLibrary(), keepAll{})
			h := NewGroupsHandler(curator, discard)

			status, groups := analyze(t, h, tc.body)
			if status != tc.wantStatus {
				t.Fatalf("expected status %d, got %d", tc.wantStatus, status)
			}
			if len(groups) != tc.wantGroups {
				t.Errorf("expected %d groups, got %d", tc.wantGroups, len(groups))
			}
		})
	}
}

func TestGroupsHandler_AnalyzeListError(t *testing.T) {
	lib := twoCityLibrary()
	lib.ListError = errors.New("connection refused")
	h := NewGroupsHandler(newTestCurator(t, lib, keepAll{}), discard)

	status, _ := analyze(t, h, "")
	if status != http.StatusBadGateway {
		t.Errorf("expected status 502, got %d", status)
	}
}

func TestGroupsHandler_ListAndGet(t *testing.T) {
	curator := newTestCurator(t, twoCityLibrary(), keepAll{})
	h := NewGroupsHandler(curator, discard)

	_, groups := analyze(t, h, "")
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	curator.Manager().Wait()

	recorder := httptest.NewRecorder()
	h.List(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/groups", nil))
	var list struct {
		Groups []GroupSummary `json:"groups"`
	}
	decodeBody(t, recorder, &list)
	if len(list.Groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(list.Groups))
	}
	got := list.Groups[0]
	if got.Size != 2 || got.State != recommend.StateCompleted {
		t.Errorf("expected completed group of 2, got size %d state %q", got.Size, got.State)
	}

	recorder = httptest.NewRecorder()
	req := requestWithChiParams(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"id": got.ID.String()})
	h.Get(recorder, req)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", recorder.Code)
	}
	var detail GroupDetail
	decodeBody(t, recorder, &detail)
	if detail.Recommendation == nil {
		t.Fatal("expected a recommendation")
	}
	if len(detail.Recommendation.Assets) != 2 || len(detail.Assets) != 2 {
		t.Errorf("expected 2 assets and 2 recommended, got %d and %d", len(detail.Assets), len(detail.Recommendation.Assets))
	}
}

func TestGroupsHandler_GetErrors(t *testing.T) {
	h := NewGroupsHandler(newTestCurator(t, twoCityLibrary(), keepAll{}), discard)

	tests := []struct {
		name       string
		id         string
		wantStatus int
	}{
		{"invalid id", "nope", http.StatusBadRequest},
		{"unknown group", uuid.NewString(), http.StatusNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			params := map[string]string{"id": tc.id}
			recorder := httptest.NewRecorder()
			h.Get(recorder, requestWithChiParams(httptest.NewRequest(http.MethodGet, "/", nil), params))
			if recorder.Code != tc.wantStatus {
				t.Errorf("Get: expected status %d, got %d", tc.wantStatus, recorder.Code)
			}

			recorder = httptest.NewRecorder()
			h.Process(recorder, requestWithChiParams(httptest.NewRequest(http.MethodPost, "/", nil), params))
			if recorder.Code != tc.wantStatus {
				t.Errorf("Process: expected status %d, got %d", tc.wantStatus, recorder.Code)
			}
		})
	}
}

func TestGroupsHandler_CancelAndProcess(t *testing.T) {
	curator := newTestCurator(t, twoCityLibrary(), blocking{})
	h := NewGroupsHandler(curator, discard)

	_, groups := analyze(t, h, "")
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	id := groups[0].ID

	recorder := httptest.NewRecorder()
	h.CancelAll(recorder, httptest.NewRequest(http.MethodDelete, "/api/v1/processing", nil))
	if recorder.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", recorder.Code)
	}
	if state, _ := curator.Manager().State(id); state != recommend.StateCancelled {
		t.Fatalf("expected cancelled, got %q", state)
	}

	params := map[string]string{"id": id.String()}
	process := func() (int, bool) {
		recorder := httptest.NewRecorder()
		h.Process(recorder, requestWithChiParams(httptest.NewRequest(http.MethodPost, "/", nil), params))
		var result struct {
			Submitted bool `json:"submitted"`
		}
		decodeBody(t, recorder, &result)
		return recorder.Code, result.Submitted
	}

	if status, submitted := process(); status != http.StatusAccepted || !submitted {
		t.Errorf("expected resubmission with 202, got %d submitted=%v", status, submitted)
	}
	// already running again
	if status, submitted := process(); status != http.StatusOK || submitted {
		t.Errorf("expected no resubmission with 200, got %d submitted=%v", status, submitted)
	}
	curator.Manager().CancelAll()
}
