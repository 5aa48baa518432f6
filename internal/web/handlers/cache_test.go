package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

type countingCache struct {
	cleared int
}

func (c *countingCache) ClearCache() {
	c.cleared++
}

func TestCacheHandler_Clear(t *testing.T) {
	labels, prints := &countingCache{}, &countingCache{}
	h := NewCacheHandler(discard, labels, prints)

	recorder := httptest.NewRecorder()
	h.Clear(recorder, httptest.NewRequest(http.MethodDelete, "/api/v1/cache", nil))

	if recorder.Code != http.StatusNoContent {
		t.Errorf("expected status %d, got %d", http.StatusNoContent, recorder.Code)
	}
	if labels.cleared != 1 || prints.cleared != 1 {
		t.Errorf("expected every cache cleared once, got %d and %d", labels.cleared, prints.cleared)
	}
}
