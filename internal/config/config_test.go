package config

import (
	"strings"
	"testing"
)

func TestPhotoURL_EmptyDomain(t *testing.T) {
	cfg := PhotoPrismConfig{
		Domain: "",
	}

	result := cfg.PhotoURL("photo123")

	if result != "" {
		t.Errorf("expected empty string for empty domain, got '%s'", result)
	}
}

func TestPhotoURL_CorrectFormat(t *testing.T) {
	cfg := PhotoPrismConfig{
		Domain: "https://photos.example.com",
	}

	result := cfg.PhotoURL("test123")

	expected := "\x1b]8;;https://photos.example.com/library/browse?view=cards&q=uid:test123\x1b\\test123\x1b]8;;\x1b\\"
	if result != expected {
		t.Errorf("expected %q, got %q", expected, result)
	}
}

func TestEnvInt(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected int
	}{
		{"unset", "", 7},
		{"valid", "12", 12},
		{"zero falls back", "0", 7},
		{"negative falls back", "-3", 7},
		{"garbage falls back", "abc", 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_ENV_INT", tt.value)
			if got := envInt("TEST_ENV_INT", 7); got != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestEnvFloat(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected float64
	}{
		{"unset", "", 0.35},
		{"valid", "0.2", 0.2},
		{"zero falls back", "0", 0.35},
		{"garbage falls back", "x", 0.35},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_ENV_FLOAT", tt.value)
			if got := envFloat("TEST_ENV_FLOAT", 0.35); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestDefaultLabels(t *testing.T) {
	defaults := DefaultLabels()

	if len(defaults.Required) < 80 {
		t.Errorf("expected the full default vocabulary, got %d labels", len(defaults.Required))
	}
	if len(defaults.Excluded) != 2 {
		t.Fatalf("expected 2 excluded labels, got %d", len(defaults.Excluded))
	}
	for _, label := range append(defaults.Required, defaults.Excluded...) {
		if label != strings.ToLower(label) {
			t.Errorf("expected lowercase label, got '%s'", label)
		}
	}
}

func TestLoad_PipelineDefaults(t *testing.T) {
	t.Setenv("GROUP_THRESHOLD_KM", "")
	t.Setenv("DEDUP_THRESHOLD", "")
	t.Setenv("MAX_CONCURRENCY", "")

	cfg := Load()

	if cfg.Pipeline.GroupThresholdKM != 50.0 {
		t.Errorf("expected 50km, got %v", cfg.Pipeline.GroupThresholdKM)
	}
	if cfg.Pipeline.DedupThreshold != 0.35 {
		t.Errorf("expected 0.35, got %v", cfg.Pipeline.DedupThreshold)
	}
	if cfg.Pipeline.MaxConcurrency != 10 {
		t.Errorf("expected 10, got %d", cfg.Pipeline.MaxConcurrency)
	}
}

func TestLoad_Web(t *testing.T) {
	t.Setenv("WEB_PORT", "9090")
	t.Setenv("WEB_ALLOWED_ORIGINS", "https://a.example.com, ,https://b.example.com")

	cfg := Load()

	if cfg.Web.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Web.Port)
	}
	if len(cfg.Web.AllowedOrigins) != 2 || cfg.Web.AllowedOrigins[1] != "https://b.example.com" {
		t.Errorf("expected two origins, got %v", cfg.Web.AllowedOrigins)
	}
}
