package labels_test

import (
	"context"
	"errors"
	"testing"

	"github.com/kozaktomas/photo-curator/internal/config"
	"github.com/kozaktomas/photo-curator/internal/database"
	dbmock "github.com/kozaktomas/photo-curator/internal/database/mock"
	"github.com/kozaktomas/photo-curator/internal/labels"
)

var testDefaults = config.LabelDefaults{
	Required: []string{"beach", "sunset"},
	Excluded: []string{"document", "screenshot"},
}

func TestSettings_MigrateOnce(t *testing.T) {
	store := dbmock.NewMockSettingsStore()
	s := labels.NewSettings(store, testDefaults)
	ctx := context.Background()

	applied, err := s.Migrate(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !applied {
		t.Error("expected defaults to be applied on first migrate")
	}

	if err := s.SetRequired(ctx, []string{"park"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	applied, err = s.Migrate(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if applied {
		t.Error("expected second migrate to be a no-op")
	}

	required, _ := s.Required(ctx)
	if len(required) != 1 || required[0] != "park" {
		t.Errorf("expected user change to survive, got %v", required)
	}
}

func TestSettings_DefaultsWhenUnset(t *testing.T) {
	s := labels.NewSettings(dbmock.NewMockSettingsStore(), testDefaults)

	p, err := s.Policy(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.Allows("beach") || p.Allows("screenshot") || p.Allows("office") {
		t.Errorf("expected default policy, got required=%v excluded=%v", p.Required(), p.Excluded())
	}
}

func TestSettings_CorruptValueFallsBack(t *testing.T) {
	store := dbmock.NewMockSettingsStore()
	store.PutSetting(context.Background(), database.SettingExcludedLabels, "not json")
	s := labels.NewSettings(store, testDefaults)

	excluded, err := s.Excluded(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(excluded) != 2 {
		t.Errorf("expected default excluded labels, got %v", excluded)
	}
}

func TestSettings_AddRemoveReset(t *testing.T) {
	store := dbmock.NewMockSettingsStore()
	s := labels.NewSettings(store, testDefaults)
	ctx := context.Background()

	if err := s.AddRequired(ctx, "Park", "beach"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.RemoveRequired(ctx, "sunset"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.AddExcluded(ctx, "receipt"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.RemoveExcluded(ctx, "document"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	required, _ := s.Required(ctx)
	if len(required) != 2 || required[0] != "beach" || required[1] != "park" {
		t.Errorf("expected [beach park], got %v", required)
	}
	excluded, _ := s.Excluded(ctx)
	if !labels.Contains(excluded, "receipt") || labels.Contains(excluded, "document") {
		t.Errorf("expected receipt without document, got %v", excluded)
	}

	raw, _, _ := store.GetSetting(ctx, database.SettingRequiredLabels)
	if raw != `["beach","park"]` {
		t.Errorf("expected sorted JSON array, got %s", raw)
	}

	if err := s.Reset(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	required, _ = s.Required(ctx)
	if len(required) != 2 || required[1] != "sunset" {
		t.Errorf("expected defaults after reset, got %v", required)
	}
}

func TestSettings_MaxPhotoCount(t *testing.T) {
	s := labels.NewSettings(dbmock.NewMockSettingsStore(), testDefaults)
	ctx := context.Background()

	n, err := s.MaxPhotoCount(ctx)
	if err != nil || n != 0 {
		t.Errorf("expected unlimited by default, got %d (%v)", n, err)
	}

	if err := s.SetMaxPhotoCount(ctx, 250); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n, _ := s.MaxPhotoCount(ctx); n != 250 {
		t.Errorf("expected 250, got %d", n)
	}
	if err := s.SetMaxPhotoCount(ctx, -1); err == nil {
		t.Error("expected error for negative count")
	}
}

func TestSettings_StoreErrors(t *testing.T) {
	store := dbmock.NewMockSettingsStore()
	store.GetError = errors.New("db down")
	s := labels.NewSettings(store, testDefaults)

	if _, err := s.Policy(context.Background()); err == nil {
		t.Error("expected error when the store fails")
	}
	if _, err := s.Migrate(context.Background()); err == nil {
		t.Error("expected migrate to surface store errors")
	}
}
