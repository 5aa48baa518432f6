package labels

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"

	"github.com/kozaktomas/photo-curator/internal/config"
	"github.com/kozaktomas/photo-curator/internal/database"
)

// Settings is the persisted label configuration
type Settings struct {
	store    database.SettingsStore
	defaults config.LabelDefaults
}

// NewSettings wraps store with the built-in defaults
func NewSettings(store database.SettingsStore, defaults config.LabelDefaults) *Settings {
	return &Settings{store: store, defaults: defaults}
}

// Migrate applies the defaults once per installation
func (s *Settings) Migrate(ctx context.Context) (bool, error) {
	_, done, err := s.store.GetSetting(ctx, database.SettingResetOnce)
	if err != nil {
		return false, fmt.Errorf("failed to read reset flag: %w", err)
	}
	if done {
		return false, nil
	}
	if err := s.Reset(ctx); err != nil {
		return false, err
	}
	if err := s.store.PutSetting(ctx, database.SettingResetOnce, "true"); err != nil {
		return false, fmt.Errorf("failed to write reset flag: %w", err)
	}
	return true, nil
}

// Reset restores the default label sets
func (s *Settings) Reset(ctx context.Context) error {
	if err := s.SetRequired(ctx, s.defaults.Required); err != nil {
		return err
	}
	return s.SetExcluded(ctx, s.defaults.Excluded)
}

// Policy loads the current label policy
func (s *Settings) Policy(ctx context.Context) (Policy, error) {
	required, err := s.Required(ctx)
	if err != nil {
		return Policy{}, err
	}
	excluded, err := s.Excluded(ctx)
	if err != nil {
		return Policy{}, err
	}
	return NewPolicy(required, excluded), nil
}

// Required returns the required label set, sorted
func (s *Settings) Required(ctx context.Context) ([]string, error) {
	return s.loadSet(ctx, database.SettingRequiredLabels, s.defaults.Required)
}

// Excluded returns the excluded label set, sorted
func (s *Settings) Excluded(ctx context.Context) ([]string, error) {
	return s.loadSet(ctx, database.SettingExcludedLabels, s.defaults.Excluded)
}

// SetRequired replaces the required label set
func (s *Settings) SetRequired(ctx context.Context, names []string) error {
	return s.storeSet(ctx, database.SettingRequiredLabels, names)
}

// SetExcluded replaces the excluded label set
func (s *Settings) SetExcluded(ctx context.Context, names []string) error {
	return s.storeSet(ctx, database.SettingExcludedLabels, names)
}

// AddRequired adds names to the required set
func (s *Settings) AddRequired(ctx context.Context, names ...string) error {
	return s.modify(ctx, database.SettingRequiredLabels, s.defaults.Required, names, true)
}

// RemoveRequired removes names from the required set
func (s *Settings) RemoveRequired(ctx context.Context, names ...string) error {
	return s.modify(ctx, database.SettingRequiredLabels, s.defaults.Required, names, false)
}

// AddExcluded adds names to the excluded set
func (s *Settings) AddExcluded(ctx context.Context, names ...string) error {
	return s.modify(ctx, database.SettingExcludedLabels, s.defaults.Excluded, names, true)
}

// RemoveExcluded removes names from the excluded set
func (s *Settings) RemoveExcluded(ctx context.Context, names ...string) error {
	return s.modify(ctx, database.SettingExcludedLabels, s.defaults.Excluded, names, false)
}

// MaxPhotoCount returns how many photos to analyze, 0 means all
func (s *Settings) MaxPhotoCount(ctx context.Context) (int, error) {
	raw, ok, err := s.store.GetSetting(ctx, database.SettingMaxPhotoCount)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", database.SettingMaxPhotoCount, err)
	}
	if !ok {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, nil
	}
	return n, nil
}

// SetMaxPhotoCount stores how many photos to analyze, 0 means all
func (s *Settings) SetMaxPhotoCount(ctx context.Context, n int) error {
	if n < 0 {
		return fmt.Errorf("max photo count must not be negative, got %d", n)
	}
	if err := s.store.PutSetting(ctx, database.SettingMaxPhotoCount, strconv.Itoa(n)); err != nil {
		return fmt.Errorf("failed to write %s: %w", database.SettingMaxPhotoCount, err)
	}
	return nil
}

func (s *Settings) modify(ctx context.Context, key string, fallback, names []string, add bool) error {
	current, err := s.loadSet(ctx, key, fallback)
	if err != nil {
		return err
	}
	set := toSet(current)
	for _, n := range names {
		n = Normalize(n)
		if add {
			set[n] = struct{}{}
		} else {
			delete(set, n)
		}
	}
	return s.storeSet(ctx, key, sortedKeys(set))
}

// loadSet decodes a JSON array setting. A missing or undecodable value
// yields the fallback.
func (s *Settings) loadSet(ctx context.Context, key string, fallback []string) ([]string, error) {
	raw, ok, err := s.store.GetSetting(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if !ok {
		return sortedKeys(toSet(fallback)), nil
	}
	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err != nil {
		return sortedKeys(toSet(fallback)), nil
	}
	return sortedKeys(toSet(names)), nil
}

func (s *Settings) storeSet(ctx context.Context, key string, names []string) error {
	sorted := sortedKeys(toSet(names))
	data, err := json.Marshal(sorted)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := s.store.PutSetting(ctx, key, string(data)); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Contains reports whether name is in a sorted label list
func Contains(sorted []string, name string) bool {
	_, found := slices.BinarySearch(sorted, Normalize(name))
	return found
}
