//go:build integration

package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kozaktomas/photo-curator/internal/config"
	"github.com/kozaktomas/photo-curator/internal/database"
)

func setupTestContainer(t *testing.T) (*Store, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	cfg := &config.DatabaseConfig{
		URL:          fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port()),
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	store, err := Open(ctx, cfg, nil)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to open store: %v", err)
	}

	cleanup := func() {
		store.Close()
		container.Terminate(ctx)
	}
	return store, cleanup
}

func TestMigrations(t *testing.T) {
	store, cleanup := setupTestContainer(t)
	if store == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	versions, err := store.pool.MigrationsApplied(ctx)
	if err != nil {
		t.Fatalf("Failed to list migrations: %v", err)
	}
	if len(versions) != 1 || versions[0] != "001_init.sql" {
		t.Errorf("Expected [001_init.sql], got %v", versions)
	}

	// a second run applies nothing
	if err := store.pool.Migrate(ctx, nil); err != nil {
		t.Fatalf("Failed to rerun migrations: %v", err)
	}
}

func TestSettingsRepository(t *testing.T) {
	store, cleanup := setupTestContainer(t)
	if store == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()

	if _, ok, err := store.GetSetting(ctx, database.SettingRequiredLabels); err != nil || ok {
		t.Fatalf("Expected missing setting, got ok=%v err=%v", ok, err)
	}

	if err := store.PutSetting(ctx, database.SettingRequiredLabels, `["beach"]`); err != nil {
		t.Fatalf("Failed to put setting: %v", err)
	}
	if err := store.PutSetting(ctx, database.SettingRequiredLabels, `["beach","forest"]`); err != nil {
		t.Fatalf("Failed to overwrite setting: %v", err)
	}

	got, ok, err := store.GetSetting(ctx, database.SettingRequiredLabels)
	if err != nil || !ok {
		t.Fatalf("Expected setting, got ok=%v err=%v", ok, err)
	}
	if got != `["beach","forest"]` {
		t.Errorf("Expected overwritten value, got %s", got)
	}

	if err := store.DeleteSetting(ctx, database.SettingRequiredLabels); err != nil {
		t.Fatalf("Failed to delete setting: %v", err)
	}
	if err := store.DeleteSetting(ctx, database.SettingRequiredLabels); err != nil {
		t.Errorf("Expected deleting a missing key to succeed, got %v", err)
	}
}

func TestFingerprintRepository(t *testing.T) {
	store, cleanup := setupTestContainer(t)
	if store == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := store.fingerprints

	prints := []database.StoredFingerprint{
		{AssetID: "a", Model: "clip", Vector: []float32{1, 0, 0}},
		{AssetID: "b", Model: "clip", Vector: []float32{0.9, 0.1, 0}},
		{AssetID: "c", Model: "clip", Vector: []float32{0, 1, 0}},
		{AssetID: "a", Model: "phash", Vector: []float32{1, 1}},
	}
	for _, fp := range prints {
		if err := repo.Save(ctx, fp); err != nil {
			t.Fatalf("Failed to save print: %v", err)
		}
	}

	t.Run("Get", func(t *testing.T) {
		got, err := repo.Get(ctx, "b", "clip")
		if err != nil {
			t.Fatalf("Failed to get print: %v", err)
		}
		if got == nil || len(got.Vector) != 3 || got.CreatedAt.IsZero() {
			t.Fatalf("Unexpected print: %+v", got)
		}

		missing, err := repo.Get(ctx, "b", "phash")
		if err != nil || missing != nil {
			t.Errorf("Expected nil for missing print, got %+v, %v", missing, err)
		}
	})

	t.Run("CountAndList", func(t *testing.T) {
		count, err := repo.Count(ctx)
		if err != nil || count != 4 {
			t.Errorf("Expected 4 prints, got %d (%v)", count, err)
		}
		n, err := repo.CountByAssets(ctx, []string{"a", "c", "z"}, "clip")
		if err != nil || n != 2 {
			t.Errorf("Expected 2 clip prints among a,c,z, got %d (%v)", n, err)
		}
		list, err := repo.List(ctx, "clip")
		if err != nil || len(list) != 3 || list[0].AssetID != "a" {
			t.Errorf("Expected 3 clip prints starting with a, got %+v (%v)", list, err)
		}
	})

	t.Run("FindNearest", func(t *testing.T) {
		hits, err := repo.FindNearest(ctx, []float32{1, 0, 0}, "clip", 2)
		if err != nil {
			t.Fatalf("Failed to search: %v", err)
		}
		if len(hits) != 2 || hits[0].AssetID != "a" || hits[1].AssetID != "b" {
			t.Errorf("Expected [a b], got %+v", hits)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := repo.Delete(ctx, "a"); err != nil {
			t.Fatalf("Failed to delete: %v", err)
		}
		count, _ := repo.Count(ctx)
		if count != 2 {
			t.Errorf("Expected both prints of a removed, got %d left", count)
		}
	})
}
