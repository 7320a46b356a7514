package db_test

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hedhosts/hed/internal/db"
)

func TestDatabaseOperations(t *testing.T) {
	t.Setenv("HED_DATA_DIR", t.TempDir())
	t.Setenv("HED_DB_PATH", "")

	t.Run("FirstRun", func(t *testing.T) {
		exists, err := db.Exists()
		if err != nil {
			t.Fatalf("Exists() failed: %v", err)
		}
		if exists {
			t.Fatal("DB should not exist yet")
		}

		store, err := db.Init("test-secret-123")
		if err != nil {
			t.Fatalf("Init() failed: %v", err)
		}
		defer store.Close()

		if exists, _ := db.Exists(); !exists {
			t.Fatal("DB should exist now")
		}
	})

	t.Run("WrongSecret", func(t *testing.T) {
		if _, err := db.Init("wrong-secret"); err == nil {
			t.Fatal("wrong secret should fail")
		}
	})

	t.Run("Profiles", func(t *testing.T) {
		store, err := db.Init("test-secret-123")
		if err != nil {
			t.Fatalf("Init failed: %v", err)
		}
		defer store.Close()

		dev, err := store.CreateProfile("  dev  ", "127.0.0.1 dev.local\n")
		if err != nil {
			t.Fatalf("CreateProfile failed: %v", err)
		}
		if dev.Name != "dev" || dev.UID == "" || dev.CreatedAt.IsZero() {
			t.Fatalf("unexpected profile %+v", dev)
		}

		if _, err := store.CreateProfile("DEV", ""); !errors.Is(err, db.ErrProfileExists) {
			t.Fatalf("expected ErrProfileExists, got %v", err)
		} else if err.Error() != "`DEV` already exists" {
			t.Fatalf("unexpected message %q", err.Error())
		}
		if _, err := store.CreateProfile("system", ""); !errors.Is(err, db.ErrProfileExists) {
			t.Fatalf("System should be reserved, got %v", err)
		}
		if _, err := store.CreateProfile("   ", ""); !errors.Is(err, db.ErrEmptyName) {
			t.Fatalf("expected ErrEmptyName, got %v", err)
		}

		staging, err := store.CreateProfile("Staging", "")
		if err != nil {
			t.Fatalf("CreateProfile failed: %v", err)
		}

		profiles, err := store.GetProfiles()
		if err != nil {
			t.Fatalf("GetProfiles failed: %v", err)
		}
		if len(profiles) != 2 || profiles[0].Name != "dev" || profiles[1].Name != "Staging" {
			t.Fatalf("unexpected profiles %+v", profiles)
		}

		if err := store.UpdateProfileContent(staging.ID, "10.0.0.1 api.staging\n"); err != nil {
			t.Fatalf("UpdateProfileContent failed: %v", err)
		}
		got, err := store.GetProfileByName("staging")
		if err != nil {
			t.Fatalf("GetProfileByName failed: %v", err)
		}
		if got.Content != "10.0.0.1 api.staging\n" {
			t.Fatalf("content not saved: %q", got.Content)
		}

		if err := store.RenameProfile(staging.ID, "dev"); !errors.Is(err, db.ErrProfileExists) {
			t.Fatalf("expected ErrProfileExists on rename, got %v", err)
		}
		if err := store.RenameProfile(staging.ID, "STAGING"); err != nil {
			t.Fatalf("renaming to a case variant of itself should work: %v", err)
		}

		at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
		if err := store.MarkApplied(dev.ID, at); err != nil {
			t.Fatalf("MarkApplied failed: %v", err)
		}
		dev, err = store.GetProfile(dev.ID)
		if err != nil {
			t.Fatalf("GetProfile failed: %v", err)
		}
		if dev.AppliedAt == nil || !dev.AppliedAt.Equal(at) {
			t.Fatalf("applied_at not stored: %v", dev.AppliedAt)
		}

		if err := store.DeleteProfile(dev.ID); err != nil {
			t.Fatalf("DeleteProfile failed: %v", err)
		}
		if _, err := store.GetProfile(dev.ID); !errors.Is(err, db.ErrProfileNotFound) {
			t.Fatalf("expected ErrProfileNotFound, got %v", err)
		}
		if err := store.DeleteProfile(dev.ID); !errors.Is(err, db.ErrProfileNotFound) {
			t.Fatalf("expected ErrProfileNotFound on second delete, got %v", err)
		}
	})

	t.Run("Settings", func(t *testing.T) {
		store, err := db.Init("test-secret-123")
		if err != nil {
			t.Fatalf("Init failed: %v", err)
		}
		defer store.Close()

		if v, err := store.GetSetting("last_profile"); err != nil || v != "" {
			t.Fatalf("expected empty setting, got %q, %v", v, err)
		}
		if err := store.SetSetting("last_profile", "dev"); err != nil {
			t.Fatalf("SetSetting failed: %v", err)
		}
		if err := store.SetSetting("last_profile", "staging"); err != nil {
			t.Fatalf("SetSetting failed: %v", err)
		}
		if v, _ := store.GetSetting("last_profile"); v != "staging" {
			t.Fatalf("setting = %q", v)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := db.Delete(); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if exists, _ := db.Exists(); exists {
			t.Fatal("DB should be gone")
		}
		if err := db.Delete(); err != nil {
			t.Fatalf("Delete of missing DB should be a no-op: %v", err)
		}
	})
}

func TestDBPathOverride(t *testing.T) {
	p := filepath.Join(t.TempDir(), "nested", "custom.db")
	t.Setenv("HED_DB_PATH", p)
	got, err := db.DBPath()
	if err != nil {
		t.Fatalf("DBPath failed: %v", err)
	}
	if got != p {
		t.Fatalf("DBPath = %q, want %q", got, p)
	}
}
