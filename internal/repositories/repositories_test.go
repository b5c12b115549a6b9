package repositories

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/desertthunder/audx/internal/models"
	"github.com/desertthunder/audx/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(shared.MemoryDSN)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func TestStateRepository(t *testing.T) {
	t.Run("Get absent key", func(t *testing.T) {
		repo := NewStateRepository(setupTestDB(t))

		_, ok, err := repo.Get("user")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if ok {
			t.Error("expected absent key")
		}
	})

	t.Run("Set then Get", func(t *testing.T) {
		repo := NewStateRepository(setupTestDB(t))

		if err := repo.Set("audio_position_5", "12.5"); err != nil {
			t.Fatalf("Set() error = %v", err)
		}

		value, ok, err := repo.Get("audio_position_5")
		if err != nil || !ok {
			t.Fatalf("Get() = %q, %v, %v", value, ok, err)
		}
		if value != "12.5" {
			t.Errorf("expected 12.5, got %s", value)
		}
	})

	t.Run("Set overwrites", func(t *testing.T) {
		repo := NewStateRepository(setupTestDB(t))

		for _, v := range []string{"1", "2", "3"} {
			if err := repo.Set("audio_position_5", v); err != nil {
				t.Fatalf("Set(%s) error = %v", v, err)
			}
		}

		value, _, _ := repo.Get("audio_position_5")
		if value != "3" {
			t.Errorf("expected most recent write to win, got %s", value)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		repo := NewStateRepository(setupTestDB(t))

		if err := repo.Set("user", `{"customerId":1}`); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		if err := repo.Delete("user"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if _, ok, _ := repo.Get("user"); ok {
			t.Error("key should be gone after delete")
		}
		if err := repo.Delete("user"); err != nil {
			t.Errorf("deleting an absent key should succeed, got %v", err)
		}
	})

	t.Run("List by prefix", func(t *testing.T) {
		repo := NewStateRepository(setupTestDB(t))

		for key, value := range map[string]string{
			"audio_position_1": "10",
			"audio_position_2": "20",
			"user":             "{}",
		} {
			if err := repo.Set(key, value); err != nil {
				t.Fatalf("Set(%s) error = %v", key, err)
			}
		}

		entries, err := repo.List("audio_position_")
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(entries) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(entries))
		}
		if entries[0].Key != "audio_position_1" || entries[1].Value != "20" {
			t.Errorf("unexpected entries %+v", entries)
		}
	})
}

func TestDownloadRepository(t *testing.T) {
	t.Run("Create and Get", func(t *testing.T) {
		repo := NewDownloadRepository(setupTestDB(t))
		record := models.NewDownloadRecord(5, "Dune", "/tmp/dune.mp3", 2048)

		if err := repo.Create(record); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if record.ID() == "" {
			t.Fatal("ID should be set after creation")
		}

		got, err := repo.Get(record.ID())
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.AudioID() != 5 || got.Path() != "/tmp/dune.mp3" || got.Bytes() != 2048 {
			t.Errorf("unexpected record %+v", got)
		}
	})

	t.Run("Create rejects invalid record", func(t *testing.T) {
		repo := NewDownloadRepository(setupTestDB(t))

		if err := repo.Create(models.NewDownloadRecord(0, "x", "/tmp/x", 0)); err == nil {
			t.Fatal("expected validation error")
		}
	})

	t.Run("Get missing", func(t *testing.T) {
		repo := NewDownloadRepository(setupTestDB(t))

		if _, err := repo.Get("missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("List filters by audio id", func(t *testing.T) {
		repo := NewDownloadRepository(setupTestDB(t))

		for _, r := range []*models.DownloadRecord{
			models.NewDownloadRecord(1, "A", "/tmp/a.mp3", 1),
			models.NewDownloadRecord(2, "B", "/tmp/b.mp3", 1),
			models.NewDownloadRecord(1, "A", "/tmp/a-2.mp3", 1),
		} {
			if err := repo.Create(r); err != nil {
				t.Fatalf("Create() error = %v", err)
			}
		}

		all, err := repo.List(nil)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(all) != 3 {
			t.Errorf("expected 3 records, got %d", len(all))
		}

		filtered, err := repo.List(map[string]any{"audio_id": 1})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(filtered) != 2 {
			t.Errorf("expected 2 records for audio 1, got %d", len(filtered))
		}
	})

	t.Run("Delete", func(t *testing.T) {
		repo := NewDownloadRepository(setupTestDB(t))
		record := models.NewDownloadRecord(1, "A", "/tmp/a.mp3", 1)
		if err := repo.Create(record); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		if err := repo.Delete(record.ID()); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if err := repo.Delete(record.ID()); !errors.Is(err, ErrNotFound) {
			t.Errorf("second delete should report ErrNotFound, got %v", err)
		}
	})
}
