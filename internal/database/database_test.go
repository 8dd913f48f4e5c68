package database

import (
	"testing"
)

func TestOpen(t *testing.T) {
	t.Run("applies migrations to in-memory database", func(t *testing.T) {
		db, err := Open(":memory:")
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		defer db.Close()

		for _, table := range []string{"cache_entry", "snapshot"} {
			var name string
			err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name = ?`, table).Scan(&name)
			if err != nil {
				t.Errorf("Expected table %s to exist: %v", table, err)
			}
		}

		version, err := SchemaVersion(db)
		if err != nil {
			t.Fatalf("SchemaVersion failed: %v", err)
		}
		if version != "2" {
			t.Errorf("Expected schema version 2, got %s", version)
		}
	})

	t.Run("migrations are idempotent", func(t *testing.T) {
		db, err := Open(":memory:")
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		defer db.Close()

		if err := Migrate(db); err != nil {
			t.Errorf("Second migrate failed: %v", err)
		}
	})

	t.Run("health check fails on closed database", func(t *testing.T) {
		db, err := Open(":memory:")
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		db.Close()

		if err := HealthCheck(db); err == nil {
			t.Error("Expected health check to fail on closed database")
		}
	})
}
