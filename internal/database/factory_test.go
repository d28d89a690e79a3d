package database

import (
	"path/filepath"
	"testing"

	"xdt-go/internal/config"
)

func TestNewDatabaseFromConfig(t *testing.T) {
	t.Run("memory database is migrated", func(t *testing.T) {
		got, err := NewDatabaseFromConfig(config.DatabaseConfig{Type: "memory"})
		if err != nil {
			t.Fatalf("NewDatabaseFromConfig() unexpected error: %v", err)
		}
		defer got.Close()

		if err := got.CheckMigrations(); err != nil {
			t.Errorf("CheckMigrations() error = %v", err)
		}
	})

	t.Run("sqlite database", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "data")
		got, err := NewDatabaseFromConfig(config.DatabaseConfig{Type: "sqlite", DataDir: dir})
		if err != nil {
			t.Fatalf("NewDatabaseFromConfig() unexpected error: %v", err)
		}
		defer got.Close()

		if want := filepath.Join(dir, catalogFile); got.Path() != want {
			t.Errorf("Path() = %q, want %q", got.Path(), want)
		}
		if err := got.CheckMigrations(); err == nil {
			t.Error("CheckMigrations() on a fresh file catalog should report missing migrations")
		}
	})

	tests := []struct {
		name string
		cfg  config.DatabaseConfig
	}{
		{"sqlite database without data_dir", config.DatabaseConfig{Type: "sqlite"}},
		{"unknown database type", config.DatabaseConfig{Type: "unknown"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewDatabaseFromConfig(tt.cfg)
			if err == nil {
				t.Error("NewDatabaseFromConfig() expected error, got nil")
			}
			if got != nil {
				t.Error("NewDatabaseFromConfig() should return nil on error")
				got.Close()
			}
		})
	}
}
