package app

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetDefaults(t *testing.T) {
	t.Run("uses env vars when set", func(t *testing.T) {
		t.Setenv("XDT_CONFIG_PATH", "/custom/config.toml")
		t.Setenv("XDT_HOME", "/custom/xdt")

		defaults, err := GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}

		if defaults["config_path"] != "/custom/config.toml" {
			t.Errorf("config_path = %q, want %q", defaults["config_path"], "/custom/config.toml")
		}
		if defaults["base_dir"] != "/custom/xdt" {
			t.Errorf("base_dir = %q, want %q", defaults["base_dir"], "/custom/xdt")
		}
		if defaults["log_dir"] != "/custom/xdt/log" {
			t.Errorf("log_dir = %q, want %q", defaults["log_dir"], "/custom/xdt/log")
		}
	})

	t.Run("uses XDG dirs", func(t *testing.T) {
		t.Setenv("XDT_CONFIG_PATH", "")
		t.Setenv("XDT_HOME", "")
		t.Setenv("XDG_CONFIG_HOME", "/xdg/config")
		t.Setenv("XDG_DATA_HOME", "/xdg/data")

		defaults, err := GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}
		if defaults["config_path"] != "/xdg/config/xdt.toml" {
			t.Errorf("config_path = %q, want %q", defaults["config_path"], "/xdg/config/xdt.toml")
		}
		if defaults["base_dir"] != "/xdg/data/xdt" {
			t.Errorf("base_dir = %q, want %q", defaults["base_dir"], "/xdg/data/xdt")
		}
	})

	t.Run("falls back to home dir defaults", func(t *testing.T) {
		t.Setenv("XDT_CONFIG_PATH", "")
		t.Setenv("XDT_HOME", "")
		t.Setenv("XDG_CONFIG_HOME", "")
		t.Setenv("XDG_DATA_HOME", "")

		defaults, err := GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}

		homeDir, _ := os.UserHomeDir()
		wantConfig := filepath.Join(homeDir, ".config", "xdt.toml")
		if defaults["config_path"] != wantConfig {
			t.Errorf("config_path = %q, want %q", defaults["config_path"], wantConfig)
		}

		wantBase := filepath.Join(homeDir, ".local", "share", "xdt")
		if defaults["base_dir"] != wantBase {
			t.Errorf("base_dir = %q, want %q", defaults["base_dir"], wantBase)
		}
		if defaults["log_dir"] != filepath.Join(wantBase, "log") {
			t.Errorf("log_dir = %q, want %q", defaults["log_dir"], filepath.Join(wantBase, "log"))
		}
	})
}
