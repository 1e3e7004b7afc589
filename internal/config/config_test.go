// ABOUTME: Tests for configuration loading
// ABOUTME: Covers YAML parsing, env var expansion, and validation rules

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  http_addr: "localhost:8080"
database:
  path: "/tmp/raids.db"
loot:
  classes_path: "config/classes.yaml"
  loot_path: "config/loot.yaml"
logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.HTTPAddr != "localhost:8080" {
		t.Errorf("HTTPAddr: got %q", cfg.Server.HTTPAddr)
	}
	if cfg.Database.Path != "/tmp/raids.db" {
		t.Errorf("Database.Path: got %q", cfg.Database.Path)
	}
	if cfg.Loot.ClassesPath != "config/classes.yaml" {
		t.Errorf("ClassesPath: got %q", cfg.Loot.ClassesPath)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging: got %+v", cfg.Logging)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("SLEEPLOCKER_DB", "/data/raids.db")

	path := writeConfig(t, `
server:
  http_addr: "localhost:8080"
database:
  path: "${SLEEPLOCKER_DB}"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Database.Path != "/data/raids.db" {
		t.Errorf("Database.Path: got %q, want /data/raids.db", cfg.Database.Path)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoad_MissingHTTPAddr(t *testing.T) {
	path := writeConfig(t, `
database:
  path: "/tmp/raids.db"
`)
	if _, err := Load(path); err == nil {
		t.Error("expected validation error for missing http_addr")
	}
}

func TestLoad_MissingDatabasePath(t *testing.T) {
	path := writeConfig(t, `
server:
  http_addr: "localhost:8080"
`)
	if _, err := Load(path); err == nil {
		t.Error("expected validation error for missing database path")
	}
}

func TestLoad_LootPathsMustBePaired(t *testing.T) {
	path := writeConfig(t, `
server:
  http_addr: "localhost:8080"
database:
  path: "/tmp/raids.db"
loot:
  classes_path: "config/classes.yaml"
`)
	if _, err := Load(path); err == nil {
		t.Error("expected validation error for unpaired loot paths")
	}
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	path := writeConfig(t, `
server:
  http_addr: "localhost:8080"
database:
  path: "/tmp/raids.db"
logging:
  level: "verbose"
`)
	if _, err := Load(path); err == nil {
		t.Error("expected validation error for bad log level")
	}
}
