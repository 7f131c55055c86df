package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, "config.yml"), dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.DefaultNoteType != "general" {
		t.Errorf("DefaultNoteType = %q", cfg.DefaultNoteType)
	}
	if !cfg.Search.IndexEnabled {
		t.Error("Search.IndexEnabled = false, want default true")
	}
	if cfg.Deletion.MaxBulkDelete != 50 {
		t.Errorf("MaxBulkDelete = %d", cfg.Deletion.MaxBulkDelete)
	}
}

func TestLoad_DeepMergeKeepsUnspecifiedKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	content := `
default_note_type: projects
search:
  max_results: 100
deletion:
  create_backups: false
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path, dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.DefaultNoteType != "projects" {
		t.Errorf("DefaultNoteType = %q, want the override", cfg.DefaultNoteType)
	}
	if cfg.Search.MaxResults != 100 {
		t.Errorf("MaxResults = %d, want 100", cfg.Search.MaxResults)
	}
	// Sibling keys inside overridden sections keep their defaults.
	if !cfg.Search.IndexEnabled {
		t.Error("Search.IndexEnabled lost during merge")
	}
	if cfg.Deletion.CreateBackups {
		t.Error("Deletion.CreateBackups = true, want the override false")
	}
	if !cfg.Deletion.RequireConfirmation {
		t.Error("Deletion.RequireConfirmation lost during merge")
	}
}

func TestLoad_ArraysReplaceWholesale(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	content := `
security:
  allowed_extensions: [".md", ".markdown"]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path, dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Security.AllowedExtensions) != 2 {
		t.Errorf("AllowedExtensions = %v, want the override to replace the default", cfg.Security.AllowedExtensions)
	}
}

func TestSaveAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")

	cfg := Default(dir)
	cfg.MCPServer.LogLevel = "debug"
	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	reloaded, err := Load(path, dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if reloaded.MCPServer.LogLevel != "debug" {
		t.Errorf("LogLevel = %q after reload", reloaded.MCPServer.LogLevel)
	}
}
