// Package config loads and deep-merges the workspace configuration file
// (.flint-note/config.yml).
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// MCPServer holds the mcp_server config section.
type MCPServer struct {
	Name     string `yaml:"name"`
	Version  string `yaml:"version"`
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`
}

// Search holds the search config section.
type Search struct {
	IndexEnabled     bool   `yaml:"index_enabled"`
	IndexPath        string `yaml:"index_path"`
	RebuildOnStartup bool   `yaml:"rebuild_on_startup"`
	MaxResults       int    `yaml:"max_results"`
}

// NoteTypes holds the note_types config section.
type NoteTypes struct {
	AutoCreateDirectories bool `yaml:"auto_create_directories"`
	RequireDescriptions   bool `yaml:"require_descriptions"`
}

// Deletion holds the deletion config section.
type Deletion struct {
	RequireConfirmation    bool   `yaml:"require_confirmation"`
	CreateBackups          bool   `yaml:"create_backups"`
	BackupPath             string `yaml:"backup_path"`
	AllowNoteTypeDeletion  bool   `yaml:"allow_note_type_deletion"`
	MaxBulkDelete          int    `yaml:"max_bulk_delete"`
}

// Features holds the features config section.
type Features struct {
	AutoLinking     bool `yaml:"auto_linking"`
	AutoTagging     bool `yaml:"auto_tagging"`
	ContentAnalysis bool `yaml:"content_analysis"`
}

// Security holds the security config section.
type Security struct {
	RestrictToWorkspace bool     `yaml:"restrict_to_workspace"`
	MaxFileSize         int64    `yaml:"max_file_size"`
	AllowedExtensions   []string `yaml:"allowed_extensions"`
}

// Rename holds the rename config section. Rewriting a matching in-body H1
// on rename is opt-in.
type Rename struct {
	UpdateHeading bool `yaml:"update_heading"`
}

// Config is the full recognized workspace configuration.
type Config struct {
	Version          string    `yaml:"version"`
	WorkspaceRoot    string    `yaml:"workspace_root"`
	DefaultNoteType  string    `yaml:"default_note_type"`
	MCPServer        MCPServer `yaml:"mcp_server"`
	Search           Search    `yaml:"search"`
	NoteTypes        NoteTypes `yaml:"note_types"`
	Deletion         Deletion  `yaml:"deletion"`
	Features         Features  `yaml:"features"`
	Security         Security  `yaml:"security"`
	Rename           Rename    `yaml:"rename"`
}

// Default returns the built-in defaults applied before any config.yml is
// merged on top.
func Default(workspaceRoot string) Config {
	return Config{
		Version:         "1",
		WorkspaceRoot:   workspaceRoot,
		DefaultNoteType: "general",
		MCPServer: MCPServer{
			Name:     "flint-note",
			Version:  "1",
			LogLevel: "info",
		},
		Search: Search{
			IndexEnabled:     true,
			IndexPath:        ".flint-note/search.db",
			RebuildOnStartup: false,
			MaxResults:       50,
		},
		NoteTypes: NoteTypes{
			AutoCreateDirectories: true,
			RequireDescriptions:   false,
		},
		Deletion: Deletion{
			RequireConfirmation:   true,
			CreateBackups:         true,
			BackupPath:            ".flint-note/backups",
			AllowNoteTypeDeletion: false,
			MaxBulkDelete:         50,
		},
		Features: Features{
			AutoLinking: true,
		},
		Security: Security{
			RestrictToWorkspace: true,
			MaxFileSize:         10 * 1024 * 1024,
			AllowedExtensions:   []string{".md"},
		},
		Rename: Rename{UpdateHeading: false},
	}
}

// Load reads configPath (if present) and deep-merges it onto Default.
// A missing file is not an error: the workspace runs on defaults until one
// is written.
func Load(configPath, workspaceRoot string) (Config, error) {
	cfg := Default(workspaceRoot)

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	var override map[string]any
	if err := yaml.Unmarshal(data, &override); err != nil {
		return cfg, err
	}

	merged := deepMergeStruct(&cfg, override)
	return merged, nil
}

// Save writes cfg to configPath as YAML, creating parent directories.
func Save(cfg Config, configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(configPath, data, 0o644)
}

// deepMergeStruct re-marshals the default Config to a generic map, deep
// merges the override map onto it (unspecified keys keep their previous
// value, nested objects merge recursively, arrays replace wholesale), then
// unmarshals back into a Config.
func deepMergeStruct(base *Config, override map[string]any) Config {
	baseBytes, err := yaml.Marshal(base)
	if err != nil {
		return *base
	}
	var baseMap map[string]any
	if err := yaml.Unmarshal(baseBytes, &baseMap); err != nil {
		return *base
	}

	merged := deepMerge(baseMap, override)

	mergedBytes, err := yaml.Marshal(merged)
	if err != nil {
		return *base
	}
	var out Config
	if err := yaml.Unmarshal(mergedBytes, &out); err != nil {
		return *base
	}
	return out
}

// deepMerge merges override onto base: maps recurse key-by-key, everything
// else (including slices) is replaced wholesale by the override value when
// present.
func deepMerge(base, override map[string]any) map[string]any {
	result := make(map[string]any, len(base))
	for k, v := range base {
		result[k] = v
	}
	for k, ov := range override {
		bv, exists := result[k]
		if !exists {
			result[k] = ov
			continue
		}
		bm, bIsMap := bv.(map[string]any)
		om, oIsMap := ov.(map[string]any)
		if bIsMap && oIsMap {
			result[k] = deepMerge(bm, om)
			continue
		}
		result[k] = ov
	}
	return result
}
