package pathfilter

import (
	"strings"
	"testing"
)

func TestPathFilter_AllowsMarkdownFiles(t *testing.T) {
	filter := New(nil)

	tests := []struct {
		path string
		want bool
	}{
		{"general/test.md", true},
		{"projects/plan.md", true},
		{"a/b/nested.md", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := filter.IsAllowed(tt.path); got != tt.want {
				t.Errorf("IsAllowed(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestPathFilter_BlocksMetadataDirectory(t *testing.T) {
	filter := New(nil)

	tests := []string{
		".flint-note/config.yml",
		".flint-note/search.db",
		".flint-note/backups/general__old__20250101T000000.md",
	}

	for _, path := range tests {
		t.Run(path, func(t *testing.T) {
			if filter.IsAllowed(path) {
				t.Errorf("IsAllowed(%q) = true, want false", path)
			}
		})
	}
}

func TestPathFilter_BlocksGitDirectory(t *testing.T) {
	filter := New(nil)

	tests := []string{
		".git/config",
		".git/objects/abc123",
	}

	for _, path := range tests {
		t.Run(path, func(t *testing.T) {
			if filter.IsAllowed(path) {
				t.Errorf("IsAllowed(%q) = true, want false", path)
			}
		})
	}
}

func TestPathFilter_BlocksHiddenAndUnderscoreFiles(t *testing.T) {
	filter := New(nil)

	tests := []string{
		"general/.draft.md",
		"general/_template.md",
		".DS_Store",
		"Thumbs.db",
	}

	for _, path := range tests {
		t.Run(path, func(t *testing.T) {
			if filter.IsAllowed(path) {
				t.Errorf("IsAllowed(%q) = true, want false", path)
			}
		})
	}
}

func TestPathFilter_BlocksNonAllowedExtensions(t *testing.T) {
	filter := New(nil)

	tests := []string{
		"general/script.js",
		"general/data.json",
		"general/image.png",
	}

	for _, path := range tests {
		t.Run(path, func(t *testing.T) {
			if filter.IsAllowed(path) {
				t.Errorf("IsAllowed(%q) = true, want false", path)
			}
		})
	}
}

func TestPathFilter_CustomExtensions(t *testing.T) {
	filter := New([]string{".md", ".markdown"})

	tests := []struct {
		path string
		want bool
	}{
		{"general/note.md", true},
		{"general/note.markdown", true},
		{"general/note.txt", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := filter.IsAllowed(tt.path); got != tt.want {
				t.Errorf("IsAllowed(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestPathFilter_RegexSpecialCharacters(t *testing.T) {
	filter := New(nil)

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"dots in filenames", "general/file.name.md", true},
		{"version notes", "general/v1.0.0-notes.md", true},
		{"parentheses in paths", "notes/(archived)/old.md", true},
		{"project copy", "general/project (copy).md", true},
		{"square brackets", "notes/[2024]/january.md", true},
		{"plus signs", "C++/notes.md", true},
		{"pipe character", "general/option|choice.md", true},
		{"dollar sign", "general/price$100.md", true},
		{"backslash Windows", "folder\\subfolder\\note.md", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := filter.IsAllowed(tt.path); got != tt.want {
				t.Errorf("IsAllowed(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestPathFilter_FilterPaths(t *testing.T) {
	t.Run("filters array correctly", func(t *testing.T) {
		filter := New(nil)
		paths := []string{
			"general/valid.md",
			".flint-note/config.yml",
			"archive/old.md",
			".git/HEAD",
			"general/readme.txt",
		}

		got := filter.FilterPaths(paths)
		want := []string{
			"general/valid.md",
			"archive/old.md",
		}

		if len(got) != len(want) {
			t.Fatalf("FilterPaths() returned %d items, want %d", len(got), len(want))
		}

		for i, path := range got {
			if path != want[i] {
				t.Errorf("FilterPaths()[%d] = %q, want %q", i, path, want[i])
			}
		}
	})

	t.Run("handles empty array", func(t *testing.T) {
		filter := New(nil)
		got := filter.FilterPaths([]string{})
		if len(got) != 0 {
			t.Errorf("FilterPaths([]) = %v, want empty", got)
		}
	})

	t.Run("handles all blocked paths", func(t *testing.T) {
		filter := New(nil)
		paths := []string{
			".flint-note/search.db",
			".git/config",
			"node_modules/pkg/index.js",
		}
		got := filter.FilterPaths(paths)
		if len(got) != 0 {
			t.Errorf("FilterPaths() = %v, want empty", got)
		}
	})
}

func TestPathFilter_EdgeCases(t *testing.T) {
	filter := New(nil)

	t.Run("empty path", func(t *testing.T) {
		defer func() {
			if r := recover(); r != nil {
				t.Errorf("IsAllowed(\"\") panicked: %v", r)
			}
		}()
		filter.IsAllowed("")
	})

	t.Run("very long paths", func(t *testing.T) {
		var longPath strings.Builder
		for range 100 {
			longPath.WriteString("a/")
		}
		longPath.WriteString("note.md")

		if !filter.IsAllowed(longPath.String()) {
			t.Error("IsAllowed(longPath) = false, want true")
		}
	})

	t.Run("unicode characters", func(t *testing.T) {
		tests := []string{
			"notes/日本語.md",
			"émojis/🎉.md",
			"中文/笔记.md",
		}

		for _, path := range tests {
			if !filter.IsAllowed(path) {
				t.Errorf("IsAllowed(%q) = false, want true", path)
			}
		}
	})

	t.Run("spaces in paths", func(t *testing.T) {
		if !filter.IsAllowed("my notes/important file.md") {
			t.Error("IsAllowed(\"my notes/important file.md\") = false, want true")
		}
	})

	t.Run("directories no extension", func(t *testing.T) {
		tests := []struct {
			path string
			want bool
		}{
			{"folder/subfolder/", true},
			{"notes", true},
		}

		for _, tt := range tests {
			if got := filter.IsAllowed(tt.path); got != tt.want {
				t.Errorf("IsAllowed(%q) = %v, want %v", tt.path, got, tt.want)
			}
		}
	})

	t.Run("directories with dots in names", func(t *testing.T) {
		tests := []struct {
			path string
			want bool
		}{
			{"1. Project", true},
			{"1. Project/subfolder", true},
			{"1. Project/note.md", true},
			{"1. Project/file.js", false},
		}

		for _, tt := range tests {
			if got := filter.IsAllowed(tt.path); got != tt.want {
				t.Errorf("IsAllowed(%q) = %v, want %v", tt.path, got, tt.want)
			}
		}
	})
}
