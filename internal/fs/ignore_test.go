package fs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewIgnoreMatcher(t *testing.T) {
	t.Run("skips blank lines and comments", func(t *testing.T) {
		t.Parallel()
		m := NewIgnoreMatcher([]string{"", "  ", "# comment", "*.bak"})
		if len(m.patterns) != 1 {
			t.Fatalf("expected 1 pattern, got %d", len(m.patterns))
		}
		if m.patterns[0].pattern != "*.bak" {
			t.Errorf("expected *.bak, got %s", m.patterns[0].pattern)
		}
	})

	t.Run("classifies patterns", func(t *testing.T) {
		t.Parallel()
		m := NewIgnoreMatcher([]string{"*.bak", "line1/draft.xml", "archive/"})
		want := []matchKind{matchBase, matchPath, matchDir}
		for i, k := range want {
			if m.patterns[i].kind != k {
				t.Errorf("pattern %q kind = %d, want %d", m.patterns[i].pattern, m.patterns[i].kind, k)
			}
		}
		if m.patterns[2].pattern != "archive" {
			t.Errorf("directory pattern = %q, want trailing slash stripped", m.patterns[2].pattern)
		}
	})
}

func TestIgnoreMatcher_Match(t *testing.T) {
	tests := []struct {
		name         string
		patterns     []string
		relativePath string
		want         bool
	}{
		{"basename glob matches file in root", []string{"*.bak"}, "plant.bak", true},
		{"basename glob matches file in subdirectory", []string{"*.bak"}, filepath.Join("line1", "plant.bak"), true},
		{"basename glob does not match export", []string{"*.bak"}, "plant.xml", false},
		{"path pattern matches exact relative path", []string{"line1/draft.xml"}, filepath.Join("line1", "draft.xml"), true},
		{"path pattern does not match other directory", []string{"line1/draft.xml"}, filepath.Join("line2", "draft.xml"), false},
		{"path pattern with glob", []string{"line1/*_old.xml"}, filepath.Join("line1", "plc_old.xml"), true},
		{"directory pattern matches nested file", []string{"archive/"}, filepath.Join("line1", "archive", "2024", "plant.xml"), true},
		{"directory pattern ignores file of same name", []string{"archive/"}, "archive", false},
		{"directory pattern with glob", []string{"tmp*/"}, filepath.Join("tmp-export", "plant.xml"), true},
		{"question mark wildcard", []string{"v?.xml"}, "v1.xml", true},
		{"question mark does not match multiple chars", []string{"v?.xml"}, "v10.xml", false},
		{"malformed pattern matches nothing", []string{"[.xml"}, "[.xml", false},
		{"no patterns matches nothing", nil, "plant.xml", false},
		{"multiple patterns second matches", []string{"*.bak", "*~"}, "plant.xml~", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := NewIgnoreMatcher(tt.patterns)
			if got := m.Match(tt.relativePath); got != tt.want {
				t.Errorf("Match(%q) = %v, want %v", tt.relativePath, got, tt.want)
			}
		})
	}
}

func TestParseIgnoreFile(t *testing.T) {
	t.Run("reads raw lines from file", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), IgnoreFileName)
		content := "*.bak\n# comment\n\narchive/\nline1/draft.xml\n"
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("writing test file: %v", err)
		}

		patterns, err := ParseIgnoreFile(path)
		if err != nil {
			t.Fatalf("ParseIgnoreFile() error = %v", err)
		}
		if len(patterns) != 5 {
			t.Fatalf("expected 5 raw lines, got %d", len(patterns))
		}
		if m := NewIgnoreMatcher(patterns); len(m.patterns) != 3 {
			t.Errorf("expected 3 parsed patterns, got %d", len(m.patterns))
		}
	})

	t.Run("returns nil for missing file", func(t *testing.T) {
		t.Parallel()
		patterns, err := ParseIgnoreFile(filepath.Join(t.TempDir(), IgnoreFileName))
		if err != nil {
			t.Fatalf("ParseIgnoreFile() error = %v", err)
		}
		if patterns != nil {
			t.Errorf("expected nil patterns, got %v", patterns)
		}
	})
}
