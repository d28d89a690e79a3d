package fs

import (
	"bufio"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// IgnoreFileName is read from the root of every indexed directory.
const IgnoreFileName = ".xdtignore"

// defaultIgnorePatterns are always applied regardless of config or ignore files.
// Editors and CODESYS leave lock and backup copies next to exports.
var defaultIgnorePatterns = []string{IgnoreFileName, ".*.swp", "*~", "*.bak"}

type matchKind int

const (
	matchBase matchKind = iota // pattern without '/': the basename
	matchPath                  // pattern with '/': the relative path
	matchDir                   // pattern ending in '/': any parent directory
)

// ignorePattern is a parsed ignore pattern with its matching strategy.
type ignorePattern struct {
	pattern string
	kind    matchKind
}

// IgnoreMatcher checks file paths against a set of ignore patterns.
// Patterns without '/' match against the file's basename only.
// Patterns with '/' match against the full relative path from the root.
// Patterns ending in '/' match any directory on the way to the file.
type IgnoreMatcher struct {
	patterns []ignorePattern
}

// NewIgnoreMatcher creates an IgnoreMatcher from raw pattern strings.
// Blank lines and lines starting with '#' are skipped.
func NewIgnoreMatcher(rawPatterns []string) *IgnoreMatcher {
	var patterns []ignorePattern
	for _, raw := range rawPatterns {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		p := ignorePattern{pattern: raw, kind: matchBase}
		switch {
		case strings.HasSuffix(raw, "/"):
			p.pattern = strings.TrimSuffix(raw, "/")
			p.kind = matchDir
		case strings.Contains(raw, "/"):
			p.kind = matchPath
		}
		patterns = append(patterns, p)
	}
	return &IgnoreMatcher{patterns: patterns}
}

// Match reports whether the given relative path should be ignored.
// relativePath should use filepath separators and be relative to the root.
func (m *IgnoreMatcher) Match(relativePath string) bool {
	if len(m.patterns) == 0 {
		return false
	}

	normalized := filepath.ToSlash(relativePath)
	base := path.Base(normalized)
	dirs := strings.Split(path.Dir(normalized), "/")

	for _, p := range m.patterns {
		var matched bool
		switch p.kind {
		case matchBase:
			matched = globMatch(p.pattern, base)
		case matchPath:
			matched = globMatch(p.pattern, normalized)
		case matchDir:
			for _, d := range dirs {
				if d != "." && globMatch(p.pattern, d) {
					matched = true
					break
				}
			}
		}
		if matched {
			return true
		}
	}
	return false
}

// globMatch treats malformed patterns as non-matching.
func globMatch(pattern, name string) bool {
	ok, err := path.Match(pattern, name)
	return err == nil && ok
}

// ParseIgnoreFile reads an ignore file and returns the raw pattern strings.
// Returns nil and no error if the file does not exist.
func ParseIgnoreFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		patterns = append(patterns, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file: %w", err)
	}
	return patterns, nil
}
