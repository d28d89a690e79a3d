package fs

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"xdt-go/internal/xdt"
)

// OSFilesystemManager is the real filesystem implementation of
// xdt.FilesystemManager.
type OSFilesystemManager struct {
	ignore []string
}

// NewOSFilesystemManager creates a filesystem manager. ignore holds the
// configured patterns applied under every root in addition to the root's
// own ignore file.
func NewOSFilesystemManager(ignore []string) *OSFilesystemManager {
	return &OSFilesystemManager{ignore: ignore}
}

// Resolve validates a raw path and returns a Path object.
func (m *OSFilesystemManager) Resolve(rawPath string) (*xdt.Path, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, fmt.Errorf("resolving absolute path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat path: %w", err)
	}

	mode := info.Mode()
	if !mode.IsRegular() && !mode.IsDir() {
		return nil, fmt.Errorf("unsupported file type %s: %s", mode.Type(), absPath)
	}

	return xdt.NewPath(absPath, info.IsDir(), info), nil
}

// Open opens a file for reading.
func (m *OSFilesystemManager) Open(path *xdt.Path) (io.ReadCloser, error) {
	if path.IsDir() {
		return nil, fmt.Errorf("cannot open directory as file: %s", path.String())
	}
	return os.Open(path.String())
}

// FindFiles discovers regular files under the given directory path.
// Hidden directories are not descended into. Entries that cannot be read
// are skipped and returned in failed; only a failure on path itself is
// an error.
func (m *OSFilesystemManager) FindFiles(path *xdt.Path, recursive bool) ([]*xdt.Path, []string, error) {
	if !path.IsDir() {
		return nil, nil, fmt.Errorf("path is not a directory: %s", path.String())
	}

	var paths []*xdt.Path
	var failed []string
	root := path.String()
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			failed = append(failed, p)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if p == root {
				return nil
			}
			if !recursive || strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			failed = append(failed, p)
			return nil
		}
		paths = append(paths, xdt.NewPath(p, false, info))
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("walking directory: %w", err)
	}
	return paths, failed, nil
}

// IsIgnored matches path, relative to root, against the default patterns,
// the configured patterns and the root's ignore file.
func (m *OSFilesystemManager) IsIgnored(path *xdt.Path, root string) (bool, error) {
	rel, err := filepath.Rel(root, path.String())
	if err != nil {
		return false, fmt.Errorf("relativizing %s: %w", path.String(), err)
	}

	fromFile, err := ParseIgnoreFile(filepath.Join(root, IgnoreFileName))
	if err != nil {
		return false, err
	}

	patterns := make([]string, 0, len(defaultIgnorePatterns)+len(m.ignore)+len(fromFile))
	patterns = append(patterns, defaultIgnorePatterns...)
	patterns = append(patterns, m.ignore...)
	patterns = append(patterns, fromFile...)
	return NewIgnoreMatcher(patterns).Match(rel), nil
}

var _ xdt.FilesystemManager = (*OSFilesystemManager)(nil)
