package testutil

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	xfs "xdt-go/internal/fs"
	"xdt-go/internal/xdt"
)

// MockFile represents a file in the mock filesystem.
type MockFile struct {
	Content     []byte
	ModTime     time.Time
	IsDirectory bool
}

// MockFilesystemManager is an in-memory filesystem for testing.
// Paths are absolute and use the host separator. Safe for concurrent use.
type MockFilesystemManager struct {
	mu         sync.RWMutex
	files      map[string]*MockFile
	ignore     []string
	unreadable map[string]bool
}

// NewMockFilesystemManager creates a new mock filesystem.
func NewMockFilesystemManager() *MockFilesystemManager {
	return &MockFilesystemManager{files: make(map[string]*MockFile), unreadable: make(map[string]bool)}
}

// AddFile adds a file, creating its parent directories.
func (m *MockFilesystemManager) AddFile(path string, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for dir := filepath.Dir(path); dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
		if _, ok := m.files[dir]; !ok {
			m.files[dir] = &MockFile{IsDirectory: true}
		}
	}
	m.files[path] = &MockFile{Content: content, ModTime: time.Now()}
}

// AddDirectory adds an empty directory.
func (m *MockFilesystemManager) AddDirectory(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = &MockFile{IsDirectory: true}
}

// RemoveFile deletes a file.
func (m *MockFilesystemManager) RemoveFile(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, path)
}

// SetIgnore sets the ignore patterns applied under every root.
func (m *MockFilesystemManager) SetIgnore(patterns ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ignore = patterns
}

// SetUnreadable makes FindFiles report path as a failed entry. For a
// directory, nothing below it is returned.
func (m *MockFilesystemManager) SetUnreadable(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unreadable[path] = true
}

func (m *MockFilesystemManager) Resolve(rawPath string) (*xdt.Path, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	file, ok := m.files[absPath]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("file not found: %s", absPath)
	}
	return xdt.NewPath(absPath, file.IsDirectory, newMockFileInfo(absPath, file)), nil
}

func (m *MockFilesystemManager) Open(path *xdt.Path) (io.ReadCloser, error) {
	m.mu.RLock()
	file, ok := m.files[path.String()]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("file not found: %s", path.String())
	}
	if file.IsDirectory {
		return nil, fmt.Errorf("cannot open directory: %s", path.String())
	}
	return io.NopCloser(bytes.NewReader(file.Content)), nil
}

// FindFiles returns files below path in lexical order. Unreadable
// entries are reported in failed.
func (m *MockFilesystemManager) FindFiles(path *xdt.Path, recursive bool) ([]*xdt.Path, []string, error) {
	if !path.IsDir() {
		return nil, nil, fmt.Errorf("path is not a directory: %s", path.String())
	}
	prefix := path.String() + string(filepath.Separator)

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.unreadable[path.String()] {
		return nil, nil, fmt.Errorf("permission denied: %s", path.String())
	}

	var failed []string
	for name := range m.unreadable {
		if strings.HasPrefix(name, prefix) && !m.belowUnreadable(name, prefix) {
			failed = append(failed, name)
		}
	}
	sort.Strings(failed)

	var names []string
	for name, file := range m.files {
		if file.IsDirectory || !strings.HasPrefix(name, prefix) {
			continue
		}
		if !recursive && strings.ContainsRune(name[len(prefix):], filepath.Separator) {
			continue
		}
		if m.unreadable[name] || m.belowUnreadable(name, prefix) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	paths := make([]*xdt.Path, len(names))
	for i, name := range names {
		paths[i] = xdt.NewPath(name, false, newMockFileInfo(name, m.files[name]))
	}
	return paths, failed, nil
}

// belowUnreadable reports whether an unreadable directory between prefix
// and name hides name from the walk.
func (m *MockFilesystemManager) belowUnreadable(name, prefix string) bool {
	for dir := filepath.Dir(name); len(dir) >= len(prefix); dir = filepath.Dir(dir) {
		if m.unreadable[dir] {
			return true
		}
	}
	return false
}

func (m *MockFilesystemManager) IsIgnored(path *xdt.Path, root string) (bool, error) {
	rel, err := filepath.Rel(root, path.String())
	if err != nil {
		return false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return xfs.NewIgnoreMatcher(m.ignore).Match(rel), nil
}

// mockFileInfo implements fs.FileInfo
type mockFileInfo struct {
	name    string
	size    int64
	modTime time.Time
	isDir   bool
}

func newMockFileInfo(path string, f *MockFile) *mockFileInfo {
	return &mockFileInfo{
		name:    filepath.Base(path),
		size:    int64(len(f.Content)),
		modTime: f.ModTime,
		isDir:   f.IsDirectory,
	}
}

func (m *mockFileInfo) Name() string { return m.name }
func (m *mockFileInfo) Size() int64  { return m.size }
func (m *mockFileInfo) Mode() fs.FileMode {
	if m.isDir {
		return fs.ModeDir | 0o755
	}
	return 0o644
}
func (m *mockFileInfo) ModTime() time.Time { return m.modTime }
func (m *mockFileInfo) IsDir() bool        { return m.isDir }
func (m *mockFileInfo) Sys() any           { return nil }

var _ xdt.FilesystemManager = (*MockFilesystemManager)(nil)
