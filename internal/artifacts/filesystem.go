package artifacts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"xdt-go/internal/xdt"
)

// FileSystemStore keeps artifacts as files in a single directory.
type FileSystemStore struct {
	dir string
}

// NewFileSystemStore creates the directory if needed.
func NewFileSystemStore(dir string) (*FileSystemStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create reports directory: %w", err)
	}
	return &FileSystemStore{dir: dir}, nil
}

func (s *FileSystemStore) Put(_ context.Context, name string, r io.Reader, size int64) error {
	if err := validateName(name); err != nil {
		return err
	}
	return writeFileAtomic(filepath.Join(s.dir, name), r, size)
}

func (s *FileSystemStore) Get(_ context.Context, name string, w io.Writer) error {
	if err := validateName(name); err != nil {
		return err
	}
	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", xdt.ErrArtifactNotFound, name)
		}
		return fmt.Errorf("failed to open artifact: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read artifact: %w", err)
	}
	return nil
}

func (s *FileSystemStore) Exists(_ context.Context, name string) (bool, error) {
	if err := validateName(name); err != nil {
		return false, err
	}
	info, err := os.Stat(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat artifact: %w", err)
	}
	return info.Mode().IsRegular(), nil
}

func (s *FileSystemStore) Delete(_ context.Context, name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove artifact: %w", err)
	}
	return nil
}

func (s *FileSystemStore) Location(name string) string {
	return filepath.Join(s.dir, name)
}

// writeFileAtomic writes r to a temp file next to destPath and renames it
// into place once the expected number of bytes has been written.
func writeFileAtomic(destPath string, r io.Reader, expectedSize int64) error {
	tmp, err := os.CreateTemp(filepath.Dir(destPath), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if written != expectedSize {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", expectedSize, written)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

var _ xdt.ArtifactStore = (*FileSystemStore)(nil)
