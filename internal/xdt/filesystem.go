package xdt

import "io"

// FilesystemManager provides an interface for filesystem operations.
// It abstracts file access to enable testing without touching the real filesystem.
type FilesystemManager interface {
	// Resolve validates a raw path and returns a Path object.
	// It resolves the path to an absolute path, stats it, and validates
	// it's a regular file or directory (not a symlink, device, etc.).
	Resolve(rawPath string) (*Path, error)

	// Open opens a file for reading.
	Open(path *Path) (io.ReadCloser, error)

	// FindFiles discovers regular files under the given directory path.
	// Entries below path that cannot be read are returned in failed
	// instead of aborting the walk.
	FindFiles(path *Path, recursive bool) (found []*Path, failed []string, err error)

	// IsIgnored reports whether path should be skipped when indexing root.
	IsIgnored(path *Path, root string) (bool, error)
}
