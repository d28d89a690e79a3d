package xdt

import (
	"context"
	"io"
)

// ArtifactStore holds the rendered text of diff reports.
// Artifacts are addressed by file name; names are generated by the
// service and never reused.
type ArtifactStore interface {
	// Put stores size bytes read from r under name, replacing nothing:
	// a partially written artifact must never become visible.
	Put(ctx context.Context, name string, r io.Reader, size int64) error

	// Get writes the artifact to w. A missing artifact yields an error
	// wrapping ErrArtifactNotFound.
	Get(ctx context.Context, name string, w io.Writer) error

	// Exists reports whether the artifact is present.
	Exists(ctx context.Context, name string) (bool, error)

	// Delete removes the artifact. Deleting a missing artifact is not an error.
	Delete(ctx context.Context, name string) error

	// Location returns a human-readable address for the artifact
	// (a file path, an s3:// URL, ...). It is stored on the report record.
	Location(name string) string
}
