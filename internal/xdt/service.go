package xdt

import (
	"context"
	"errors"
	"strings"
)

const defaultContextLines = 3

// Options tune the service. The zero value tracks ".xml" files with three
// lines of diff context and no registration roots.
type Options struct {
	// Roots are the absolute watched directories Register accepts files from.
	Roots []string
	// Extensions are the tracked file extensions, compared case-insensitively.
	Extensions []string
	// ContextLines is the number of unchanged lines around each hunk.
	ContextLines int
}

// Service coordinates the catalog, the artifact store and the filesystem
// to implement file indexing, diff generation, annotations and
// notifications.
type Service struct {
	store     Store
	artifacts ArtifactStore
	fsmgr     FilesystemManager
	logger    Logger
	clock     Clock
	idgen     IDGenerator
	opts      Options
}

// NewService creates a Service with the provided dependencies.
func NewService(store Store, artifacts ArtifactStore, fsmgr FilesystemManager, logger Logger, clock Clock, idgen IDGenerator, opts Options) *Service {
	if opts.ContextLines <= 0 {
		opts.ContextLines = defaultContextLines
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = []string{".xml"}
	}
	exts := make([]string, 0, len(opts.Extensions))
	for _, ext := range opts.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, ext)
	}
	opts.Extensions = exts

	return &Service{
		store:     store,
		artifacts: artifacts,
		fsmgr:     fsmgr,
		logger:    logger,
		clock:     clock,
		idgen:     idgen,
		opts:      opts,
	}
}

// fail passes classified errors through and wraps everything else as
// KindUnexpected, logging it with the operation name.
func (s *Service) fail(op string, err error) error {
	var xe *Error
	if errors.As(err, &xe) {
		return err
	}
	s.logger.Error("unexpected error", "op", op, "error", err)
	return &Error{Kind: KindUnexpected, Op: op, Message: "unexpected error", Err: err}
}

// removeArtifact deletes a report artifact, logging instead of failing.
func (s *Service) removeArtifact(ctx context.Context, op, name string) {
	if err := s.artifacts.Delete(ctx, name); err != nil {
		s.logger.Warn("failed to remove artifact", "op", op, "artifact", name, "error", err)
	}
}
