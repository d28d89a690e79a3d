package xdt

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"xdt-go/internal/model"
)

// ReconcileResult counts the changes made by one reconciliation pass.
type ReconcileResult struct {
	Added   int
	Removed int
	// Skipped counts vanished files kept because their reports carry notes
	// or relations.
	Skipped int
	// Failed counts entries that could not be read or checked. Records
	// below a failed entry are left untouched.
	Failed int
}

// Reconcile aligns the tracked files under rootDir with what is on disk.
// Files only on disk are added. Records only in the catalog are removed
// together with their reports, unless one of those reports carries notes
// or relations.
// Only records whose stored path starts with the root's base name are
// considered, so several roots can share one catalog.
func (s *Service) Reconcile(ctx context.Context, rootDir string) (*ReconcileResult, error) {
	const op = "reconcile"

	root, err := s.fsmgr.Resolve(rootDir)
	if err != nil {
		return nil, notFound(op, "root directory %q: %v", rootDir, err)
	}
	if !root.IsDir() {
		return nil, invalidInput(op, "not a directory: %s", root.String())
	}

	found, failed, err := s.fsmgr.FindFiles(root, true)
	if err != nil {
		return nil, ioError(op, err, "scanning %s", root.String())
	}

	result := &ReconcileResult{}
	var unseen []string
	markFailed := func(p string, err error) {
		s.logger.Warn("entry skipped", "path", p, "error", err)
		result.Failed++
		if canonical, cerr := canonicalPath(root.String(), p); cerr == nil {
			unseen = append(unseen, canonical)
		}
	}
	for _, p := range failed {
		markFailed(p, errors.New("unreadable"))
	}

	onDisk := make(map[string]bool)
	for _, f := range found {
		if !s.isTracked(f.String()) {
			continue
		}
		ignored, err := s.fsmgr.IsIgnored(f, root.String())
		if err != nil {
			markFailed(f.String(), err)
			continue
		}
		if ignored {
			continue
		}
		canonical, err := canonicalPath(root.String(), f.String())
		if err != nil {
			return nil, s.fail(op, err)
		}
		onDisk[canonical] = true
	}

	prefix := rootBase(root.String()) + "/"
	err = s.store.Transact(ctx, func(q Queries) error {
		existing, err := q.ListFilesByPathPrefix(ctx, prefix)
		if err != nil {
			return fmt.Errorf("listing tracked files: %w", err)
		}
		known := make(map[string]bool, len(existing))
		for _, f := range existing {
			known[f.Path] = true
		}

		added := make([]string, 0, len(onDisk))
		for p := range onDisk {
			if !known[p] {
				added = append(added, p)
			}
		}
		sort.Strings(added)

		now := s.clock.Now()
		for _, p := range added {
			f := &model.TrackedFile{Path: p, RootDir: root.String(), UploadedAt: now, UpdatedAt: now}
			if err := q.InsertFile(ctx, f); err != nil {
				if errors.Is(err, ErrAlreadyExists) {
					continue
				}
				return fmt.Errorf("inserting %s: %w", p, err)
			}
			result.Added++
		}

		for _, f := range existing {
			if onDisk[f.Path] || underAny(f.Path, unseen) {
				continue
			}
			reports, err := q.ListReportsForFile(ctx, f.ID)
			if err != nil {
				return fmt.Errorf("listing reports for %s: %w", f.Path, err)
			}
			protected, err := protectedReports(ctx, q, reports)
			if err != nil {
				return err
			}
			if protected > 0 {
				s.logger.Warn("vanished file kept: reports carry notes or relations",
					"path", f.Path, "reports", len(reports), "protected", protected)
				result.Skipped++
				continue
			}
			for _, r := range reports {
				if err := s.deleteReport(ctx, q, op, r, false); err != nil {
					return err
				}
			}
			if err := q.DeleteFile(ctx, f.ID); err != nil {
				return fmt.Errorf("deleting %s: %w", f.Path, err)
			}
			result.Removed++
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(op, err)
	}

	s.logger.Info("root reconciled", "root", root.String(),
		"added", result.Added, "removed", result.Removed, "skipped", result.Skipped, "failed", result.Failed)
	return result, nil
}

// Register tracks a single file that lives under one of the configured
// roots. Registering an already tracked file returns the existing record.
func (s *Service) Register(ctx context.Context, rawPath string) (*model.TrackedFile, error) {
	const op = "register"

	p, err := s.fsmgr.Resolve(rawPath)
	if err != nil {
		return nil, notFound(op, "file %q: %v", rawPath, err)
	}
	if p.IsDir() {
		return nil, invalidInput(op, "path is a directory: %s", p.String())
	}
	if !s.isTracked(p.String()) {
		return nil, invalidInput(op, "not a tracked file type: %s", p.String())
	}
	root := s.rootFor(p.String())
	if root == "" {
		return nil, invalidInput(op, "file is not within a watched root: %s", p.String())
	}
	canonical, err := canonicalPath(root, p.String())
	if err != nil {
		return nil, s.fail(op, err)
	}

	var tracked *model.TrackedFile
	err = s.store.Transact(ctx, func(q Queries) error {
		existing, err := q.FindFileByPath(ctx, canonical)
		if err != nil {
			return fmt.Errorf("checking for existing file: %w", err)
		}
		if existing != nil {
			tracked = existing
			return nil
		}

		now := s.clock.Now()
		f := &model.TrackedFile{Path: canonical, RootDir: root, UploadedAt: now, UpdatedAt: now}
		if err := q.InsertFile(ctx, f); err != nil {
			if !errors.Is(err, ErrAlreadyExists) {
				return fmt.Errorf("inserting file: %w", err)
			}
			f, err = q.FindFileByPath(ctx, canonical)
			if err != nil {
				return fmt.Errorf("re-reading concurrently inserted file: %w", err)
			}
			if f == nil {
				return fmt.Errorf("file %s vanished after unique violation", canonical)
			}
		}
		tracked = f
		return nil
	})
	if err != nil {
		return nil, s.fail(op, err)
	}

	s.logger.Debug("file registered", "path", tracked.Path, "id", tracked.ID)
	return tracked, nil
}

// ListFiles returns every tracked file, newest first.
func (s *Service) ListFiles(ctx context.Context) ([]*model.TrackedFile, error) {
	files, err := s.store.ListFiles(ctx)
	if err != nil {
		return nil, s.fail("list files", err)
	}
	return files, nil
}

// GetFile returns one tracked file.
func (s *Service) GetFile(ctx context.Context, id int64) (*model.TrackedFile, error) {
	const op = "get file"
	f, err := s.store.FindFileByID(ctx, id)
	if err != nil {
		return nil, s.fail(op, err)
	}
	if f == nil {
		return nil, notFound(op, "file %d does not exist", id)
	}
	return f, nil
}

// DeleteFile removes a tracked file and the reports comparing it. The file
// on disk is left alone. Reports with notes or relations block the
// deletion unless allowCascade is set, in which case those go too.
func (s *Service) DeleteFile(ctx context.Context, id int64, allowCascade bool) error {
	const op = "delete file"

	err := s.store.Transact(ctx, func(q Queries) error {
		f, err := q.FindFileByID(ctx, id)
		if err != nil {
			return fmt.Errorf("finding file: %w", err)
		}
		if f == nil {
			return notFound(op, "file %d does not exist", id)
		}
		reports, err := q.ListReportsForFile(ctx, id)
		if err != nil {
			return fmt.Errorf("listing reports: %w", err)
		}
		protected, err := protectedReports(ctx, q, reports)
		if err != nil {
			return err
		}
		if protected > 0 && !allowCascade {
			return hasDependents(op, "file %d has %d report(s) with notes or relations", id, protected)
		}
		for _, r := range reports {
			if err := s.deleteReport(ctx, q, op, r, allowCascade); err != nil {
				return err
			}
		}
		if err := q.DeleteFile(ctx, id); err != nil {
			return fmt.Errorf("deleting file: %w", err)
		}
		return nil
	})
	if err != nil {
		return s.fail(op, err)
	}

	s.logger.Info("file deleted", "id", id)
	return nil
}

// FilePath resolves a tracked file back to its location on disk.
func FilePath(f *model.TrackedFile) string {
	rel := f.Path
	if i := strings.IndexByte(rel, '/'); i >= 0 {
		rel = rel[i+1:]
	}
	return filepath.Join(f.RootDir, filepath.FromSlash(rel))
}

func (s *Service) isTracked(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range s.opts.Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// rootFor returns the configured root containing absPath, preferring the
// deepest one.
func (s *Service) rootFor(absPath string) string {
	best := ""
	for _, root := range s.opts.Roots {
		root = filepath.Clean(root)
		rel, err := filepath.Rel(root, absPath)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		if len(root) > len(best) {
			best = root
		}
	}
	return best
}

func rootBase(root string) string {
	return filepath.Base(filepath.Clean(root))
}

// canonicalPath builds the storage path "<root base>/<relative path>"
// with forward slashes regardless of platform.
func canonicalPath(root, absPath string) (string, error) {
	rel, err := filepath.Rel(root, absPath)
	if err != nil {
		return "", fmt.Errorf("relativizing %s: %w", absPath, err)
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is not inside %s", absPath, root)
	}
	p := path.Join(rootBase(root), filepath.ToSlash(rel))
	return strings.ReplaceAll(p, `\`, "/"), nil
}

// underAny reports whether the storage path p equals or lies below one of
// prefixes.
func underAny(p string, prefixes []string) bool {
	for _, pre := range prefixes {
		if p == pre || strings.HasPrefix(p, pre+"/") {
			return true
		}
	}
	return false
}

// reportDependents counts the notes and relations attached to a report.
func reportDependents(ctx context.Context, q Queries, reportID int64) (notes, relations int, err error) {
	notes, err = q.CountNotesForReport(ctx, reportID)
	if err != nil {
		return 0, 0, fmt.Errorf("counting notes of report %d: %w", reportID, err)
	}
	relations, err = q.CountRelationsForReport(ctx, reportID)
	if err != nil {
		return 0, 0, fmt.Errorf("counting relations of report %d: %w", reportID, err)
	}
	return notes, relations, nil
}

// protectedReports counts the reports that carry notes or relations.
func protectedReports(ctx context.Context, q Queries, reports []*model.DiffReport) (int, error) {
	n := 0
	for _, r := range reports {
		notes, relations, err := reportDependents(ctx, q, r.ID)
		if err != nil {
			return 0, err
		}
		if notes+relations > 0 {
			n++
		}
	}
	return n, nil
}

// deleteReport removes the artifact best-effort, then the report row.
// With cascade the report's notes and relations are removed first; note
// visibility rows and notifications follow through foreign keys.
func (s *Service) deleteReport(ctx context.Context, q Queries, op string, r *model.DiffReport, cascade bool) error {
	if cascade {
		n, err := q.DeleteNotesForReport(ctx, r.ID)
		if err != nil {
			return fmt.Errorf("deleting notes of report %d: %w", r.ID, err)
		}
		rels, err := q.DeleteRelationsForReport(ctx, r.ID)
		if err != nil {
			return fmt.Errorf("deleting relations of report %d: %w", r.ID, err)
		}
		if n+rels > 0 {
			s.logger.Info("dependents deleted with report", "report", r.ID, "notes", n, "relations", rels)
		}
	}
	s.removeArtifact(ctx, op, r.Name)
	if err := q.DeleteReport(ctx, r.ID); err != nil {
		return fmt.Errorf("deleting report %d: %w", r.ID, err)
	}
	return nil
}
