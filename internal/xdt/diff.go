package xdt

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/pmezard/go-difflib/difflib"

	"xdt-go/internal/model"
)

// FilterPolicy controls post-processing of rendered diffs.
type FilterPolicy struct {
	// Enabled strips headers and XML boilerplate lines from the artifact.
	Enabled bool
}

// DiffResult describes a generated report.
type DiffResult struct {
	ReportID int64
	Filename string
	Summary  string
	Added    int
	Removed  int
	Hunks    int
}

// GenerateDiff compares two tracked files line by line, stores the unified
// diff as an artifact and records a report for it. The artifact is written
// before the report row; if recording fails the artifact is removed.
func (s *Service) GenerateDiff(ctx context.Context, oldID, newID int64, policy FilterPolicy) (*DiffResult, error) {
	const op = "generate diff"

	if oldID == newID {
		return nil, invalidInput(op, "cannot compare file %d with itself", oldID)
	}
	oldFile, err := s.GetFile(ctx, oldID)
	if err != nil {
		return nil, err
	}
	newFile, err := s.GetFile(ctx, newID)
	if err != nil {
		return nil, err
	}

	oldText, err := s.readText(op, oldFile)
	if err != nil {
		return nil, err
	}
	newText, err := s.readText(op, newFile)
	if err != nil {
		return nil, err
	}

	oldName, newName := path.Base(oldFile.Path), path.Base(newFile.Path)
	rendered, err := RenderUnifiedDiff(oldName, newName, oldText, newText, s.opts.ContextLines)
	if err != nil {
		return nil, s.fail(op, fmt.Errorf("rendering diff: %w", err))
	}
	stats := Summarize(ParseUnifiedDiff(rendered))

	body := rendered
	if policy.Enabled {
		body = FilterNoise(rendered)
	}

	name := s.artifactName()
	if err := s.artifacts.Put(ctx, name, strings.NewReader(body), int64(len(body))); err != nil {
		return nil, ioError(op, err, "writing artifact %s", name)
	}

	report := &model.DiffReport{
		OldFileID: oldID,
		NewFileID: newID,
		Name:      name,
		Location:  s.artifacts.Location(name),
		Filtered:  policy.Enabled,
		Added:     stats.Added,
		Removed:   stats.Removed,
		Hunks:     stats.Hunks,
		CreatedAt: s.clock.Now(),
	}
	err = s.store.Transact(ctx, func(q Queries) error {
		return q.InsertReport(ctx, report)
	})
	if err != nil {
		s.removeArtifact(ctx, op, name)
		return nil, s.fail(op, fmt.Errorf("recording report: %w", err))
	}

	result := &DiffResult{
		ReportID: report.ID,
		Filename: name,
		Summary:  summaryLine(oldName, newName, stats),
		Added:    stats.Added,
		Removed:  stats.Removed,
		Hunks:    stats.Hunks,
	}
	s.logger.Info("diff generated", "report", report.ID, "artifact", name,
		"old", oldFile.Path, "new", newFile.Path, "hunks", stats.Hunks, "filtered", policy.Enabled)
	return result, nil
}

func (s *Service) readText(op string, f *model.TrackedFile) (string, error) {
	p, err := s.fsmgr.Resolve(FilePath(f))
	if err != nil {
		return "", notFound(op, "backing file of %s is missing: %v", f.Path, err)
	}
	r, err := s.fsmgr.Open(p)
	if err != nil {
		return "", notFound(op, "backing file of %s is unreadable: %v", f.Path, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return "", notFound(op, "reading %s: %v", f.Path, err)
	}
	if !utf8.Valid(data) {
		return "", notFound(op, "%s is not valid UTF-8 text", f.Path)
	}
	return string(data), nil
}

// artifactName returns "diff_report_<timestamp>_<8 hex chars>.txt".
func (s *Service) artifactName() string {
	suffix := strings.ReplaceAll(s.idgen.New(), "-", "")
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return fmt.Sprintf("diff_report_%s_%s.txt", s.clock.Now().Format("20060102150405"), suffix)
}

// RenderUnifiedDiff renders a unified diff of two texts. Line endings are
// normalized to LF. A final line without newline differs from the same
// line with one and is rendered with the usual "\ No newline at end of
// file" marker. Identical texts render as "".
func RenderUnifiedDiff(oldName, newName, oldText, newText string, contextLines int) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        splitLines(oldText),
		B:        splitLines(newText),
		FromFile: "OLD: " + oldName,
		ToFile:   "NEW: " + newName,
		Context:  contextLines,
	})
}

const noNewlineMarker = "\\ No newline at end of file\n"

// splitLines splits text into newline-terminated lines. An unterminated
// last line carries the no-newline marker.
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if text == "" {
		return nil
	}
	lines := strings.SplitAfter(text, "\n")
	last := len(lines) - 1
	if lines[last] == "" {
		return lines[:last]
	}
	lines[last] += "\n" + noNewlineMarker
	return lines
}

// DiffStats aggregates the changes in a parsed diff.
type DiffStats struct {
	Hunks   int
	Added   int
	Removed int
}

// Summarize counts hunks and changed lines.
func Summarize(hunks []Hunk) DiffStats {
	stats := DiffStats{Hunks: len(hunks)}
	for _, h := range hunks {
		for _, l := range h.Lines {
			switch l.Kind {
			case LineAdded:
				stats.Added++
			case LineRemoved:
				stats.Removed++
			}
		}
	}
	return stats
}

func summaryLine(oldName, newName string, stats DiffStats) string {
	if stats.Hunks == 0 {
		return fmt.Sprintf("%s → %s: no differences", oldName, newName)
	}
	return fmt.Sprintf("%s → %s: %d hunk(s), +%d/-%d lines", oldName, newName, stats.Hunks, stats.Added, stats.Removed)
}
