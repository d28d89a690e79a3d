package xdt

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"xdt-go/internal/model"
)

// ResyncResult counts the outcome of Resync.
type ResyncResult struct {
	Removed int
	// Skipped counts reports without an artifact that were kept because
	// they carry notes or relations.
	Skipped int
	// Failed counts reports whose artifact could not be checked.
	Failed int
}

// ListReports returns every report ordered by creation time.
func (s *Service) ListReports(ctx context.Context, newestFirst bool) ([]*model.DiffReport, error) {
	reports, err := s.store.ListReports(ctx, newestFirst)
	if err != nil {
		return nil, s.fail("list reports", err)
	}
	return reports, nil
}

// GetReport returns one report.
func (s *Service) GetReport(ctx context.Context, id int64) (*model.DiffReport, error) {
	const op = "get report"
	r, err := s.store.FindReportByID(ctx, id)
	if err != nil {
		return nil, s.fail(op, err)
	}
	if r == nil {
		return nil, notFound(op, "report %d does not exist", id)
	}
	return r, nil
}

// ReadReport returns the stored diff text of a report.
func (s *Service) ReadReport(ctx context.Context, id int64) (string, error) {
	const op = "read report"
	r, err := s.GetReport(ctx, id)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := s.artifacts.Get(ctx, r.Name, &buf); err != nil {
		if errors.Is(err, ErrArtifactNotFound) {
			return "", notFound(op, "artifact %s of report %d is missing", r.Name, id)
		}
		return "", ioError(op, err, "reading artifact %s", r.Name)
	}
	return buf.String(), nil
}

// DeleteReport removes a report and its artifact. A report with notes or
// relations is only removed when allowCascade is set; those, together with
// note visibility and notifications, are then removed in the same
// transaction.
func (s *Service) DeleteReport(ctx context.Context, id int64, allowCascade bool) error {
	const op = "delete report"

	err := s.store.Transact(ctx, func(q Queries) error {
		r, err := q.FindReportByID(ctx, id)
		if err != nil {
			return fmt.Errorf("finding report: %w", err)
		}
		if r == nil {
			return notFound(op, "report %d does not exist", id)
		}
		notes, relations, err := reportDependents(ctx, q, id)
		if err != nil {
			return err
		}
		if notes+relations > 0 && !allowCascade {
			return hasDependents(op, "report %d has %d note(s) and %d relation(s)", id, notes, relations)
		}
		return s.deleteReport(ctx, q, op, r, allowCascade)
	})
	if err != nil {
		return s.fail(op, err)
	}

	s.logger.Info("report deleted", "id", id, "cascade", allowCascade)
	return nil
}

// Resync removes reports whose artifact has disappeared. Reports with
// notes or relations are never removed this way; they are counted and
// logged.
// Each report is handled in its own transaction.
func (s *Service) Resync(ctx context.Context) (*ResyncResult, error) {
	const op = "resync"

	reports, err := s.store.ListReports(ctx, false)
	if err != nil {
		return nil, s.fail(op, err)
	}

	result := &ResyncResult{}
	for _, r := range reports {
		exists, err := s.artifacts.Exists(ctx, r.Name)
		if err != nil {
			s.logger.Warn("cannot check artifact", "report", r.ID, "artifact", r.Name, "error", err)
			result.Failed++
			continue
		}
		if exists {
			continue
		}

		var skipped bool
		err = s.store.Transact(ctx, func(q Queries) error {
			notes, relations, err := reportDependents(ctx, q, r.ID)
			if err != nil {
				return err
			}
			if notes+relations > 0 {
				skipped = true
				return nil
			}
			return q.DeleteReport(ctx, r.ID)
		})
		if err != nil {
			return result, s.fail(op, err)
		}
		if skipped {
			s.logger.Warn("inconsistent report: artifact missing but dependents attached",
				"report", r.ID, "artifact", r.Name)
			result.Skipped++
			continue
		}
		result.Removed++
	}

	s.logger.Info("reports resynced", "removed", result.Removed, "skipped", result.Skipped, "failed", result.Failed)
	return result, nil
}
