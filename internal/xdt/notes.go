package xdt

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"xdt-go/internal/model"
)

// Actor is the already authenticated user performing an operation.
type Actor struct {
	UserID  int64
	IsAdmin bool
}

// canRead reports whether the actor may see the note: its owner, an
// administrator, or a member of its visibility set.
func (a Actor) canRead(n *model.Note) bool {
	if a.canEdit(n) {
		return true
	}
	for _, id := range n.VisibleTo {
		if id == a.UserID {
			return true
		}
	}
	return false
}

// canEdit reports whether the actor may change or delete the note.
func (a Actor) canEdit(n *model.Note) bool {
	return a.IsAdmin || n.OwnerID == a.UserID
}

// CreateNote attaches a note to a report and notifies every user in
// visibleTo except the author.
func (s *Service) CreateNote(ctx context.Context, actor Actor, reportID int64, content string, visibleTo []int64) (*model.Note, error) {
	const op = "create note"

	if actor.UserID <= 0 {
		return nil, invalidInput(op, "invalid user id %d", actor.UserID)
	}
	content, err := cleanContent(op, content)
	if err != nil {
		return nil, err
	}
	viewers, err := normalizeViewers(op, actor.UserID, visibleTo)
	if err != nil {
		return nil, err
	}

	var note *model.Note
	var notified int
	err = s.store.Transact(ctx, func(q Queries) error {
		r, err := q.FindReportByID(ctx, reportID)
		if err != nil {
			return fmt.Errorf("finding report: %w", err)
		}
		if r == nil {
			return notFound(op, "report %d does not exist", reportID)
		}

		now := s.clock.Now()
		n := &model.Note{
			OwnerID:   actor.UserID,
			ReportID:  reportID,
			Content:   content,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := q.InsertNote(ctx, n); err != nil {
			return fmt.Errorf("inserting note: %w", err)
		}
		if err := q.ReplaceNoteViewers(ctx, n.ID, viewers); err != nil {
			return fmt.Errorf("storing visibility: %w", err)
		}
		n.VisibleTo = viewers

		notified, err = s.notify(ctx, q, actor.UserID, n, viewers)
		if err != nil {
			return err
		}
		note = n
		return nil
	})
	if err != nil {
		return nil, s.fail(op, err)
	}

	s.logger.Info("note created", "note", note.ID, "report", reportID, "owner", actor.UserID, "notified", notified)
	return note, nil
}

// GetNote returns a note the actor is allowed to read.
func (s *Service) GetNote(ctx context.Context, actor Actor, id int64) (*model.Note, error) {
	const op = "get note"
	n, err := s.store.FindNoteByID(ctx, id)
	if err != nil {
		return nil, s.fail(op, err)
	}
	if n == nil {
		return nil, notFound(op, "note %d does not exist", id)
	}
	if !actor.canRead(n) {
		return nil, forbidden(op, "note %d is not visible to user %d", id, actor.UserID)
	}
	return n, nil
}

// ListNotes returns the notes of a report that the actor may read,
// newest first.
func (s *Service) ListNotes(ctx context.Context, actor Actor, reportID int64) ([]*model.Note, error) {
	const op = "list notes"
	r, err := s.store.FindReportByID(ctx, reportID)
	if err != nil {
		return nil, s.fail(op, err)
	}
	if r == nil {
		return nil, notFound(op, "report %d does not exist", reportID)
	}
	notes, err := s.store.ListNotesForReport(ctx, reportID)
	if err != nil {
		return nil, s.fail(op, err)
	}
	visible := make([]*model.Note, 0, len(notes))
	for _, n := range notes {
		if actor.canRead(n) {
			visible = append(visible, n)
		}
	}
	return visible, nil
}

// UpdateNote replaces the content of a note. Owner or administrator only.
func (s *Service) UpdateNote(ctx context.Context, actor Actor, id int64, content string) (*model.Note, error) {
	const op = "update note"

	content, err := cleanContent(op, content)
	if err != nil {
		return nil, err
	}

	var note *model.Note
	err = s.store.Transact(ctx, func(q Queries) error {
		n, err := q.FindNoteByID(ctx, id)
		if err != nil {
			return fmt.Errorf("finding note: %w", err)
		}
		if n == nil {
			return notFound(op, "note %d does not exist", id)
		}
		if !actor.canEdit(n) {
			return forbidden(op, "user %d may not edit note %d", actor.UserID, id)
		}
		now := s.clock.Now()
		if err := q.UpdateNoteContent(ctx, id, content, now); err != nil {
			return fmt.Errorf("updating note: %w", err)
		}
		n.Content = content
		n.UpdatedAt = now
		note = n
		return nil
	})
	if err != nil {
		return nil, s.fail(op, err)
	}
	return note, nil
}

// DeleteNote removes a note with its visibility rows and notifications.
// Owner or administrator only.
func (s *Service) DeleteNote(ctx context.Context, actor Actor, id int64) error {
	const op = "delete note"

	err := s.store.Transact(ctx, func(q Queries) error {
		n, err := q.FindNoteByID(ctx, id)
		if err != nil {
			return fmt.Errorf("finding note: %w", err)
		}
		if n == nil {
			return notFound(op, "note %d does not exist", id)
		}
		if !actor.canEdit(n) {
			return forbidden(op, "user %d may not delete note %d", actor.UserID, id)
		}
		return q.DeleteNote(ctx, id)
	})
	if err != nil {
		return s.fail(op, err)
	}

	s.logger.Info("note deleted", "note", id, "by", actor.UserID)
	return nil
}

// SetVisibility replaces the visibility set of a note. Only the owner may
// do this, administrators cannot. Users newly granted access are notified.
func (s *Service) SetVisibility(ctx context.Context, actor Actor, id int64, visibleTo []int64) (*model.Note, error) {
	const op = "set visibility"

	var note *model.Note
	var notified int
	err := s.store.Transact(ctx, func(q Queries) error {
		n, err := q.FindNoteByID(ctx, id)
		if err != nil {
			return fmt.Errorf("finding note: %w", err)
		}
		if n == nil {
			return notFound(op, "note %d does not exist", id)
		}
		if n.OwnerID != actor.UserID {
			return forbidden(op, "only the owner may change visibility of note %d", id)
		}
		viewers, err := normalizeViewers(op, n.OwnerID, visibleTo)
		if err != nil {
			return err
		}

		granted := difference(viewers, n.VisibleTo)
		if err := q.ReplaceNoteViewers(ctx, id, viewers); err != nil {
			return fmt.Errorf("storing visibility: %w", err)
		}
		n.VisibleTo = viewers

		notified, err = s.notify(ctx, q, actor.UserID, n, granted)
		if err != nil {
			return err
		}
		note = n
		return nil
	})
	if err != nil {
		return nil, s.fail(op, err)
	}

	s.logger.Info("visibility changed", "note", id, "viewers", len(note.VisibleTo), "notified", notified)
	return note, nil
}

// cleanContent trims and NFC-normalizes note text, rejecting empty notes.
func cleanContent(op, content string) (string, error) {
	content = norm.NFC.String(strings.TrimSpace(content))
	if content == "" {
		return "", invalidInput(op, "note content must not be empty")
	}
	return content, nil
}

// normalizeViewers sorts and deduplicates ids and drops the owner.
func normalizeViewers(op string, ownerID int64, ids []int64) ([]int64, error) {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return nil, invalidInput(op, "invalid user id %d in visibility set", id)
		}
		if id == ownerID || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// difference returns the ids in a that are not in b.
func difference(a, b []int64) []int64 {
	in := make(map[int64]bool, len(b))
	for _, id := range b {
		in[id] = true
	}
	var out []int64
	for _, id := range a {
		if !in[id] {
			out = append(out, id)
		}
	}
	return out
}
