package xdt

import (
	"context"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"xdt-go/internal/model"
)

const (
	previewRunes             = 120
	defaultNotificationLimit = 20
	maxNotificationLimit     = 100
	emptyNotePreview         = "A note was shared with you."
)

// NotificationQuery selects a page of a user's notifications.
type NotificationQuery struct {
	OnlyUnread bool
	// Limit defaults to 20 and is capped at 100.
	Limit  int
	Offset int
}

// notify creates one notification per recipient other than the actor.
// A recipient that still has an unread notification for the note gets
// no second one. It returns the number of notifications created.
func (s *Service) notify(ctx context.Context, q Queries, actorID int64, note *model.Note, recipients []int64) (int, error) {
	message := notePreview(note.Content)
	created := 0
	for _, rid := range recipients {
		if rid == actorID {
			continue
		}
		pending, err := q.HasUnreadNotification(ctx, rid, note.ID)
		if err != nil {
			return created, fmt.Errorf("checking notifications of user %d: %w", rid, err)
		}
		if pending {
			continue
		}
		n := &model.Notification{
			RecipientID: rid,
			ActorID:     actorID,
			NoteID:      note.ID,
			Message:     message,
			CreatedAt:   s.clock.Now(),
		}
		if err := q.InsertNotification(ctx, n); err != nil {
			return created, fmt.Errorf("notifying user %d: %w", rid, err)
		}
		created++
	}
	return created, nil
}

// notePreview shortens note content to 120 runes, marking the cut with "…".
func notePreview(content string) string {
	content = norm.NFC.String(content)
	if content == "" {
		return emptyNotePreview
	}
	if utf8.RuneCountInString(content) <= previewRunes {
		return content
	}
	runes := []rune(content)
	return string(runes[:previewRunes]) + "…"
}

// ListNotifications returns a page of the user's notifications, newest
// first, together with the total number matching the query.
func (s *Service) ListNotifications(ctx context.Context, userID int64, query NotificationQuery) ([]*model.Notification, int, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = defaultNotificationLimit
	}
	if limit > maxNotificationLimit {
		limit = maxNotificationLimit
	}
	offset := query.Offset
	if offset < 0 {
		offset = 0
	}

	items, total, err := s.store.ListNotifications(ctx, userID, query.OnlyUnread, limit, offset)
	if err != nil {
		return nil, 0, s.fail("list notifications", err)
	}
	return items, total, nil
}

// UnreadCount returns how many unread notifications the user has.
func (s *Service) UnreadCount(ctx context.Context, userID int64) (int, error) {
	n, err := s.store.CountUnreadNotifications(ctx, userID)
	if err != nil {
		return 0, s.fail("unread count", err)
	}
	return n, nil
}

// MarkRead marks one of the user's notifications as read. Notifications
// of other users are reported as not found.
func (s *Service) MarkRead(ctx context.Context, userID, id int64) (*model.Notification, error) {
	const op = "mark read"

	var result *model.Notification
	err := s.store.Transact(ctx, func(q Queries) error {
		n, err := q.FindNotification(ctx, userID, id)
		if err != nil {
			return fmt.Errorf("finding notification: %w", err)
		}
		if n == nil {
			return notFound(op, "notification %d does not exist", id)
		}
		if !n.IsRead {
			if err := q.MarkNotificationRead(ctx, userID, id); err != nil {
				return fmt.Errorf("marking notification read: %w", err)
			}
			n.IsRead = true
		}
		result = n
		return nil
	})
	if err != nil {
		return nil, s.fail(op, err)
	}
	return result, nil
}

// MarkAllRead marks every unread notification of the user as read and
// returns how many changed.
func (s *Service) MarkAllRead(ctx context.Context, userID int64) (int, error) {
	var n int
	err := s.store.Transact(ctx, func(q Queries) error {
		var err error
		n, err = q.MarkAllNotificationsRead(ctx, userID)
		return err
	})
	if err != nil {
		return 0, s.fail("mark all read", err)
	}
	return n, nil
}

// DeleteNotification removes one of the user's notifications.
func (s *Service) DeleteNotification(ctx context.Context, userID, id int64) error {
	const op = "delete notification"
	err := s.store.Transact(ctx, func(q Queries) error {
		n, err := q.FindNotification(ctx, userID, id)
		if err != nil {
			return fmt.Errorf("finding notification: %w", err)
		}
		if n == nil {
			return notFound(op, "notification %d does not exist", id)
		}
		return q.DeleteNotification(ctx, userID, id)
	})
	if err != nil {
		return s.fail(op, err)
	}
	return nil
}

// DeleteReadNotifications removes the user's read notifications and
// returns how many were removed.
func (s *Service) DeleteReadNotifications(ctx context.Context, userID int64) (int, error) {
	var n int
	err := s.store.Transact(ctx, func(q Queries) error {
		var err error
		n, err = q.DeleteReadNotifications(ctx, userID)
		return err
	})
	if err != nil {
		return 0, s.fail("delete read notifications", err)
	}
	return n, nil
}
