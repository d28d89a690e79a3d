package xdt

import (
	"context"
	"time"

	"xdt-go/internal/model"
)

// Queries is the set of catalog operations available both outside and
// inside a transaction. Lookups return nil, nil when nothing matches.
type Queries interface {
	// Tracked files
	InsertFile(ctx context.Context, f *model.TrackedFile) error
	FindFileByID(ctx context.Context, id int64) (*model.TrackedFile, error)
	FindFileByPath(ctx context.Context, path string) (*model.TrackedFile, error)
	ListFiles(ctx context.Context) ([]*model.TrackedFile, error)
	ListFilesByPathPrefix(ctx context.Context, prefix string) ([]*model.TrackedFile, error)
	DeleteFile(ctx context.Context, id int64) error

	// Diff reports
	InsertReport(ctx context.Context, r *model.DiffReport) error
	FindReportByID(ctx context.Context, id int64) (*model.DiffReport, error)
	ListReports(ctx context.Context, newestFirst bool) ([]*model.DiffReport, error)
	ListReportsForFile(ctx context.Context, fileID int64) ([]*model.DiffReport, error)
	DeleteReport(ctx context.Context, id int64) error

	// Notes
	InsertNote(ctx context.Context, n *model.Note) error
	FindNoteByID(ctx context.Context, id int64) (*model.Note, error)
	ListNotesForReport(ctx context.Context, reportID int64) ([]*model.Note, error)
	CountNotesForReport(ctx context.Context, reportID int64) (int, error)
	UpdateNoteContent(ctx context.Context, id int64, content string, updatedAt time.Time) error
	ReplaceNoteViewers(ctx context.Context, noteID int64, userIDs []int64) error
	DeleteNote(ctx context.Context, id int64) error
	DeleteNotesForReport(ctx context.Context, reportID int64) (int, error)

	// Relations
	InsertRelation(ctx context.Context, r *model.Relation) error
	FindRelationByID(ctx context.Context, id int64) (*model.Relation, error)
	ListRelationsForReport(ctx context.Context, reportID int64) ([]*model.Relation, error)
	CountRelationsForReport(ctx context.Context, reportID int64) (int, error)
	UpdateRelation(ctx context.Context, r *model.Relation) error
	DeleteRelation(ctx context.Context, id int64) error
	DeleteRelationsForReport(ctx context.Context, reportID int64) (int, error)

	// Notifications. All lookups are scoped by recipient.
	InsertNotification(ctx context.Context, n *model.Notification) error
	HasUnreadNotification(ctx context.Context, recipientID, noteID int64) (bool, error)
	FindNotification(ctx context.Context, recipientID, id int64) (*model.Notification, error)
	ListNotifications(ctx context.Context, recipientID int64, onlyUnread bool, limit, offset int) ([]*model.Notification, int, error)
	CountUnreadNotifications(ctx context.Context, recipientID int64) (int, error)
	MarkNotificationRead(ctx context.Context, recipientID, id int64) error
	MarkAllNotificationsRead(ctx context.Context, recipientID int64) (int, error)
	DeleteNotification(ctx context.Context, recipientID, id int64) error
	DeleteReadNotifications(ctx context.Context, recipientID int64) (int, error)
}

// Store is the persistent catalog. Transact runs fn inside a single
// transaction which is committed once if fn returns nil and rolled back
// otherwise.
type Store interface {
	Queries
	Transact(ctx context.Context, fn func(q Queries) error) error
	Close() error
}
