package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"xdt-go/internal/database/migrations"
	"xdt-go/internal/model"
	"xdt-go/internal/xdt"
)

// SQLiteDatabase implements xdt.Store on SQLite.
type SQLiteDatabase struct {
	queries
	db   *sqlx.DB
	path string
}

// NewSQLiteDatabase opens the catalog at path, which can be a file path
// or ":memory:". The schema is not migrated; see Migrate and CheckMigrations.
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteDatabase{queries: queries{ext: db}, db: db, path: path}, nil
}

// OpenConnection opens and configures a SQLite connection. A single
// connection serializes writers and keeps ":memory:" catalogs alive
// across calls.
func OpenConnection(path string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// connectionParams are applied by the driver to every new connection.
const connectionParams = "_foreign_keys=on&_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"

// dsn appends the connection parameters to path.
func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + connectionParams
}

// Transact runs fn in a transaction, committing once if fn succeeds.
func (s *SQLiteDatabase) Transact(ctx context.Context, fn func(q xdt.Queries) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&queries{ext: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// Migrate applies pending schema migrations.
func (s *SQLiteDatabase) Migrate() error {
	return migrations.MigrateUp(s.db.DB)
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db.DB)
}

// BackupTo writes a consistent copy of the catalog to destPath using VACUUM INTO.
func (s *SQLiteDatabase) BackupTo(ctx context.Context, destPath string) error {
	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Operation history

func (s *SQLiteDatabase) CreateOperation(ctx context.Context, operation, parameters string) (*model.Operation, error) {
	op := &model.Operation{
		Operation:  operation,
		Parameters: parameters,
		Status:     "running",
		StartedAt:  time.Now().UTC(),
	}
	res, err := sqlx.NamedExecContext(ctx, s.db,
		`INSERT INTO operations (operation, parameters, status, started_at)
		 VALUES (:operation, :parameters, :status, :started_at)`, op)
	if err != nil {
		return nil, fmt.Errorf("creating operation: %w", err)
	}
	if op.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("reading operation id: %w", err)
	}
	return op, nil
}

func (s *SQLiteDatabase) FinishOperation(ctx context.Context, id int64, status string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE operations SET status = ?, finished_at = ? WHERE id = ?", status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("finishing operation: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) ListOperations(ctx context.Context, limit int) ([]*model.Operation, error) {
	var ops []*model.Operation
	err := s.db.SelectContext(ctx, &ops,
		"SELECT * FROM operations ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	return ops, nil
}

// queries implements xdt.Queries over either the database or a transaction.
type queries struct {
	ext sqlx.ExtContext
}

// Tracked files

func (q *queries) InsertFile(ctx context.Context, f *model.TrackedFile) error {
	res, err := sqlx.NamedExecContext(ctx, q.ext,
		`INSERT INTO tracked_files (path, root_dir, uploaded_at, updated_at)
		 VALUES (:path, :root_dir, :uploaded_at, :updated_at)`, f)
	if err != nil {
		return fmt.Errorf("inserting file: %w", uniqueViolation(err))
	}
	if f.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("reading file id: %w", err)
	}
	return nil
}

func (q *queries) FindFileByID(ctx context.Context, id int64) (*model.TrackedFile, error) {
	var f model.TrackedFile
	if err := sqlx.GetContext(ctx, q.ext, &f, "SELECT * FROM tracked_files WHERE id = ?", id); err != nil {
		return nil, notFoundIsNil("finding file by id", err)
	}
	return &f, nil
}

func (q *queries) FindFileByPath(ctx context.Context, path string) (*model.TrackedFile, error) {
	var f model.TrackedFile
	if err := sqlx.GetContext(ctx, q.ext, &f, "SELECT * FROM tracked_files WHERE path = ?", path); err != nil {
		return nil, notFoundIsNil("finding file by path", err)
	}
	return &f, nil
}

func (q *queries) ListFiles(ctx context.Context) ([]*model.TrackedFile, error) {
	var files []*model.TrackedFile
	err := sqlx.SelectContext(ctx, q.ext, &files,
		"SELECT * FROM tracked_files ORDER BY uploaded_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}
	return files, nil
}

// ListFilesByPathPrefix matches the prefix literally; LIKE would treat
// "_" and "%" in file names as wildcards.
func (q *queries) ListFilesByPathPrefix(ctx context.Context, prefix string) ([]*model.TrackedFile, error) {
	var files []*model.TrackedFile
	err := sqlx.SelectContext(ctx, q.ext, &files,
		"SELECT * FROM tracked_files WHERE substr(path, 1, length(?)) = ? ORDER BY path", prefix, prefix)
	if err != nil {
		return nil, fmt.Errorf("listing files by prefix: %w", err)
	}
	return files, nil
}

func (q *queries) DeleteFile(ctx context.Context, id int64) error {
	if _, err := q.ext.ExecContext(ctx, "DELETE FROM tracked_files WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}
	return nil
}

// Diff reports

func (q *queries) InsertReport(ctx context.Context, r *model.DiffReport) error {
	res, err := sqlx.NamedExecContext(ctx, q.ext,
		`INSERT INTO diff_reports (old_file_id, new_file_id, name, location, filtered, added, removed, hunks, created_at)
		 VALUES (:old_file_id, :new_file_id, :name, :location, :filtered, :added, :removed, :hunks, :created_at)`, r)
	if err != nil {
		return fmt.Errorf("inserting report: %w", uniqueViolation(err))
	}
	if r.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("reading report id: %w", err)
	}
	return nil
}

func (q *queries) FindReportByID(ctx context.Context, id int64) (*model.DiffReport, error) {
	var r model.DiffReport
	if err := sqlx.GetContext(ctx, q.ext, &r, "SELECT * FROM diff_reports WHERE id = ?", id); err != nil {
		return nil, notFoundIsNil("finding report", err)
	}
	return &r, nil
}

func (q *queries) ListReports(ctx context.Context, newestFirst bool) ([]*model.DiffReport, error) {
	order := "created_at ASC, id ASC"
	if newestFirst {
		order = "created_at DESC, id DESC"
	}
	var reports []*model.DiffReport
	if err := sqlx.SelectContext(ctx, q.ext, &reports, "SELECT * FROM diff_reports ORDER BY "+order); err != nil {
		return nil, fmt.Errorf("listing reports: %w", err)
	}
	return reports, nil
}

func (q *queries) ListReportsForFile(ctx context.Context, fileID int64) ([]*model.DiffReport, error) {
	var reports []*model.DiffReport
	err := sqlx.SelectContext(ctx, q.ext, &reports,
		"SELECT * FROM diff_reports WHERE old_file_id = ? OR new_file_id = ? ORDER BY id", fileID, fileID)
	if err != nil {
		return nil, fmt.Errorf("listing reports for file: %w", err)
	}
	return reports, nil
}

func (q *queries) DeleteReport(ctx context.Context, id int64) error {
	if _, err := q.ext.ExecContext(ctx, "DELETE FROM diff_reports WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting report: %w", err)
	}
	return nil
}

// Notes

func (q *queries) InsertNote(ctx context.Context, n *model.Note) error {
	res, err := sqlx.NamedExecContext(ctx, q.ext,
		`INSERT INTO notes (owner_id, report_id, content, created_at, updated_at)
		 VALUES (:owner_id, :report_id, :content, :created_at, :updated_at)`, n)
	if err != nil {
		return fmt.Errorf("inserting note: %w", err)
	}
	if n.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("reading note id: %w", err)
	}
	return nil
}

func (q *queries) FindNoteByID(ctx context.Context, id int64) (*model.Note, error) {
	var n model.Note
	if err := sqlx.GetContext(ctx, q.ext, &n, "SELECT * FROM notes WHERE id = ?", id); err != nil {
		return nil, notFoundIsNil("finding note", err)
	}
	if err := q.loadViewers(ctx, []*model.Note{&n}); err != nil {
		return nil, err
	}
	return &n, nil
}

func (q *queries) ListNotesForReport(ctx context.Context, reportID int64) ([]*model.Note, error) {
	var notes []*model.Note
	err := sqlx.SelectContext(ctx, q.ext, &notes,
		"SELECT * FROM notes WHERE report_id = ? ORDER BY created_at DESC, id DESC", reportID)
	if err != nil {
		return nil, fmt.Errorf("listing notes: %w", err)
	}
	if err := q.loadViewers(ctx, notes); err != nil {
		return nil, err
	}
	return notes, nil
}

type viewerRow struct {
	NoteID int64 `db:"note_id"`
	UserID int64 `db:"user_id"`
}

// loadViewers fills VisibleTo of every note with one query.
func (q *queries) loadViewers(ctx context.Context, notes []*model.Note) error {
	if len(notes) == 0 {
		return nil
	}
	ids := make([]int64, len(notes))
	byID := make(map[int64]*model.Note, len(notes))
	for i, n := range notes {
		ids[i] = n.ID
		n.VisibleTo = []int64{}
		byID[n.ID] = n
	}

	query, args, err := sqlx.In("SELECT note_id, user_id FROM note_viewers WHERE note_id IN (?) ORDER BY user_id", ids)
	if err != nil {
		return fmt.Errorf("building viewer query: %w", err)
	}
	var rows []viewerRow
	if err := sqlx.SelectContext(ctx, q.ext, &rows, q.ext.Rebind(query), args...); err != nil {
		return fmt.Errorf("loading viewers: %w", err)
	}
	for _, r := range rows {
		n := byID[r.NoteID]
		n.VisibleTo = append(n.VisibleTo, r.UserID)
	}
	return nil
}

func (q *queries) CountNotesForReport(ctx context.Context, reportID int64) (int, error) {
	var n int
	if err := sqlx.GetContext(ctx, q.ext, &n, "SELECT COUNT(*) FROM notes WHERE report_id = ?", reportID); err != nil {
		return 0, fmt.Errorf("counting notes: %w", err)
	}
	return n, nil
}

func (q *queries) UpdateNoteContent(ctx context.Context, id int64, content string, updatedAt time.Time) error {
	_, err := q.ext.ExecContext(ctx, "UPDATE notes SET content = ?, updated_at = ? WHERE id = ?", content, updatedAt, id)
	if err != nil {
		return fmt.Errorf("updating note: %w", err)
	}
	return nil
}

func (q *queries) ReplaceNoteViewers(ctx context.Context, noteID int64, userIDs []int64) error {
	if _, err := q.ext.ExecContext(ctx, "DELETE FROM note_viewers WHERE note_id = ?", noteID); err != nil {
		return fmt.Errorf("clearing viewers: %w", err)
	}
	if len(userIDs) == 0 {
		return nil
	}
	rows := make([]viewerRow, len(userIDs))
	for i, uid := range userIDs {
		rows[i] = viewerRow{NoteID: noteID, UserID: uid}
	}
	_, err := sqlx.NamedExecContext(ctx, q.ext,
		"INSERT INTO note_viewers (note_id, user_id) VALUES (:note_id, :user_id)", rows)
	if err != nil {
		return fmt.Errorf("inserting viewers: %w", err)
	}
	return nil
}

func (q *queries) DeleteNote(ctx context.Context, id int64) error {
	if _, err := q.ext.ExecContext(ctx, "DELETE FROM notes WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting note: %w", err)
	}
	return nil
}

func (q *queries) DeleteNotesForReport(ctx context.Context, reportID int64) (int, error) {
	res, err := q.ext.ExecContext(ctx, "DELETE FROM notes WHERE report_id = ?", reportID)
	if err != nil {
		return 0, fmt.Errorf("deleting notes: %w", err)
	}
	return rowsAffected(res)
}

// Relations

func (q *queries) InsertRelation(ctx context.Context, r *model.Relation) error {
	res, err := sqlx.NamedExecContext(ctx, q.ext,
		`INSERT INTO relations (report_id, relation_type, relation_value, created_at)
		 VALUES (:report_id, :relation_type, :relation_value, :created_at)`, r)
	if err != nil {
		return fmt.Errorf("inserting relation: %w", err)
	}
	if r.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("reading relation id: %w", err)
	}
	return nil
}

func (q *queries) FindRelationByID(ctx context.Context, id int64) (*model.Relation, error) {
	var r model.Relation
	if err := sqlx.GetContext(ctx, q.ext, &r, "SELECT * FROM relations WHERE id = ?", id); err != nil {
		return nil, notFoundIsNil("finding relation", err)
	}
	return &r, nil
}

func (q *queries) ListRelationsForReport(ctx context.Context, reportID int64) ([]*model.Relation, error) {
	var relations []*model.Relation
	err := sqlx.SelectContext(ctx, q.ext, &relations,
		"SELECT * FROM relations WHERE report_id = ? ORDER BY created_at DESC, id DESC", reportID)
	if err != nil {
		return nil, fmt.Errorf("listing relations: %w", err)
	}
	return relations, nil
}

func (q *queries) CountRelationsForReport(ctx context.Context, reportID int64) (int, error) {
	var n int
	if err := sqlx.GetContext(ctx, q.ext, &n, "SELECT COUNT(*) FROM relations WHERE report_id = ?", reportID); err != nil {
		return 0, fmt.Errorf("counting relations: %w", err)
	}
	return n, nil
}

func (q *queries) UpdateRelation(ctx context.Context, r *model.Relation) error {
	_, err := sqlx.NamedExecContext(ctx, q.ext,
		"UPDATE relations SET relation_type = :relation_type, relation_value = :relation_value WHERE id = :id", r)
	if err != nil {
		return fmt.Errorf("updating relation: %w", err)
	}
	return nil
}

func (q *queries) DeleteRelation(ctx context.Context, id int64) error {
	if _, err := q.ext.ExecContext(ctx, "DELETE FROM relations WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting relation: %w", err)
	}
	return nil
}

func (q *queries) DeleteRelationsForReport(ctx context.Context, reportID int64) (int, error) {
	res, err := q.ext.ExecContext(ctx, "DELETE FROM relations WHERE report_id = ?", reportID)
	if err != nil {
		return 0, fmt.Errorf("deleting relations: %w", err)
	}
	return rowsAffected(res)
}

// Notifications

func (q *queries) InsertNotification(ctx context.Context, n *model.Notification) error {
	res, err := sqlx.NamedExecContext(ctx, q.ext,
		`INSERT INTO notifications (recipient_id, actor_id, note_id, message, is_read, created_at)
		 VALUES (:recipient_id, :actor_id, :note_id, :message, :is_read, :created_at)`, n)
	if err != nil {
		return fmt.Errorf("inserting notification: %w", err)
	}
	if n.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("reading notification id: %w", err)
	}
	return nil
}

func (q *queries) HasUnreadNotification(ctx context.Context, recipientID, noteID int64) (bool, error) {
	var n int
	err := sqlx.GetContext(ctx, q.ext, &n,
		"SELECT COUNT(*) FROM notifications WHERE recipient_id = ? AND note_id = ? AND is_read = 0", recipientID, noteID)
	if err != nil {
		return false, fmt.Errorf("checking unread notifications: %w", err)
	}
	return n > 0, nil
}

func (q *queries) FindNotification(ctx context.Context, recipientID, id int64) (*model.Notification, error) {
	var n model.Notification
	err := sqlx.GetContext(ctx, q.ext, &n,
		"SELECT * FROM notifications WHERE id = ? AND recipient_id = ?", id, recipientID)
	if err != nil {
		return nil, notFoundIsNil("finding notification", err)
	}
	return &n, nil
}

func (q *queries) ListNotifications(ctx context.Context, recipientID int64, onlyUnread bool, limit, offset int) ([]*model.Notification, int, error) {
	where := "recipient_id = ?"
	if onlyUnread {
		where += " AND is_read = 0"
	}

	var total int
	if err := sqlx.GetContext(ctx, q.ext, &total, "SELECT COUNT(*) FROM notifications WHERE "+where, recipientID); err != nil {
		return nil, 0, fmt.Errorf("counting notifications: %w", err)
	}

	items := []*model.Notification{}
	err := sqlx.SelectContext(ctx, q.ext, &items,
		"SELECT * FROM notifications WHERE "+where+" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		recipientID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing notifications: %w", err)
	}
	return items, total, nil
}

func (q *queries) CountUnreadNotifications(ctx context.Context, recipientID int64) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, q.ext, &n,
		"SELECT COUNT(*) FROM notifications WHERE recipient_id = ? AND is_read = 0", recipientID)
	if err != nil {
		return 0, fmt.Errorf("counting unread notifications: %w", err)
	}
	return n, nil
}

func (q *queries) MarkNotificationRead(ctx context.Context, recipientID, id int64) error {
	_, err := q.ext.ExecContext(ctx,
		"UPDATE notifications SET is_read = 1 WHERE id = ? AND recipient_id = ?", id, recipientID)
	if err != nil {
		return fmt.Errorf("marking notification read: %w", err)
	}
	return nil
}

func (q *queries) MarkAllNotificationsRead(ctx context.Context, recipientID int64) (int, error) {
	res, err := q.ext.ExecContext(ctx,
		"UPDATE notifications SET is_read = 1 WHERE recipient_id = ? AND is_read = 0", recipientID)
	if err != nil {
		return 0, fmt.Errorf("marking notifications read: %w", err)
	}
	return rowsAffected(res)
}

func (q *queries) DeleteNotification(ctx context.Context, recipientID, id int64) error {
	_, err := q.ext.ExecContext(ctx, "DELETE FROM notifications WHERE id = ? AND recipient_id = ?", id, recipientID)
	if err != nil {
		return fmt.Errorf("deleting notification: %w", err)
	}
	return nil
}

func (q *queries) DeleteReadNotifications(ctx context.Context, recipientID int64) (int, error) {
	res, err := q.ext.ExecContext(ctx, "DELETE FROM notifications WHERE recipient_id = ? AND is_read = 1", recipientID)
	if err != nil {
		return 0, fmt.Errorf("deleting read notifications: %w", err)
	}
	return rowsAffected(res)
}

// notFoundIsNil turns sql.ErrNoRows into a nil error so lookups can
// return nil, nil for missing rows.
func notFoundIsNil(what string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	return fmt.Errorf("%s: %w", what, err)
}

// uniqueViolation tags unique-constraint failures with xdt.ErrAlreadyExists.
func uniqueViolation(err error) error {
	var se sqlite3.Error
	if errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique {
		return fmt.Errorf("%w: %v", xdt.ErrAlreadyExists, err)
	}
	return err
}

func rowsAffected(res sql.Result) (int, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading affected rows: %w", err)
	}
	return int(n), nil
}

var _ xdt.Store = (*SQLiteDatabase)(nil)
