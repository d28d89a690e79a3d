package model

import "time"

// TrackedFile is an XML export registered for version comparison.
type TrackedFile struct {
	ID         int64     `db:"id"`
	Path       string    `db:"path"`     // <root base name>/<relative path>, forward slashes
	RootDir    string    `db:"root_dir"` // absolute watched directory the file lives under
	UploadedAt time.Time `db:"uploaded_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// DiffReport links two tracked files to a stored diff artifact.
type DiffReport struct {
	ID        int64     `db:"id"`
	OldFileID int64     `db:"old_file_id"`
	NewFileID int64     `db:"new_file_id"`
	Name      string    `db:"name"`     // artifact file name
	Location  string    `db:"location"` // artifact location as reported by the artifact store
	Filtered  bool      `db:"filtered"`
	Added     int       `db:"added"`
	Removed   int       `db:"removed"`
	Hunks     int       `db:"hunks"`
	CreatedAt time.Time `db:"created_at"`
}

// Note is a free-text annotation on a diff report.
type Note struct {
	ID        int64     `db:"id"`
	OwnerID   int64     `db:"owner_id"`
	ReportID  int64     `db:"report_id"`
	Content   string    `db:"content"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	// VisibleTo holds the extra readers, sorted ascending. Never contains OwnerID.
	VisibleTo []int64 `db:"-"`
}

// Notification tells a recipient that a note became visible to them.
type Notification struct {
	ID          int64     `db:"id"`
	RecipientID int64     `db:"recipient_id"`
	ActorID     int64     `db:"actor_id"`
	NoteID      int64     `db:"note_id"`
	Message     string    `db:"message"`
	IsRead      bool      `db:"is_read"`
	CreatedAt   time.Time `db:"created_at"`
}

// Operation records a mutating CLI command.
type Operation struct {
	ID         int64      `db:"id"`
	Operation  string     `db:"operation"`
	Parameters string     `db:"parameters"`
	Status     string     `db:"status"`
	StartedAt  time.Time  `db:"started_at"`
	FinishedAt *time.Time `db:"finished_at"`
}

// Relation is a typed traceability reference on a diff report, such as
// a requirement ("SRS", "SRS-39") or a ticket.
type Relation struct {
	ID        int64     `db:"id"`
	ReportID  int64     `db:"report_id"`
	Type      string    `db:"relation_type"`
	Value     string    `db:"relation_value"`
	CreatedAt time.Time `db:"created_at"`
}
