package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"xdt-go/internal/artifacts"
	"xdt-go/internal/config"
	"xdt-go/internal/database"
	"xdt-go/internal/encryption"
	"xdt-go/internal/fs"
	"xdt-go/internal/model"
	"xdt-go/internal/xdt"
)

// XDTApp is the application layer between the CLI and xdt.Service.
// It constructs all dependencies from config, records mutating commands
// in the operation history and manages the DB lifecycle on Close.
type XDTApp struct {
	cfg     *config.Config
	db      *database.SQLiteDatabase
	sealer  encryption.Sealer
	service *xdt.Service
	logger  *slog.Logger
	logFile *os.File

	mu sync.Mutex // guards op
	op *Operation
}

// NewXDTApp creates a fully wired XDTApp from the given config.
// operation identifies the CLI command being run (e.g. "reconcile", "diff").
// The caller must call Close when done.
func NewXDTApp(ctx context.Context, cfg *config.Config, operation string) (*XDTApp, error) {
	fsmgr := fs.NewOSFilesystemManager(cfg.Index.Ignore)

	store, err := artifacts.NewArtifactStoreFromConfig(ctx, cfg.Artifacts)
	if err != nil {
		return nil, fmt.Errorf("creating artifact store: %w", err)
	}

	sealer, err := encryption.NewSealerFromConfig(cfg.Backup)
	if err != nil {
		return nil, fmt.Errorf("creating backup sealer: %w", err)
	}

	db, err := database.NewDatabaseFromConfig(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}
	if err := db.CheckMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database schema out of date (run `xdt migrate`): %w", err)
	}

	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		db.Close()
		return nil, err
	}
	opID := time.Now().UTC().Format("20060102T150405Z")
	logger, logFile, err := newLogger(cfg.LogDir, opID, level)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	svc := xdt.NewService(db, store, fsmgr, &slogAdapter{l: logger}, xdt.RealClock{}, xdt.UUIDGenerator{},
		xdt.Options{
			Roots:        cfg.Index.Roots,
			Extensions:   cfg.Index.Extensions,
			ContextLines: cfg.Diff.ContextLines,
		})

	return &XDTApp{
		cfg:     cfg,
		db:      db,
		sealer:  sealer,
		service: svc,
		logger:  logger,
		op:      NewOperation(operation),
		logFile: logFile,
	}, nil
}

// Service exposes the domain service for read-only commands.
func (a *XDTApp) Service() *xdt.Service {
	return a.service
}

// Actor returns the configured default identity.
func (a *XDTApp) Actor() xdt.Actor {
	return xdt.Actor{UserID: a.cfg.Identity.UserID, IsAdmin: a.cfg.Identity.IsAdmin}
}

// mutate persists the current operation with params before running fn and
// marks it failed if fn returns an error.
func (a *XDTApp) mutate(ctx context.Context, params []string, fn func() error) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.persistOperation(ctx, strings.Join(params, " ")); err != nil {
		return err
	}
	if err := fn(); err != nil {
		a.op.Status = StatusError
		return err
	}
	return nil
}

// persistOperation saves the operation to the database, giving it an auto-increment ID.
// It is only called for mutating commands.
func (a *XDTApp) persistOperation(ctx context.Context, params string) error {
	if a.op.Persisted() {
		return nil
	}
	a.op.Parameters = params
	dbOp, err := a.db.CreateOperation(ctx, a.op.Name, params)
	if err != nil {
		return fmt.Errorf("persisting operation: %w", err)
	}
	a.op.ID = dbOp.ID
	return nil
}

// Reconcile reconciles rootDir, or every configured root when rootDir is empty.
func (a *XDTApp) Reconcile(ctx context.Context, rootDir string) (*xdt.ReconcileResult, error) {
	roots := a.cfg.Index.Roots
	if rootDir != "" {
		roots = []string{rootDir}
	}
	if len(roots) == 0 {
		return nil, &xdt.Error{Kind: xdt.KindInvalidInput, Op: "reconcile", Message: "no roots configured"}
	}

	total := &xdt.ReconcileResult{}
	err := a.mutate(ctx, roots, func() error {
		for _, root := range roots {
			res, err := a.service.Reconcile(ctx, root)
			if err != nil {
				return err
			}
			total.Added += res.Added
			total.Removed += res.Removed
			total.Skipped += res.Skipped
			total.Failed += res.Failed
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return total, nil
}

func (a *XDTApp) Register(ctx context.Context, rawPath string) (*model.TrackedFile, error) {
	var f *model.TrackedFile
	err := a.mutate(ctx, []string{rawPath}, func() error {
		var err error
		f, err = a.service.Register(ctx, rawPath)
		return err
	})
	return f, err
}

func (a *XDTApp) DeleteFile(ctx context.Context, id int64, cascade bool) error {
	return a.mutate(ctx, []string{fmt.Sprint(id), cascadeParam(cascade)}, func() error {
		return a.service.DeleteFile(ctx, id, cascade)
	})
}

// Diff generates a report. A nil filter falls back to the configured default.
func (a *XDTApp) Diff(ctx context.Context, oldID, newID int64, filter *bool) (*xdt.DiffResult, error) {
	policy := xdt.FilterPolicy{Enabled: a.cfg.Diff.Filter}
	if filter != nil {
		policy.Enabled = *filter
	}
	var res *xdt.DiffResult
	err := a.mutate(ctx, []string{fmt.Sprint(oldID), fmt.Sprint(newID), fmt.Sprintf("filter=%t", policy.Enabled)}, func() error {
		var err error
		res, err = a.service.GenerateDiff(ctx, oldID, newID, policy)
		return err
	})
	return res, err
}

func (a *XDTApp) DeleteReport(ctx context.Context, id int64, cascade bool) error {
	return a.mutate(ctx, []string{fmt.Sprint(id), cascadeParam(cascade)}, func() error {
		return a.service.DeleteReport(ctx, id, cascade)
	})
}

func (a *XDTApp) Resync(ctx context.Context) (*xdt.ResyncResult, error) {
	var res *xdt.ResyncResult
	err := a.mutate(ctx, nil, func() error {
		var err error
		res, err = a.service.Resync(ctx)
		return err
	})
	return res, err
}

func (a *XDTApp) CreateNote(ctx context.Context, actor xdt.Actor, reportID int64, content string, visibleTo []int64) (*model.Note, error) {
	var n *model.Note
	err := a.mutate(ctx, []string{fmt.Sprint(reportID), userParam(actor)}, func() error {
		var err error
		n, err = a.service.CreateNote(ctx, actor, reportID, content, visibleTo)
		return err
	})
	return n, err
}

func (a *XDTApp) UpdateNote(ctx context.Context, actor xdt.Actor, id int64, content string) (*model.Note, error) {
	var n *model.Note
	err := a.mutate(ctx, []string{fmt.Sprint(id), userParam(actor)}, func() error {
		var err error
		n, err = a.service.UpdateNote(ctx, actor, id, content)
		return err
	})
	return n, err
}

func (a *XDTApp) DeleteNote(ctx context.Context, actor xdt.Actor, id int64) error {
	return a.mutate(ctx, []string{fmt.Sprint(id), userParam(actor)}, func() error {
		return a.service.DeleteNote(ctx, actor, id)
	})
}

func (a *XDTApp) SetVisibility(ctx context.Context, actor xdt.Actor, id int64, visibleTo []int64) (*model.Note, error) {
	var n *model.Note
	err := a.mutate(ctx, []string{fmt.Sprint(id), userParam(actor)}, func() error {
		var err error
		n, err = a.service.SetVisibility(ctx, actor, id, visibleTo)
		return err
	})
	return n, err
}

func (a *XDTApp) CreateRelation(ctx context.Context, reportID int64, relType, value string) (*model.Relation, error) {
	var r *model.Relation
	err := a.mutate(ctx, []string{fmt.Sprint(reportID), relType, value}, func() error {
		var err error
		r, err = a.service.CreateRelation(ctx, reportID, relType, value)
		return err
	})
	return r, err
}

func (a *XDTApp) UpdateRelation(ctx context.Context, id int64, relType, value string) (*model.Relation, error) {
	var r *model.Relation
	err := a.mutate(ctx, []string{fmt.Sprint(id), relType, value}, func() error {
		var err error
		r, err = a.service.UpdateRelation(ctx, id, relType, value)
		return err
	})
	return r, err
}

func (a *XDTApp) DeleteRelation(ctx context.Context, id int64) error {
	return a.mutate(ctx, []string{fmt.Sprint(id)}, func() error {
		return a.service.DeleteRelation(ctx, id)
	})
}

// History returns the most recent operations.
func (a *XDTApp) History(ctx context.Context, limit int) ([]*model.Operation, error) {
	if limit <= 0 {
		limit = 20
	}
	return a.db.ListOperations(ctx, limit)
}

// Close finalizes the operation record and closes all resources.
func (a *XDTApp) Close() error {
	var firstErr error

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.op.Persisted() {
		if err := a.db.FinishOperation(context.Background(), a.op.ID, a.op.Status); err != nil {
			firstErr = fmt.Errorf("finishing operation: %w", err)
		}
	}
	if err := a.db.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}

func cascadeParam(cascade bool) string {
	return fmt.Sprintf("cascade=%t", cascade)
}

func userParam(actor xdt.Actor) string {
	return fmt.Sprintf("user=%d", actor.UserID)
}

// Migrate opens the configured catalog and applies pending migrations.
func Migrate(cfg *config.Config) error {
	db, err := database.NewDatabaseFromConfig(cfg.Database)
	if err != nil {
		return fmt.Errorf("creating database: %w", err)
	}
	defer db.Close()
	return db.Migrate()
}
