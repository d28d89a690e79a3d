package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"xdt-go/internal/config"
	"xdt-go/internal/xdt"
)

// newTestConfig returns a config with an in-memory catalog and artifact
// store and one export root holding two versions of a file.
func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	base := t.TempDir()
	root := filepath.Join(base, "exports")
	require.NoError(t, os.MkdirAll(root, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "plant_v1.xml"), []byte("line1\nline2\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "plant_v2.xml"), []byte("line1\nline3\n"), 0o644))

	cfg := config.NewConfig(base)
	cfg.Index.Roots = []string{root}
	cfg.Database = config.DatabaseConfig{Type: "memory"}
	cfg.Artifacts = config.ArtifactsConfig{Type: "memory"}
	cfg.Backup.Type = "test"
	cfg.LogLevel = "error"
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config, operation string) *XDTApp {
	t.Helper()
	a, err := NewXDTApp(context.Background(), cfg, operation)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestXDTApp_EndToEnd(t *testing.T) {
	ctx := context.Background()
	cfg := newTestConfig(t)
	a := newTestApp(t, cfg, "e2e")

	res, err := a.Reconcile(ctx, "")
	require.NoError(t, err)
	require.Equal(t, 2, res.Added)

	files, err := a.Service().ListFiles(ctx)
	require.NoError(t, err)
	require.Len(t, files, 2)
	byName := map[string]int64{}
	for _, f := range files {
		byName[filepath.Base(f.Path)] = f.ID
	}

	diff, err := a.Diff(ctx, byName["plant_v1.xml"], byName["plant_v2.xml"], nil)
	require.NoError(t, err)
	require.Equal(t, "plant_v1.xml → plant_v2.xml: 1 hunk(s), +1/-1 lines", diff.Summary)

	text, err := a.Service().ReadReport(ctx, diff.ReportID)
	require.NoError(t, err)
	require.Contains(t, text, "-line2\n+line3\n")

	note, err := a.CreateNote(ctx, a.Actor(), diff.ReportID, "line 2 renamed", []int64{2})
	require.NoError(t, err)
	count, err := a.Service().UnreadCount(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	err = a.DeleteReport(ctx, diff.ReportID, false)
	require.ErrorIs(t, err, xdt.ErrHasDependents)
	require.Equal(t, StatusError, a.op.Status)

	_, err = a.SetVisibility(ctx, a.Actor(), note.ID, []int64{2, 3})
	require.NoError(t, err)

	history, err := a.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, "e2e", history[0].Operation)
	require.Equal(t, cfg.Index.Roots[0], history[0].Parameters)
}

func TestXDTApp_DiffFilterDefault(t *testing.T) {
	ctx := context.Background()
	cfg := newTestConfig(t)
	cfg.Diff.Filter = true
	a := newTestApp(t, cfg, "diff")

	_, err := a.Reconcile(ctx, "")
	require.NoError(t, err)
	files, err := a.Service().ListFiles(ctx)
	require.NoError(t, err)

	res, err := a.Diff(ctx, files[1].ID, files[0].ID, nil)
	require.NoError(t, err)
	report, err := a.Service().GetReport(ctx, res.ReportID)
	require.NoError(t, err)
	require.True(t, report.Filtered)

	off := false
	res, err = a.Diff(ctx, files[1].ID, files[0].ID, &off)
	require.NoError(t, err)
	report, err = a.Service().GetReport(ctx, res.ReportID)
	require.NoError(t, err)
	require.False(t, report.Filtered)
}

func TestXDTApp_ReconcileWithoutRoots(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Index.Roots = nil
	a := newTestApp(t, cfg, "reconcile")

	_, err := a.Reconcile(context.Background(), "")
	require.ErrorIs(t, err, xdt.ErrInvalidInput)
}

func TestXDTApp_OperationFinishedOnClose(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	cfg := newTestConfig(t)
	cfg.Database = config.DatabaseConfig{Type: "sqlite", DataDir: filepath.Join(base, "db")}

	migrate(t, cfg)

	a, err := NewXDTApp(ctx, cfg, "register")
	require.NoError(t, err)
	_, err = a.Register(ctx, filepath.Join(cfg.Index.Roots[0], "plant_v1.xml"))
	require.NoError(t, err)
	require.NoError(t, a.Close())

	b := newTestApp(t, cfg, "history")
	history, err := b.History(ctx, 5)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, StatusSuccess, history[0].Status)
	require.NotNil(t, history[0].FinishedAt)
}

func TestXDTApp_RejectsUnmigratedCatalog(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Database = config.DatabaseConfig{Type: "sqlite", DataDir: t.TempDir()}

	_, err := NewXDTApp(context.Background(), cfg, "list")
	require.Error(t, err)
}

func TestXDTApp_BackupAndRestore(t *testing.T) {
	ctx := context.Background()
	cfg := newTestConfig(t)
	cfg.Database = config.DatabaseConfig{Type: "sqlite", DataDir: filepath.Join(cfg.BaseDir, "db")}
	cfg.Backup.Type = "age"
	migrate(t, cfg)

	a, err := NewXDTApp(ctx, cfg, "backup")
	require.NoError(t, err)
	_, err = a.Backup(ctx)
	require.Error(t, err, "backup without keys must fail")

	require.NoError(t, a.SetupBackupKeys("s3cret"))
	require.Error(t, a.SetupBackupKeys("again"))

	_, err = a.Reconcile(ctx, "")
	require.NoError(t, err)
	dest, err := a.Backup(ctx)
	require.NoError(t, err)
	require.FileExists(t, dest)
	require.NoError(t, a.Close())

	// Diverge from the backup, then restore it.
	b, err := NewXDTApp(ctx, cfg, "delete")
	require.NoError(t, err)
	files, err := b.Service().ListFiles(ctx)
	require.NoError(t, err)
	require.NoError(t, b.DeleteFile(ctx, files[0].ID, false))
	require.NoError(t, b.Close())

	require.Error(t, RestoreCatalog(cfg, dest, "wrong"))
	require.NoError(t, RestoreCatalog(cfg, dest, "s3cret"))

	c := newTestApp(t, cfg, "list")
	files, err = c.Service().ListFiles(ctx)
	require.NoError(t, err)
	require.Len(t, files, 2)
}

func TestRestoreCatalog_MemoryDatabase(t *testing.T) {
	cfg := newTestConfig(t)
	require.Error(t, RestoreCatalog(cfg, "/nonexistent.db.age", "pw"))
}

func TestXDTApp_Watch(t *testing.T) {
	cfg := newTestConfig(t)
	a := newTestApp(t, cfg, "watch")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Watch(ctx) }()

	// The initial pass picks up the existing files.
	require.Eventually(t, func() bool {
		return countFiles(t, a) == 2
	}, 5*time.Second, 50*time.Millisecond)

	sub := filepath.Join(cfg.Index.Roots[0], "line2")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(sub, "cell.xml"), []byte("<cell/>\n"), 0o644))
	require.NoError(t, os.Remove(filepath.Join(cfg.Index.Roots[0], "plant_v1.xml")))

	require.Eventually(t, func() bool {
		files, err := a.Service().ListFiles(context.Background())
		if err != nil || len(files) != 2 {
			return false
		}
		for _, f := range files {
			if filepath.Base(f.Path) == "cell.xml" {
				return true
			}
		}
		return false
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func countFiles(t *testing.T, a *XDTApp) int {
	t.Helper()
	files, err := a.Service().ListFiles(context.Background())
	if err != nil {
		return -1
	}
	return len(files)
}

// migrate creates and migrates the on-disk catalog described by cfg.
func migrate(t *testing.T, cfg *config.Config) {
	t.Helper()
	require.NoError(t, Migrate(cfg))
}
