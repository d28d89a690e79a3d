package xdt_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"xdt-go/internal/artifacts"
	"xdt-go/internal/database"
	"xdt-go/internal/model"
	"xdt-go/internal/testutil"
	"xdt-go/internal/xdt"
)

const exportsRoot = "/data/exports"

type fixture struct {
	svc       *xdt.Service
	store     *database.SQLiteDatabase
	artifacts *testutil.FaultyArtifactStore
	fs        *testutil.MockFilesystemManager
	clock     *testutil.StubClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:     testutil.NewTestStore(t),
		artifacts: testutil.NewFaultyArtifactStore(),
		fs:        testutil.NewMockFilesystemManager(),
		clock:     testutil.FixedClock(),
	}
	f.fs.AddDirectory(exportsRoot)
	f.svc = xdt.NewService(f.store, f.artifacts, f.fs, xdt.NewNopLogger(), f.clock,
		testutil.NewStubIDGenerator(), xdt.Options{Roots: []string{exportsRoot}})
	return f
}

// addExport writes a file under the exports root and registers it.
func (f *fixture) addExport(t *testing.T, rel, content string) *model.TrackedFile {
	t.Helper()
	p := filepath.Join(exportsRoot, rel)
	f.fs.AddFile(p, []byte(content))
	tracked, err := f.svc.Register(context.Background(), p)
	require.NoError(t, err)
	return tracked
}

// addReport registers two versions and diffs them.
func (f *fixture) addReport(t *testing.T) *xdt.DiffResult {
	t.Helper()
	a := f.addExport(t, "a.xml", "line1\nline2\n")
	b := f.addExport(t, "b.xml", "line1\nline3\n")
	res, err := f.svc.GenerateDiff(context.Background(), a.ID, b.ID, xdt.FilterPolicy{})
	require.NoError(t, err)
	return res
}

func TestNewService_NormalizesExtensions(t *testing.T) {
	f := newFixture(t)
	svc := xdt.NewService(f.store, f.artifacts, f.fs, xdt.NewNopLogger(), f.clock,
		testutil.NewStubIDGenerator(), xdt.Options{Roots: []string{exportsRoot}, Extensions: []string{"PLCOPEN", " .XML "}})

	f.fs.AddFile(filepath.Join(exportsRoot, "line.plcopen"), []byte("x\n"))
	f.fs.AddFile(filepath.Join(exportsRoot, "cell.Xml"), []byte("y\n"))

	res, err := svc.Reconcile(context.Background(), exportsRoot)
	require.NoError(t, err)
	require.Equal(t, 2, res.Added)
}

func TestFilePath(t *testing.T) {
	f := &model.TrackedFile{Path: "exports/line1/plc.xml", RootDir: exportsRoot}
	require.Equal(t, filepath.Join(exportsRoot, "line1", "plc.xml"), xdt.FilePath(f))
}

func TestArtifactsBackendIsSwappable(t *testing.T) {
	store := testutil.NewTestStore(t)
	fsmgr := testutil.NewMockFilesystemManager()
	dir := t.TempDir()
	artifactStore, err := artifacts.NewFileSystemStore(dir)
	require.NoError(t, err)

	svc := xdt.NewService(store, artifactStore, fsmgr, xdt.NewNopLogger(), testutil.FixedClock(),
		testutil.NewStubIDGenerator(), xdt.Options{Roots: []string{exportsRoot}})
	fsmgr.AddFile(filepath.Join(exportsRoot, "a.xml"), []byte("one\n"))
	fsmgr.AddFile(filepath.Join(exportsRoot, "b.xml"), []byte("two\n"))

	ctx := context.Background()
	_, err = svc.Reconcile(ctx, exportsRoot)
	require.NoError(t, err)
	files, err := svc.ListFiles(ctx)
	require.NoError(t, err)
	require.Len(t, files, 2)

	res, err := svc.GenerateDiff(ctx, files[1].ID, files[0].ID, xdt.FilterPolicy{})
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(dir, res.Filename))

	report, err := svc.GetReport(ctx, res.ReportID)
	require.NoError(t, err)
	require.Equal(t, artifactStore.Location(res.Filename), report.Location)
}
