package xdt_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"xdt-go/internal/xdt"
)

func TestCreateRelation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	res := f.addReport(t)

	rel, err := f.svc.CreateRelation(ctx, res.ReportID, "  SRS ", " SRS-39 ")
	require.NoError(t, err)
	require.Equal(t, "SRS", rel.Type)
	require.Equal(t, "SRS-39", rel.Value)
	require.Equal(t, res.ReportID, rel.ReportID)

	tests := []struct {
		name     string
		reportID int64
		relType  string
		value    string
		want     error
	}{
		{"missing report", 999, "SRS", "SRS-1", xdt.ErrNotFound},
		{"empty type", res.ReportID, "  ", "SRS-1", xdt.ErrInvalidInput},
		{"empty value", res.ReportID, "Jira", "", xdt.ErrInvalidInput},
		{"value too long", res.ReportID, "Doc", strings.Repeat("x", 256), xdt.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateRelation(ctx, tt.reportID, tt.relType, tt.value)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestListRelations_NewestFirst(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	res := f.addReport(t)

	first, err := f.svc.CreateRelation(ctx, res.ReportID, "SRS", "SRS-39")
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	second, err := f.svc.CreateRelation(ctx, res.ReportID, "Jira", "PLC-12")
	require.NoError(t, err)

	relations, err := f.svc.ListRelations(ctx, res.ReportID)
	require.NoError(t, err)
	require.Len(t, relations, 2)
	require.Equal(t, second.ID, relations[0].ID)
	require.Equal(t, first.ID, relations[1].ID)

	_, err = f.svc.ListRelations(ctx, 999)
	require.ErrorIs(t, err, xdt.ErrNotFound)
}

func TestUpdateRelation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	res := f.addReport(t)
	rel, err := f.svc.CreateRelation(ctx, res.ReportID, "SRS", "SRS-39")
	require.NoError(t, err)

	updated, err := f.svc.UpdateRelation(ctx, rel.ID, "", "SRS-40")
	require.NoError(t, err)
	require.Equal(t, "SRS", updated.Type)
	require.Equal(t, "SRS-40", updated.Value)

	relations, err := f.svc.ListRelations(ctx, res.ReportID)
	require.NoError(t, err)
	require.Equal(t, "SRS-40", relations[0].Value)

	_, err = f.svc.UpdateRelation(ctx, rel.ID, " ", "")
	require.ErrorIs(t, err, xdt.ErrInvalidInput)
	_, err = f.svc.UpdateRelation(ctx, 999, "Doc", "")
	require.ErrorIs(t, err, xdt.ErrNotFound)
}

func TestDeleteRelation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	res := f.addReport(t)
	rel, err := f.svc.CreateRelation(ctx, res.ReportID, "SRS", "SRS-39")
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteRelation(ctx, rel.ID))
	require.ErrorIs(t, f.svc.DeleteRelation(ctx, rel.ID), xdt.ErrNotFound)

	require.NoError(t, f.svc.DeleteReport(ctx, res.ReportID, false))
}

func TestRelationsAreDependents(t *testing.T) {
	ctx := context.Background()

	t.Run("report deletion needs cascade", func(t *testing.T) {
		f := newFixture(t)
		res := f.addReport(t)
		_, err := f.svc.CreateRelation(ctx, res.ReportID, "SRS", "SRS-39")
		require.NoError(t, err)

		require.ErrorIs(t, f.svc.DeleteReport(ctx, res.ReportID, false), xdt.ErrHasDependents)
		require.NoError(t, f.svc.DeleteReport(ctx, res.ReportID, true))
		_, err = f.svc.GetReport(ctx, res.ReportID)
		require.ErrorIs(t, err, xdt.ErrNotFound)
	})

	t.Run("file deletion needs cascade", func(t *testing.T) {
		f := newFixture(t)
		res := f.addReport(t)
		_, err := f.svc.CreateRelation(ctx, res.ReportID, "SRS", "SRS-39")
		require.NoError(t, err)
		report, err := f.svc.GetReport(ctx, res.ReportID)
		require.NoError(t, err)

		require.ErrorIs(t, f.svc.DeleteFile(ctx, report.OldFileID, false), xdt.ErrHasDependents)
		require.NoError(t, f.svc.DeleteFile(ctx, report.OldFileID, true))
	})

	t.Run("reconcile keeps the vanished file", func(t *testing.T) {
		f := newFixture(t)
		res := f.addReport(t)
		_, err := f.svc.CreateRelation(ctx, res.ReportID, "Jira", "PLC-12")
		require.NoError(t, err)

		f.fs.RemoveFile(filepath.Join(exportsRoot, "a.xml"))
		result, err := f.svc.Reconcile(ctx, exportsRoot)
		require.NoError(t, err)
		require.Equal(t, xdt.ReconcileResult{Skipped: 1}, *result)
	})

	t.Run("resync keeps the report", func(t *testing.T) {
		f := newFixture(t)
		res := f.addReport(t)
		_, err := f.svc.CreateRelation(ctx, res.ReportID, "Doc", "FDS-3.2")
		require.NoError(t, err)
		require.NoError(t, f.artifacts.Delete(ctx, res.Filename))

		result, err := f.svc.Resync(ctx)
		require.NoError(t, err)
		require.Equal(t, xdt.ResyncResult{Skipped: 1}, *result)
	})
}
