package xdt_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"xdt-go/internal/xdt"
)

func TestParseSignals(t *testing.T) {
	signals, err := xdt.ParseSignals(strings.NewReader(readFixture(t, "signals.xml")))
	require.NoError(t, err)
	require.Equal(t, []xdt.Signal{
		{ID: "18FF50E5", Name: "MotorSpeed", Max: "8000", Min: "0", Default: "0", Resolution: "0.125", Offset: "0"},
		{ID: "18FF50E5", Name: "MotorTemp", Max: "215", Min: "-40", Default: "25", Resolution: "1", Offset: "-40"},
		{ID: "0CF00400", Name: "EngineLoad", Max: "125", Min: "0", Default: "0", Resolution: "1", Offset: "-125"},
		{ID: "7A", Name: "Brake", Max: "1", Min: "0", Default: "0", Resolution: "1", Offset: "0"},
	}, signals)
}

func TestParseSignals_Errors(t *testing.T) {
	tests := []struct {
		name   string
		doc    string
		noBody bool
	}{
		{name: "no ST element", doc: "<project><types/></project>", noBody: true},
		{name: "xhtml outside ST", doc: "<project><xhtml>//SIGNAL -&gt; A Max:1 Min:0 Def:0 Resolution:1 Offset:0</xhtml></project>", noBody: true},
		{name: "malformed", doc: "<project><ST><xhtml>x</ST></project>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := xdt.ParseSignals(strings.NewReader(tt.doc))
			require.Error(t, err)
			require.Equal(t, tt.noBody, errors.Is(err, xdt.ErrNoStructuredText))
		})
	}
}

func TestParseSignals_BodyWithoutSignals(t *testing.T) {
	signals, err := xdt.ParseSignals(strings.NewReader(readFixture(t, "plant_v1.xml")))
	require.NoError(t, err)
	require.Empty(t, signals)
}

func TestExtractSignals(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	file := f.addExport(t, "can.xml", readFixture(t, "signals.xml"))

	t.Run("keywords select exact names", func(t *testing.T) {
		signals, err := f.svc.ExtractSignals(ctx, file.ID, []string{" MotorTemp ", "Brake", "Motor"})
		require.NoError(t, err)
		require.Len(t, signals, 2)
		require.Equal(t, "MotorTemp", signals[0].Name)
		require.Equal(t, "Brake", signals[1].Name)
	})

	t.Run("no keywords returns every signal", func(t *testing.T) {
		signals, err := f.svc.ExtractSignals(ctx, file.ID, nil)
		require.NoError(t, err)
		require.Len(t, signals, 4)
	})

	t.Run("unknown file", func(t *testing.T) {
		_, err := f.svc.ExtractSignals(ctx, 999, nil)
		require.ErrorIs(t, err, xdt.ErrNotFound)
	})

	t.Run("file without structured text", func(t *testing.T) {
		plain := f.addExport(t, "plain.xml", "<project/>\n")
		_, err := f.svc.ExtractSignals(ctx, plain.ID, nil)
		require.ErrorIs(t, err, xdt.ErrInvalidInput)
	})
}
