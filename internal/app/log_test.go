package app

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestXDTHandler_Handle(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		opID    string
		level   slog.Level
		message string
		attrs   []slog.Attr
		want    string
	}{
		{
			name:    "basic info message",
			opID:    "op-123",
			level:   slog.LevelInfo,
			message: "diff generated",
			want:    "2026-03-01T12:00:00Z\tINFO\top-123\tdiff generated\n",
		},
		{
			name:    "warn level",
			opID:    "op-456",
			level:   slog.LevelWarn,
			message: "vanished file kept",
			want:    "2026-03-01T12:00:00Z\tWARN\top-456\tvanished file kept\n",
		},
		{
			name:    "with record attrs",
			opID:    "op-789",
			level:   slog.LevelInfo,
			message: "note created",
			attrs:   []slog.Attr{slog.Int64("note", 4), slog.String("owner", "1")},
			want:    "2026-03-01T12:00:00Z\tINFO\top-789\tnote created\tnote=4\towner=1\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := &xdtHandler{w: &buf, opID: tt.opID}

			r := slog.NewRecord(ts, tt.level, tt.message, 0)
			r.AddAttrs(tt.attrs...)

			if err := h.Handle(context.Background(), r); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}
			if got := buf.String(); got != tt.want {
				t.Errorf("Handle() output =\n%q\nwant:\n%q", got, tt.want)
			}
		})
	}
}

func TestXDTHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := &xdtHandler{w: &buf, opID: "op-1", attrs: []slog.Attr{slog.String("a", "1")}}

	h2 := h.WithAttrs([]slog.Attr{slog.String("component", "watch")}).(*xdtHandler)
	if len(h.attrs) != 1 {
		t.Errorf("original handler attrs modified: got %d, want 1", len(h.attrs))
	}

	r := slog.NewRecord(time.Now(), slog.LevelInfo, "reconciled", 0)
	r.AddAttrs(slog.String("root", "/data/exports"))
	if err := h2.Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	got := buf.String()
	for _, want := range []string{"\ta=1", "\tcomponent=watch", "\troot=/data/exports"} {
		if !strings.Contains(got, want) {
			t.Errorf("output %q missing %q", got, want)
		}
	}
}

func TestXDTHandler_Enabled(t *testing.T) {
	tests := []struct {
		name      string
		threshold slog.Leveler
		level     slog.Level
		want      bool
	}{
		{"default drops debug", nil, slog.LevelDebug, false},
		{"default keeps info", nil, slog.LevelInfo, true},
		{"debug threshold keeps debug", slog.LevelDebug, slog.LevelDebug, true},
		{"warn threshold drops info", slog.LevelWarn, slog.LevelInfo, false},
		{"warn threshold keeps error", slog.LevelWarn, slog.LevelError, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &xdtHandler{level: tt.threshold}
			if got := h.Enabled(context.Background(), tt.level); got != tt.want {
				t.Errorf("Enabled(%v) = %v, want %v", tt.level, got, tt.want)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "", want: slog.LevelInfo},
		{in: "debug", want: slog.LevelDebug},
		{in: "WARN", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "loud", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseLevel() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("parseLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "log")

	logger, f, err := newLogger(dir, "test-op", slog.LevelWarn)
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	defer f.Close()

	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	data, err := os.ReadFile(filepath.Join(dir, "xdt.log"))
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	got := string(data)
	if strings.Contains(got, "hidden") {
		t.Errorf("log file contains message below threshold: %q", got)
	}
	if !strings.Contains(got, "\tWARN\ttest-op\tshown\tk=v\n") {
		t.Errorf("log file = %q, want warn line", got)
	}
}
