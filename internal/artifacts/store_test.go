package artifacts

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"xdt-go/internal/xdt"
)

// testStores returns one instance of every backend.
func testStores(t *testing.T) map[string]xdt.ArtifactStore {
	t.Helper()
	fsStore, err := NewFileSystemStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileSystemStore() error = %v", err)
	}
	return map[string]xdt.ArtifactStore{
		"filesystem": fsStore,
		"memory":     NewMemoryStore(),
		"s3":         NewS3StoreWithClient(newFakeS3(), "reports", "xdt"),
	}
}

func TestArtifactStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	const name = "diff_report_20260301120000_0a1b2c3d.txt"
	const body = "--- OLD: a.xml\n+++ NEW: b.xml\n"

	for backend, store := range testStores(t) {
		t.Run(backend, func(t *testing.T) {
			exists, err := store.Exists(ctx, name)
			if err != nil {
				t.Fatalf("Exists() error = %v", err)
			}
			if exists {
				t.Fatal("Exists() = true before Put")
			}

			if err := store.Put(ctx, name, strings.NewReader(body), int64(len(body))); err != nil {
				t.Fatalf("Put() error = %v", err)
			}

			exists, err = store.Exists(ctx, name)
			if err != nil || !exists {
				t.Fatalf("Exists() = %v, %v; want true", exists, err)
			}

			var buf bytes.Buffer
			if err := store.Get(ctx, name, &buf); err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if buf.String() != body {
				t.Errorf("Get() = %q, want %q", buf.String(), body)
			}

			if err := store.Delete(ctx, name); err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			if err := store.Delete(ctx, name); err != nil {
				t.Errorf("second Delete() error = %v, want nil", err)
			}

			err = store.Get(ctx, name, &buf)
			if !errors.Is(err, xdt.ErrArtifactNotFound) {
				t.Errorf("Get() after Delete error = %v, want ErrArtifactNotFound", err)
			}
		})
	}
}

func TestArtifactStore_RejectsPathNames(t *testing.T) {
	ctx := context.Background()
	names := []string{"", "..", "../escape.txt", "sub/report.txt", `sub\report.txt`}

	for backend, store := range testStores(t) {
		for _, name := range names {
			t.Run(backend+"/"+name, func(t *testing.T) {
				if err := store.Put(ctx, name, strings.NewReader("x"), 1); err == nil {
					t.Errorf("Put(%q) expected error", name)
				}
			})
		}
	}
}

func TestFileSystemStore_SizeMismatch(t *testing.T) {
	store, err := NewFileSystemStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileSystemStore() error = %v", err)
	}

	err = store.Put(context.Background(), "r.txt", strings.NewReader("hello"), 100)
	if err == nil {
		t.Fatal("Put() expected size mismatch error")
	}

	exists, _ := store.Exists(context.Background(), "r.txt")
	if exists {
		t.Error("partially written artifact became visible")
	}
}

func TestMemoryStore_Names(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	for _, name := range []string{"b.txt", "a.txt"} {
		if err := store.Put(ctx, name, strings.NewReader(""), 0); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
	}

	got := store.Names()
	if len(got) != 2 || got[0] != "a.txt" || got[1] != "b.txt" {
		t.Errorf("Names() = %v, want [a.txt b.txt]", got)
	}
}
