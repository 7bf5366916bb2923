package storefs

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goliatone/go-chartpdf/report"
)

func TestStore_PutOpenDelete(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root)
	store.Now = func() time.Time {
		return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	}

	ref, err := store.Put(context.Background(), "exports/chart.pdf", bytes.NewBufferString("%PDF-1.3"), report.ArtifactMeta{
		ExportID: "exp-1",
		Pages:    2,
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if ref.Meta.Size != 8 {
		t.Fatalf("expected size 8, got %d", ref.Meta.Size)
	}
	if !ref.Meta.CreatedAt.Equal(store.Now()) {
		t.Fatalf("expected created_at from clock, got %v", ref.Meta.CreatedAt)
	}
	if ref.Meta.ContentType != "application/pdf" {
		t.Fatalf("expected content type from extension, got %q", ref.Meta.ContentType)
	}
	if ref.Meta.Filename != "chart.pdf" {
		t.Fatalf("expected filename from key, got %q", ref.Meta.Filename)
	}

	reader, meta, err := store.Open(context.Background(), "exports/chart.pdf")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	data, err := io.ReadAll(reader)
	_ = reader.Close()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "%PDF-1.3" {
		t.Fatalf("expected payload, got %q", string(data))
	}
	if meta.ExportID != "exp-1" || meta.Pages != 2 {
		t.Fatalf("expected sidecar meta, got %+v", meta)
	}

	if err := store.Delete(context.Background(), "exports/chart.pdf"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, _, err := store.Open(context.Background(), "exports/chart.pdf"); !report.IsNotFound(err) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "exports", "chart.pdf.meta.json")); !os.IsNotExist(err) {
		t.Fatalf("expected sidecar removed, got %v", err)
	}
	if err := store.Delete(context.Background(), "exports/chart.pdf"); !report.IsNotFound(err) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestStore_DeleteMissingArtifact(t *testing.T) {
	store := NewStore(t.TempDir())
	if err := store.Delete(context.Background(), "nope.pdf"); !report.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStore_PutLeavesNoTempFiles(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root)
	if _, err := store.Put(context.Background(), "a.pdf", bytes.NewBufferString("x"), report.ArtifactMeta{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 2 {
		names := make([]string, 0, len(entries))
		for _, entry := range entries {
			names = append(names, entry.Name())
		}
		t.Fatalf("expected artifact and sidecar only, got %v", names)
	}
}

func TestStore_RejectsEscapingKeys(t *testing.T) {
	store := NewStore(t.TempDir())
	for _, key := range []string{"", "/", "."} {
		_, err := store.Put(context.Background(), key, bytes.NewBufferString("x"), report.ArtifactMeta{})
		if report.KindFromError(err) != report.KindValidation {
			t.Fatalf("key %q: expected validation error, got %v", key, err)
		}
	}

	path, err := store.Path("../../etc/passwd")
	if err != nil {
		t.Fatalf("path: %v", err)
	}
	root, _ := filepath.Abs(store.Root)
	if filepath.Dir(filepath.Dir(path)) != root {
		t.Fatalf("expected key clamped under root, got %s", path)
	}
}

func TestStore_RequiresRoot(t *testing.T) {
	store := &Store{}
	_, err := store.Put(context.Background(), "a.pdf", bytes.NewBufferString("x"), report.ArtifactMeta{})
	if report.KindFromError(err) != report.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestStore_PutHonorsCanceledContext(t *testing.T) {
	store := NewStore(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := store.Put(ctx, "a.pdf", bytes.NewBufferString("x"), report.ArtifactMeta{})
	if report.KindFromError(err) != report.KindCanceled {
		t.Fatalf("expected canceled, got %v", err)
	}
}
