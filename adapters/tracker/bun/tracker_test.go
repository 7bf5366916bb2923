package trackerbun

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-chartpdf/report"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func TestTracker_RecordStatusList(t *testing.T) {
	ctx := context.Background()
	tracker := NewTracker(newTestDB(t))

	id, err := tracker.Record(ctx, Record{
		Mode:        "charts",
		Layout:      "grid",
		ContentIDs:  []string{"gdp", "cpi"},
		Filename:    "compare.pdf",
		Pages:       1,
		Bytes:       2048,
		Skipped:     []string{"cpi"},
		ArtifactKey: "compare.pdf",
		Duration:    1500 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if id == "" {
		t.Fatalf("expected record id")
	}

	got, err := tracker.Status(ctx, id)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if got.State != StateCompleted {
		t.Fatalf("expected completed state, got %q", got.State)
	}
	if len(got.ContentIDs) != 2 || got.ContentIDs[1] != "cpi" {
		t.Fatalf("expected content ids, got %v", got.ContentIDs)
	}
	if len(got.Skipped) != 1 || got.Skipped[0] != "cpi" {
		t.Fatalf("expected skipped ids, got %v", got.Skipped)
	}
	if got.Duration != 1500*time.Millisecond {
		t.Fatalf("expected duration 1.5s, got %s", got.Duration)
	}

	list, err := tracker.List(ctx, Filter{Mode: "charts"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != id {
		t.Fatalf("expected one listed record, got %d", len(list))
	}

	none, err := tracker.List(ctx, Filter{Mode: "panel"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no panel records, got %d", len(none))
	}
}

func TestTracker_ListNewestFirstWithLimit(t *testing.T) {
	ctx := context.Background()
	tracker := NewTracker(newTestDB(t))
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		_, err := tracker.Record(ctx, Record{
			ID:        id,
			Mode:      "chart",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("record %s: %v", id, err)
		}
	}

	list, err := tracker.List(ctx, Filter{Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 records, got %d", len(list))
	}
	if list[0].ID != "c" || list[1].ID != "b" {
		t.Fatalf("expected newest first, got %s,%s", list[0].ID, list[1].ID)
	}
}

func TestTracker_StatusNotFound(t *testing.T) {
	tracker := NewTracker(newTestDB(t))

	_, err := tracker.Status(context.Background(), "missing")
	if !report.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestTracker_Delete(t *testing.T) {
	ctx := context.Background()
	tracker := NewTracker(newTestDB(t))

	id, err := tracker.Record(ctx, Record{Mode: "panel"})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := tracker.Delete(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := tracker.Status(ctx, id); !report.IsNotFound(err) {
		t.Fatalf("expected deleted record to be missing, got %v", err)
	}
	if err := tracker.Delete(ctx, id); !report.IsNotFound(err) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestTracker_NotConfigured(t *testing.T) {
	var tracker *Tracker
	if _, err := tracker.Record(context.Background(), Record{}); err == nil {
		t.Fatalf("expected error for nil tracker")
	}
	if _, err := NewTracker(nil).Status(context.Background(), "x"); err == nil {
		t.Fatalf("expected error for missing db")
	}
}

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	sqldb, err := sql.Open(sqliteshim.ShimName, "file:"+name+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() {
		_ = db.Close()
	})

	if err := NewTracker(db).CreateTable(context.Background()); err != nil {
		t.Fatalf("create table: %v", err)
	}
	return db
}
