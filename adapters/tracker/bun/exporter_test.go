package trackerbun

import (
	"context"
	"testing"

	"github.com/goliatone/go-chartpdf/report"
)

type stubExporter struct {
	err error
}

func (s stubExporter) ExportSingle(_ context.Context, contentID string, _ report.Options) (report.Result, error) {
	if s.err != nil {
		return report.Result{}, s.err
	}
	return report.Result{
		ID:       "exp-1",
		Filename: contentID + ".pdf",
		Pages:    1,
		Bytes:    512,
		Artifact: report.ArtifactRef{Key: contentID + ".pdf"},
	}, nil
}

func (s stubExporter) ExportMultiple(_ context.Context, _ []string, _ report.MultiOptions) (report.Result, error) {
	if s.err != nil {
		return report.Result{}, s.err
	}
	return report.Result{
		ID:       "exp-2",
		Filename: "charts.pdf",
		Pages:    2,
		Skipped:  []string{"b"},
		Artifact: report.ArtifactRef{Key: "charts.pdf"},
		Workbook: &report.ArtifactRef{Key: "charts.xlsx"},
	}, nil
}

func (s stubExporter) ExportPanel(_ context.Context, _ string, _ report.Options) (report.Result, error) {
	return report.Result{}, s.err
}

func TestTrackedExporter_RecordsSuccess(t *testing.T) {
	ctx := context.Background()
	tracker := NewTracker(newTestDB(t))
	exp := Track(stubExporter{}, tracker, nil)

	if _, err := exp.ExportMultiple(ctx, []string{"a", "b"}, report.MultiOptions{}); err != nil {
		t.Fatalf("export: %v", err)
	}

	got, err := tracker.Status(ctx, "exp-2")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if got.Mode != "charts" || got.Layout != "list" {
		t.Fatalf("expected charts/list, got %s/%s", got.Mode, got.Layout)
	}
	if got.WorkbookKey != "charts.xlsx" {
		t.Fatalf("expected workbook key, got %q", got.WorkbookKey)
	}
	if got.Pages != 2 || len(got.Skipped) != 1 {
		t.Fatalf("expected pages and skipped ids, got %d/%v", got.Pages, got.Skipped)
	}
}

func TestTrackedExporter_RecordsFailure(t *testing.T) {
	ctx := context.Background()
	tracker := NewTracker(newTestDB(t))
	cause := report.NewError(report.KindNotFound, "panel missing", nil)
	exp := Track(stubExporter{err: cause}, tracker, nil)

	_, err := exp.ExportPanel(ctx, "dashboard", report.Options{})
	if !report.IsNotFound(err) {
		t.Fatalf("expected export error to pass through, got %v", err)
	}

	list, err := tracker.List(ctx, Filter{State: StateFailed})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected one failed record, got %d", len(list))
	}
	if list[0].ErrorKind != report.KindNotFound {
		t.Fatalf("expected not_found kind, got %q", list[0].ErrorKind)
	}
	if list[0].Mode != "panel" || list[0].ContentIDs[0] != "dashboard" {
		t.Fatalf("expected panel record for dashboard, got %+v", list[0])
	}
}

func TestTrackedExporter_RecordFailureDoesNotFailExport(t *testing.T) {
	exp := Track(stubExporter{}, NewTracker(nil), nil)

	result, err := exp.ExportSingle(context.Background(), "gdp", report.Options{})
	if err != nil {
		t.Fatalf("expected export to succeed, got %v", err)
	}
	if result.Filename != "gdp.pdf" {
		t.Fatalf("expected gdp.pdf, got %q", result.Filename)
	}
}
