package trackerbun

import (
	"context"
	"time"

	"github.com/goliatone/go-chartpdf/command"
	"github.com/goliatone/go-chartpdf/report"
)

// TrackedExporter records every export it runs in a Tracker. Recording
// failures are logged and never fail the export.
type TrackedExporter struct {
	next    command.Exporter
	tracker *Tracker
	logger  report.Logger
}

// Track wraps next so its exports are recorded.
func Track(next command.Exporter, tracker *Tracker, logger report.Logger) *TrackedExporter {
	if logger == nil {
		logger = report.NopLogger{}
	}
	return &TrackedExporter{next: next, tracker: tracker, logger: logger}
}

func (e *TrackedExporter) ExportSingle(ctx context.Context, contentID string, opts report.Options) (report.Result, error) {
	start := e.tracker.now()
	result, err := e.next.ExportSingle(ctx, contentID, opts)
	e.record(ctx, Record{Mode: command.ModeChart, ContentIDs: []string{contentID}}, start, result, err)
	return result, err
}

func (e *TrackedExporter) ExportMultiple(ctx context.Context, contentIDs []string, opts report.MultiOptions) (report.Result, error) {
	start := e.tracker.now()
	result, err := e.next.ExportMultiple(ctx, contentIDs, opts)
	layout := string(opts.Layout)
	if layout == "" {
		layout = string(report.LayoutList)
	}
	e.record(ctx, Record{Mode: command.ModeCharts, Layout: layout, ContentIDs: contentIDs}, start, result, err)
	return result, err
}

func (e *TrackedExporter) ExportPanel(ctx context.Context, panelID string, opts report.Options) (report.Result, error) {
	start := e.tracker.now()
	result, err := e.next.ExportPanel(ctx, panelID, opts)
	e.record(ctx, Record{Mode: command.ModePanel, ContentIDs: []string{panelID}}, start, result, err)
	return result, err
}

func (e *TrackedExporter) record(ctx context.Context, record Record, start time.Time, result report.Result, err error) {
	record.ID = result.ID
	record.Duration = e.tracker.now().Sub(start)
	if err != nil {
		record.State = StateFailed
		record.ErrorKind = report.KindFromError(err)
		record.Error = err.Error()
	} else {
		record.State = StateCompleted
		record.Filename = result.Filename
		record.Pages = result.Pages
		record.Bytes = result.Bytes
		record.Skipped = result.Skipped
		record.ArtifactKey = result.Artifact.Key
		if result.Workbook != nil {
			record.WorkbookKey = result.Workbook.Key
		}
	}

	// a canceled request still gets its row written
	id, recErr := e.tracker.Record(context.WithoutCancel(ctx), record)
	if recErr != nil {
		e.logger.Warnf("export history not recorded: %v", recErr)
		return
	}
	e.logger.Debugf("export history %s recorded as %s", id, record.State)
}
