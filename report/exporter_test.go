package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
)

type recordingLogger struct {
	mu    sync.Mutex
	warns []string
	infos []string
}

func (l *recordingLogger) Debugf(string, ...any) {}
func (l *recordingLogger) Errorf(string, ...any) {}

func (l *recordingLogger) Infof(format string, args ...any) {
	l.mu.Lock()
	l.infos = append(l.infos, fmt.Sprintf(format, args...))
	l.mu.Unlock()
}

func (l *recordingLogger) Warnf(format string, args ...any) {
	l.mu.Lock()
	l.warns = append(l.warns, fmt.Sprintf(format, args...))
	l.mu.Unlock()
}

type exporterFixture struct {
	exporter *Exporter
	source   *StaticSource
	store    *MemoryStore
	logger   *recordingLogger
	canvases []*recordingCanvas
}

func newExporterFixture(t *testing.T, bitmaps map[string]Bitmap) *exporterFixture {
	t.Helper()
	fx := &exporterFixture{
		source: NewStaticSource(bitmaps),
		store:  NewMemoryStore(),
		logger: &recordingLogger{},
	}
	fx.exporter = NewExporter(ExporterConfig{
		Sources:     fx.source,
		Panels:      fx.source,
		Store:       fx.store,
		NewCanvas:   recordingFactory(&fx.canvases),
		Logger:      fx.logger,
		Now:         func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC) },
		IDGenerator: func() string { return "export-1" },
	})
	return fx
}

func (fx *exporterFixture) canvas(t *testing.T) *recordingCanvas {
	t.Helper()
	if len(fx.canvases) != 1 {
		t.Fatalf("expected one document, got %d", len(fx.canvases))
	}
	return fx.canvases[0]
}

func TestExportSingleLayout(t *testing.T) {
	fx := newExporterFixture(t, map[string]Bitmap{"chart": solidBitmap(t, 400, 400)})

	result, err := fx.exporter.ExportSingle(context.Background(), "chart", Options{
		Title:     "Population",
		Source:    "Census",
		ChartType: "Bar",
		Summary:   sampleSummary(),
		Table:     numberedTable(3),
	})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if result.Filename != "chart_1714979289000.pdf" {
		t.Fatalf("unexpected filename %q", result.Filename)
	}
	// The square image fills the first page, so the table and summary move on.
	if result.Pages != 2 || result.ID != "export-1" {
		t.Fatalf("unexpected result %+v", result)
	}

	canvas := fx.canvas(t)
	if canvas.width != 297 || canvas.height != 210 {
		t.Fatalf("expected a4 landscape, got %vx%v", canvas.width, canvas.height)
	}
	title := canvas.textsWithPrefix("Population")
	if len(title) != 1 || title[0].align != AlignCenter || title[0].y != 16 || title[0].font != fontTitle {
		t.Fatalf("unexpected title %+v", title)
	}
	if meta := canvas.textsWithPrefix("Generated From: Census"); len(meta) != 1 || meta[0].y != 22 {
		t.Fatalf("unexpected source line %+v", meta)
	}
	if meta := canvas.textsWithPrefix("Date: 2024-05-06 07:08:09"); len(meta) != 1 || meta[0].y != 28 {
		t.Fatalf("unexpected date line %+v", meta)
	}
	if meta := canvas.textsWithPrefix("Chart Type: Bar"); len(meta) != 1 || meta[0].y != 34 {
		t.Fatalf("unexpected chart type line %+v", meta)
	}

	if len(canvas.images) != 1 {
		t.Fatalf("expected one image, got %d", len(canvas.images))
	}
	img := canvas.images[0]
	// Below a 42mm image top, 210-42-6-10 leaves 152mm; the square image shrinks to fit.
	if img.x != 10 || img.y != 42 || img.width != 152 || img.height != 152 {
		t.Fatalf("unexpected image placement %+v", img)
	}
	if titles := canvas.textsWithPrefix("Values"); len(titles) != 1 || titles[0].page != 2 || titles[0].y != 10 {
		t.Fatalf("expected table at the top of page 2, got %+v", titles)
	}
	if got := canvas.textsWithPrefix(summaryTitle); len(got) != 1 || got[0].page != 2 {
		t.Fatalf("expected summary on page 2, got %+v", got)
	}

	if canvas.props.Title != "Population" || canvas.props.Subject != "Chart Export" {
		t.Fatalf("unexpected properties %+v", canvas.props)
	}
	if canvas.props.Author != "Data Visualization" || canvas.props.Creator != "Chart Dashboard" {
		t.Fatalf("unexpected properties %+v", canvas.props)
	}

	if _, ok := fx.store.Bytes(result.Filename); !ok {
		t.Fatalf("expected document stored under %s", result.Filename)
	}
	if result.Artifact.Meta.ContentType != "application/pdf" || result.Artifact.Meta.Pages != 2 {
		t.Fatalf("unexpected artifact meta %+v", result.Artifact.Meta)
	}
}

func TestExportSingleTitleFallsBackToSource(t *testing.T) {
	fx := newExporterFixture(t, map[string]Bitmap{"chart": solidBitmap(t, 40, 20)})
	if _, err := fx.exporter.ExportSingle(context.Background(), "chart", Options{Source: "Census"}); err != nil {
		t.Fatalf("export: %v", err)
	}
	if got := fx.canvas(t).props.Title; got != "Census" {
		t.Fatalf("expected source as document title, got %q", got)
	}

	fx = newExporterFixture(t, map[string]Bitmap{"chart": solidBitmap(t, 40, 20)})
	if _, err := fx.exporter.ExportSingle(context.Background(), "chart", Options{}); err != nil {
		t.Fatalf("export: %v", err)
	}
	if got := fx.canvas(t).props.Title; got != "Data Visualization Chart" {
		t.Fatalf("expected default title, got %q", got)
	}
}

func TestExportSingleNotFound(t *testing.T) {
	fx := newExporterFixture(t, nil)
	_, err := fx.exporter.ExportSingle(context.Background(), "missing", Options{})
	if !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if len(fx.store.Keys()) != 0 {
		t.Fatalf("expected nothing stored")
	}
}

func TestExportSingleEmptySurface(t *testing.T) {
	fx := newExporterFixture(t, map[string]Bitmap{"blank": {Data: []byte{1}, Width: 0, Height: 0}})
	_, err := fx.exporter.ExportSingle(context.Background(), "blank", Options{})
	if !IsNotFound(err) {
		t.Fatalf("expected not found for empty surface, got %v", err)
	}
}

func TestExportSingleSourceFailureIsUnexpected(t *testing.T) {
	fx := newExporterFixture(t, nil)
	fx.exporter.Sources = ContentSourceFunc(func(context.Context, string) (Bitmap, error) {
		return Bitmap{}, errors.New("capture failed")
	})
	_, err := fx.exporter.ExportSingle(context.Background(), "chart", Options{})
	if KindFromError(err) != KindUnexpected {
		t.Fatalf("expected unexpected error, got %v", err)
	}
}

func TestExportSingleRejectsBadTable(t *testing.T) {
	fx := newExporterFixture(t, map[string]Bitmap{"chart": solidBitmap(t, 40, 20)})
	_, err := fx.exporter.ExportSingle(context.Background(), "chart", Options{
		Table: &Table{Headers: []string{"A", "B"}, Rows: [][]string{{"1"}}},
	})
	if KindFromError(err) != KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestExportSingleHonorsCanceledContext(t *testing.T) {
	fx := newExporterFixture(t, map[string]Bitmap{"chart": solidBitmap(t, 40, 20)})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := fx.exporter.ExportSingle(ctx, "chart", Options{})
	if KindFromError(err) != KindCanceled {
		t.Fatalf("expected canceled, got %v", err)
	}
}

func TestExportMultipleListOnePagePerItem(t *testing.T) {
	fx := newExporterFixture(t, map[string]Bitmap{
		"a": solidBitmap(t, 100, 50),
		"b": solidBitmap(t, 100, 50),
	})
	result, err := fx.exporter.ExportMultiple(context.Background(), []string{"a", "b"}, MultiOptions{
		Items: []ItemMeta{
			{Title: "First", Table: numberedTable(2)},
			{Title: "Second", Summary: sampleSummary()},
		},
	})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if result.Pages != 2 {
		t.Fatalf("expected 2 pages, got %d", result.Pages)
	}
	canvas := fx.canvas(t)
	if first := canvas.textsWithPrefix("First"); len(first) != 1 || first[0].page != 1 {
		t.Fatalf("expected first title on page 1, got %+v", first)
	}
	if second := canvas.textsWithPrefix("Second"); len(second) != 1 || second[0].page != 2 {
		t.Fatalf("expected second title on page 2, got %+v", second)
	}
	if canvas.props.Subject != "Multiple Charts Export" || canvas.props.Title != "Data Visualization Charts" {
		t.Fatalf("unexpected properties %+v", canvas.props)
	}
}

func TestExportMultipleSkipsMissingItems(t *testing.T) {
	fx := newExporterFixture(t, map[string]Bitmap{"b": solidBitmap(t, 100, 50)})
	result, err := fx.exporter.ExportMultiple(context.Background(), []string{"a", "b"}, MultiOptions{
		Items: []ItemMeta{{Title: "First"}, {Title: "Second"}},
	})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if result.Pages != 1 {
		t.Fatalf("expected 1 page, got %d", result.Pages)
	}
	if len(result.Skipped) != 1 || result.Skipped[0] != "a" {
		t.Fatalf("expected a skipped, got %v", result.Skipped)
	}
	if len(fx.logger.warns) != 1 || !strings.Contains(fx.logger.warns[0], `"a"`) {
		t.Fatalf("expected one warning for a, got %v", fx.logger.warns)
	}
	if second := fx.canvas(t).textsWithPrefix("Second"); len(second) != 1 || second[0].page != 1 {
		t.Fatalf("expected remaining item on page 1, got %+v", second)
	}
}

func TestExportMultipleRequiresIDs(t *testing.T) {
	fx := newExporterFixture(t, nil)
	_, err := fx.exporter.ExportMultiple(context.Background(), nil, MultiOptions{})
	if KindFromError(err) != KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestExportMultipleGridSinglePage(t *testing.T) {
	fx := newExporterFixture(t, map[string]Bitmap{
		"a": solidBitmap(t, 100, 200),
		"b": solidBitmap(t, 100, 200),
	})
	result, err := fx.exporter.ExportMultiple(context.Background(), []string{"a", "b"}, MultiOptions{
		Layout: LayoutGrid,
		Items: []ItemMeta{
			{Title: "Jawa", Table: numberedTable(50), Summary: sampleSummary()},
			{Title: "Bali", Table: numberedTable(3)},
		},
	})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if result.Pages != 1 {
		t.Fatalf("expected 1 page, got %d", result.Pages)
	}

	canvas := fx.canvas(t)
	if got := canvas.textsWithPrefix("Comparing: Jawa"); len(got) != 1 || got[0].y != 16 || got[0].font != fontCompareTitle {
		t.Fatalf("unexpected comparison title %+v", got)
	}
	if got := canvas.textsWithPrefix("Vs"); len(got) != 1 || got[0].y != 22 || got[0].font != fontCompareVs {
		t.Fatalf("unexpected vs line %+v", got)
	}
	if got := canvas.textsWithPrefix("Bali"); len(got) != 1 || got[0].y != 28 {
		t.Fatalf("unexpected second title %+v", got)
	}
	if got := canvas.textsWithPrefix("Date: "); len(got) != 1 || got[0].y != 34 {
		t.Fatalf("unexpected date line %+v", got)
	}

	if len(canvas.images) != 2 {
		t.Fatalf("expected two images, got %d", len(canvas.images))
	}
	left, right := canvas.images[0], canvas.images[1]
	if left.x != 10 || right.x != 110 || left.y != 42 || right.y != 42 {
		t.Fatalf("unexpected image positions %+v %+v", left, right)
	}
	if left.width != 90 || left.height != 180 {
		t.Fatalf("unexpected image size %+v", left)
	}

	if !canvas.hasText("(+40 more)") {
		t.Fatalf("expected truncated first table")
	}
	if canvas.hasText("(+0 more)") {
		t.Fatalf("unexpected overflow line for the short table")
	}
	if got := canvas.textsWithPrefix(summaryTitle); len(got) != 1 || got[0].x != 10 {
		t.Fatalf("expected one compact summary in the left column, got %+v", got)
	}
}

func TestExportMultipleGridWithMissingItem(t *testing.T) {
	fx := newExporterFixture(t, map[string]Bitmap{"a": solidBitmap(t, 100, 100)})
	result, err := fx.exporter.ExportMultiple(context.Background(), []string{"a", "b"}, MultiOptions{
		Layout: LayoutGrid,
		Items:  []ItemMeta{{Title: "Jawa"}, {Title: "Bali", Table: numberedTable(2)}},
	})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if result.Pages != 1 || len(result.Skipped) != 1 || result.Skipped[0] != "b" {
		t.Fatalf("unexpected result %+v", result)
	}
	canvas := fx.canvas(t)
	if len(canvas.images) != 1 {
		t.Fatalf("expected one image, got %d", len(canvas.images))
	}
	if titles := canvas.textsWithPrefix("Values"); len(titles) != 1 || titles[0].y != 46 {
		t.Fatalf("expected table directly under the empty image slot, got %+v", titles)
	}
}

func TestExportMultipleGridNeedsTwoItems(t *testing.T) {
	fx := newExporterFixture(t, map[string]Bitmap{
		"a": solidBitmap(t, 100, 50),
		"b": solidBitmap(t, 100, 50),
		"c": solidBitmap(t, 100, 50),
	})
	result, err := fx.exporter.ExportMultiple(context.Background(), []string{"a", "b", "c"}, MultiOptions{Layout: LayoutGrid})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if result.Pages != 3 {
		t.Fatalf("expected list fallback with 3 pages, got %d", result.Pages)
	}
	if fx.canvas(t).hasText("Vs") {
		t.Fatalf("expected no comparison header")
	}
}

func TestExportPanelSlicesIntoPages(t *testing.T) {
	// 200px across a 200mm content width is 1px per mm; a4 portrait with a 5mm
	// margin leaves 287 rows per page.
	fx := newExporterFixture(t, map[string]Bitmap{"panel": solidBitmap(t, 200, 600)})
	result, err := fx.exporter.ExportPanel(context.Background(), "panel", Options{})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if result.Pages != 3 {
		t.Fatalf("expected 3 pages, got %d", result.Pages)
	}
	canvas := fx.canvas(t)
	total := 0.0
	for i, img := range canvas.images {
		if img.page != i+1 || img.y != 5 || img.width != 200 {
			t.Fatalf("unexpected strip %d placement %+v", i, img)
		}
		total += img.height
	}
	if total != 600 {
		t.Fatalf("expected strips to cover 600mm, got %v", total)
	}
	if canvas.props.Subject != "Dashboard Export" || canvas.props.Title != "Data Visualization Dashboard" {
		t.Fatalf("unexpected properties %+v", canvas.props)
	}
}

func TestExportPanelTitleAndSummary(t *testing.T) {
	fx := newExporterFixture(t, map[string]Bitmap{"panel": solidBitmap(t, 200, 600)})
	result, err := fx.exporter.ExportPanel(context.Background(), "panel", Options{
		Title:   "Dashboard",
		Summary: sampleSummary(),
	})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	// 269 rows fit under the header, then 287 per page: 269+287+44, plus the summary page.
	if result.Pages != 4 {
		t.Fatalf("expected 4 pages, got %d", result.Pages)
	}
	canvas := fx.canvas(t)
	if canvas.images[0].y != 23 || canvas.images[0].height != 269 {
		t.Fatalf("unexpected first strip %+v", canvas.images[0])
	}
	if got := canvas.textsWithPrefix(summaryTitle); len(got) != 1 || got[0].page != 4 {
		t.Fatalf("expected summary on the last page, got %+v", got)
	}
}

func TestExportPanelRejectsMarginWithoutContentArea(t *testing.T) {
	fx := newExporterFixture(t, map[string]Bitmap{"panel": solidBitmap(t, 400, 600)})
	_, err := fx.exporter.ExportPanel(context.Background(), "panel", Options{
		Orientation: OrientationLandscape,
		Margin:      105,
	})
	if KindFromError(err) != KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(fx.canvases) != 0 || len(fx.store.Keys()) != 0 {
		t.Fatalf("expected no document, got %d canvases and %d stored", len(fx.canvases), len(fx.store.Keys()))
	}
}

func TestExportSingleRejectsMarginWithoutContentArea(t *testing.T) {
	fx := newExporterFixture(t, map[string]Bitmap{"a": solidBitmap(t, 100, 50)})
	_, err := fx.exporter.ExportSingle(context.Background(), "a", Options{
		Margin:  150,
		Summary: sampleSummary(),
	})
	if KindFromError(err) != KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestExportPanelNotFound(t *testing.T) {
	fx := newExporterFixture(t, nil)
	_, err := fx.exporter.ExportPanel(context.Background(), "missing", Options{})
	if !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestExporterRequiresCollaborators(t *testing.T) {
	exp := NewExporter(ExporterConfig{})
	if _, err := exp.ExportSingle(context.Background(), "a", Options{}); KindFromError(err) != KindUnexpected {
		t.Fatalf("expected unexpected error, got %v", err)
	}
	if _, err := exp.ExportPanel(context.Background(), "a", Options{}); KindFromError(err) != KindUnexpected {
		t.Fatalf("expected unexpected error, got %v", err)
	}
}

func TestExportStoresWorkbook(t *testing.T) {
	fx := newExporterFixture(t, map[string]Bitmap{
		"a": solidBitmap(t, 100, 50),
		"b": solidBitmap(t, 100, 50),
	})
	result, err := fx.exporter.ExportMultiple(context.Background(), []string{"a", "b"}, MultiOptions{
		Options: Options{Filename: "compare", Workbook: true},
		Items: []ItemMeta{
			{Title: "Jawa", Table: numberedTable(2), Summary: sampleSummary()},
			{Title: "Jawa", Table: numberedTable(1)},
		},
	})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if result.Workbook == nil || result.Workbook.Key != "compare.xlsx" {
		t.Fatalf("expected workbook artifact, got %+v", result.Workbook)
	}

	data, ok := fx.store.Bytes("compare.xlsx")
	if !ok {
		t.Fatalf("expected workbook stored")
	}
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) != 2 || sheets[0] != "Jawa" || sheets[1] != "Jawa 2" {
		t.Fatalf("unexpected sheets %v", sheets)
	}
	rows, err := file.GetRows("Jawa")
	if err != nil {
		t.Fatalf("get rows: %v", err)
	}
	if len(rows) < 4 || rows[0][0] != "Values" || rows[1][0] != "Region" || rows[2][0] != "Region 1" {
		t.Fatalf("unexpected table rows %v", rows)
	}
	var average []string
	for _, row := range rows {
		if len(row) == 2 && row[0] == "Average" {
			average = row
		}
	}
	if average == nil || average[1] != "42.57" {
		t.Fatalf("expected average summary row, got %v", rows)
	}

	second, err := file.GetRows("Jawa 2")
	if err != nil {
		t.Fatalf("get rows: %v", err)
	}
	if len(second) != 3 {
		t.Fatalf("expected title, header and one row, got %v", second)
	}
}

func TestSheetForNames(t *testing.T) {
	if got := sheetFor(ItemMeta{}, 2).Name; got != "Chart 3" {
		t.Fatalf("expected Chart 3, got %q", got)
	}
	if got := sheetFor(ItemMeta{Title: "GDP [2023]: a/b"}, 0).Name; got != "GDP (2023)  a b" {
		t.Fatalf("unexpected sanitized name %q", got)
	}
	long := strings.Repeat("x", 40)
	if got := sheetFor(ItemMeta{Title: long}, 0).Name; len(got) != 31 {
		t.Fatalf("expected 31 runes, got %d", len(got))
	}
}
