package report

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	contentTypePDF  = "application/pdf"
	maxPanelScale   = 3.0
	gridColumnCount = 2
	// gridTableGap separates a grid image from the table below it.
	gridTableGap = 4.0
)

// DocumentConfig holds document-wide settings shared by every export.
type DocumentConfig struct {
	Author  string
	Creator string
	// TimestampLayout formats the "Date:" meta line.
	TimestampLayout string
	HideTimestamp   bool
	// DevicePixelRatio is multiplied by Options.Quality to get the panel
	// rasterization scale.
	DevicePixelRatio float64
}

// DefaultDocumentConfig returns the document defaults.
func DefaultDocumentConfig() DocumentConfig {
	return DocumentConfig{
		Author:           "Data Visualization",
		Creator:          "Chart Dashboard",
		TimestampLayout:  "2006-01-02 15:04:05",
		DevicePixelRatio: 1,
	}
}

// ExporterConfig wires an Exporter.
type ExporterConfig struct {
	Sources     ContentSource
	Panels      PanelRasterizer
	Store       ArtifactStore
	NewCanvas   CanvasFactory
	Logger      Logger
	Document    DocumentConfig
	Now         func() time.Time
	IDGenerator func() string
}

// Exporter lays out content bitmaps and metadata into PDF documents.
type Exporter struct {
	Sources     ContentSource
	Panels      PanelRasterizer
	Store       ArtifactStore
	NewCanvas   CanvasFactory
	Logger      Logger
	Document    DocumentConfig
	Now         func() time.Time
	IDGenerator func() string
}

// NewExporter creates an exporter, filling unset collaborators with defaults.
func NewExporter(cfg ExporterConfig) *Exporter {
	doc := cfg.Document
	defaults := DefaultDocumentConfig()
	if doc.Author == "" {
		doc.Author = defaults.Author
	}
	if doc.Creator == "" {
		doc.Creator = defaults.Creator
	}
	if doc.TimestampLayout == "" {
		doc.TimestampLayout = defaults.TimestampLayout
	}
	if doc.DevicePixelRatio <= 0 {
		doc.DevicePixelRatio = defaults.DevicePixelRatio
	}

	exp := &Exporter{
		Sources:     cfg.Sources,
		Panels:      cfg.Panels,
		Store:       cfg.Store,
		NewCanvas:   cfg.NewCanvas,
		Logger:      cfg.Logger,
		Document:    doc,
		Now:         cfg.Now,
		IDGenerator: cfg.IDGenerator,
	}
	if exp.Logger == nil {
		exp.Logger = NopLogger{}
	}
	if exp.Now == nil {
		exp.Now = time.Now
	}
	if exp.IDGenerator == nil {
		exp.IDGenerator = uuid.NewString
	}
	return exp
}

// exportJob is one normalized request, consumed once.
type exportJob struct {
	id        string
	mode      exportMode
	opts      Options
	startedAt time.Time
	timestamp string
}

// ExportSingle renders one content source with its header, table and summary.
func (e *Exporter) ExportSingle(ctx context.Context, contentID string, opts Options) (Result, error) {
	if err := e.ready(false); err != nil {
		return Result{}, err
	}
	job, err := e.newJob(modeSingle, opts)
	if err != nil {
		return Result{}, err
	}
	e.Logger.Debugf("export %s: single %q", job.id, contentID)

	bmp, err := e.locate(ctx, contentID)
	if err != nil {
		return Result{}, err
	}

	doc, page, err := e.newDocument(job.opts)
	if err != nil {
		return Result{}, err
	}
	if err := composeItemPage(doc, page, bmp, job.opts.item(), job.timestamp, PageTableStyle); err != nil {
		return Result{}, err
	}

	title := job.opts.Title
	if title == "" {
		title = job.opts.Source
	}
	sheets := []workbookSheet{sheetFor(job.opts.item(), 0)}
	return e.finish(ctx, job, doc, title, sheets, nil)
}

// ExportMultiple renders several content sources. Grid layout with exactly two
// sources produces one comparison page; otherwise each source gets its own
// page. Sources that cannot be found are skipped with a warning.
func (e *Exporter) ExportMultiple(ctx context.Context, contentIDs []string, opts MultiOptions) (Result, error) {
	if err := e.ready(false); err != nil {
		return Result{}, err
	}
	if len(contentIDs) == 0 {
		return Result{}, NewError(KindValidation, "at least one content id is required", nil)
	}
	job, err := e.newJob(modeMulti, opts.Options)
	if err != nil {
		return Result{}, err
	}
	opts.Options = job.opts
	normalized, err := normalizeMultiOptions(opts)
	if err != nil {
		return Result{}, err
	}
	e.Logger.Debugf("export %s: %d items, %s layout", job.id, len(contentIDs), normalized.Layout)

	doc, page, err := e.newDocument(job.opts)
	if err != nil {
		return Result{}, err
	}

	var skipped []string
	if normalized.Layout == LayoutGrid && len(contentIDs) == gridColumnCount {
		skipped, err = e.composeGrid(ctx, doc, page, contentIDs, normalized, job.timestamp)
	} else {
		skipped, err = e.composeList(ctx, doc, page, contentIDs, normalized, job.timestamp)
	}
	if err != nil {
		return Result{}, err
	}

	sheets := make([]workbookSheet, 0, len(contentIDs))
	for i := range contentIDs {
		sheets = append(sheets, sheetFor(normalized.Item(i), i))
	}
	return e.finish(ctx, job, doc, job.opts.Title, sheets, skipped)
}

// ExportPanel rasterizes a whole panel and slices it into page-height strips,
// optionally followed by a summary page.
func (e *Exporter) ExportPanel(ctx context.Context, panelID string, opts Options) (Result, error) {
	if err := e.ready(true); err != nil {
		return Result{}, err
	}
	job, err := e.newJob(modePanel, opts)
	if err != nil {
		return Result{}, err
	}
	if strings.TrimSpace(panelID) == "" {
		return Result{}, NewError(KindValidation, "panel id is required", nil)
	}

	scale := math.Min(maxPanelScale, e.Document.DevicePixelRatio*job.opts.Quality)
	e.Logger.Debugf("export %s: panel %q at scale %.2f", job.id, panelID, scale)

	bmp, err := e.Panels.Rasterize(ctx, panelID, scale)
	if err != nil {
		return Result{}, wrapUnexpected(fmt.Sprintf("rasterize panel %q", panelID), err)
	}
	if !bmp.Valid() {
		return Result{}, NewError(KindNotFound, fmt.Sprintf("panel %q has no renderable surface", panelID), nil)
	}
	img, err := bmp.Image()
	if err != nil {
		return Result{}, err
	}

	doc, page, err := e.newDocument(job.opts)
	if err != nil {
		return Result{}, err
	}
	if err := composePanel(ctx, doc, page, img, job.opts, job.timestamp); err != nil {
		return Result{}, err
	}

	sheets := []workbookSheet{sheetFor(job.opts.item(), 0)}
	return e.finish(ctx, job, doc, job.opts.Title, sheets, nil)
}

func (e *Exporter) ready(panels bool) error {
	if e == nil {
		return NewError(KindUnexpected, "exporter is nil", nil)
	}
	if panels && e.Panels == nil {
		return NewError(KindUnexpected, "panel rasterizer is not configured", nil)
	}
	if !panels && e.Sources == nil {
		return NewError(KindUnexpected, "content source is not configured", nil)
	}
	if e.NewCanvas == nil {
		return NewError(KindUnexpected, "canvas factory is not configured", nil)
	}
	if e.Store == nil {
		return NewError(KindUnexpected, "artifact store is not configured", nil)
	}
	if e.Logger == nil {
		e.Logger = NopLogger{}
	}
	if e.Now == nil {
		e.Now = time.Now
	}
	if e.IDGenerator == nil {
		e.IDGenerator = uuid.NewString
	}
	return nil
}

func (e *Exporter) newJob(mode exportMode, opts Options) (exportJob, error) {
	now := e.Now()
	normalized, err := normalizeOptions(mode, opts, now)
	if err != nil {
		return exportJob{}, err
	}
	job := exportJob{
		id:        e.IDGenerator(),
		mode:      mode,
		opts:      normalized,
		startedAt: now,
	}
	if !e.Document.HideTimestamp {
		layout := e.Document.TimestampLayout
		if layout == "" {
			layout = DefaultDocumentConfig().TimestampLayout
		}
		job.timestamp = now.Format(layout)
	}
	return job, nil
}

func (e *Exporter) locate(ctx context.Context, id string) (Bitmap, error) {
	if strings.TrimSpace(id) == "" {
		return Bitmap{}, NewError(KindValidation, "content id is required", nil)
	}
	bmp, err := e.Sources.Locate(ctx, id)
	if err != nil {
		return Bitmap{}, wrapUnexpected(fmt.Sprintf("locate content %q", id), err)
	}
	if !bmp.Valid() {
		return Bitmap{}, NewError(KindNotFound, fmt.Sprintf("content %q has no renderable surface", id), nil)
	}
	return bmp, nil
}

func (e *Exporter) newDocument(opts Options) (Canvas, Page, error) {
	doc, err := e.NewCanvas(opts.pageSetup())
	if err != nil {
		return nil, Page{}, wrapUnexpected("create document", err)
	}
	width, height := doc.PageSize()
	return doc, Page{Width: width, Height: height, Margin: opts.Margin}, nil
}

func (e *Exporter) composeList(ctx context.Context, doc Canvas, page Page, ids []string, opts MultiOptions, timestamp string) ([]string, error) {
	style := PageTableStyle
	style.AbbreviateLabels = true

	var skipped []string
	rendered := 0
	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, wrapUnexpected("export interrupted", err)
		}
		bmp, err := e.locate(ctx, id)
		if err != nil {
			if IsNotFound(err) {
				e.Logger.Warnf("content %q not found, skipping: %v", id, err)
				skipped = append(skipped, id)
				continue
			}
			return nil, err
		}
		if rendered > 0 {
			doc.AddPage()
		}
		rendered++
		if err := composeItemPage(doc, page, bmp, opts.Item(i), timestamp, style); err != nil {
			return nil, err
		}
	}
	return skipped, nil
}

func (e *Exporter) composeGrid(ctx context.Context, doc Canvas, page Page, ids []string, opts MultiOptions, timestamp string) ([]string, error) {
	cur := drawComparisonHeader(doc, page, opts.Item(0).Title, opts.Item(1).Title, timestamp)
	top := cur.Y + imageGap
	columnWidth := (page.Width - page.Margin*3) / 2

	var skipped []string
	var heights [gridColumnCount]float64
	for i := 0; i < gridColumnCount; i++ {
		bmp, err := e.locate(ctx, ids[i])
		if err != nil {
			if IsNotFound(err) {
				e.Logger.Warnf("content %q not found, leaving column %d empty: %v", ids[i], i+1, err)
				skipped = append(skipped, ids[i])
				continue
			}
			return nil, err
		}
		x := page.Margin + float64(i)*(columnWidth+page.Margin)
		width, height := ImageBlock{Bitmap: bmp, TargetWidth: columnWidth}.Fit(page.Bottom() - top)
		if err := doc.DrawImage(bmp, x, top, width, height); err != nil {
			return nil, wrapUnexpected("draw content image", err)
		}
		heights[i] = height
	}

	tables := TableRenderer{Canvas: doc, Page: page, Style: ColumnTableStyle}
	summaries := SummaryRenderer{Canvas: doc, Page: page, Style: ColumnSummaryStyle}
	for i := 0; i < gridColumnCount; i++ {
		item := opts.Item(i)
		x := page.Margin + float64(i)*(columnWidth+page.Margin)
		col := Cursor{X: x, Y: top + heights[i] + gridTableGap, Bottom: page.Bottom()}
		col, _ = tables.Render(col, columnWidth, item.Table)
		summaries.Render(col, x+columnWidth/2, item.Summary)
	}
	return skipped, nil
}

func (e *Exporter) finish(ctx context.Context, job exportJob, doc Canvas, title string, sheets []workbookSheet, skipped []string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, wrapUnexpected("export interrupted", err)
	}

	defaults := defaultsByMode[job.mode]
	if title == "" {
		title = defaults.title
	}
	doc.SetProperties(Properties{
		Title:   title,
		Subject: defaults.subject,
		Author:  e.Document.Author,
		Creator: e.Document.Creator,
	})

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return Result{}, wrapUnexpected("render document", err)
	}
	size := int64(buf.Len())
	pages := doc.PageCount()

	ref, err := e.Store.Put(ctx, job.opts.Filename, &buf, ArtifactMeta{
		ExportID:    job.id,
		ContentType: contentTypePDF,
		Filename:    job.opts.Filename,
		Pages:       pages,
		CreatedAt:   e.Now(),
	})
	if err != nil {
		return Result{}, wrapUnexpected("store document", err)
	}

	result := Result{
		ID:       job.id,
		Filename: job.opts.Filename,
		Pages:    pages,
		Bytes:    size,
		Skipped:  skipped,
		Artifact: ref,
	}

	if job.opts.Workbook {
		wbRef, err := e.storeWorkbook(ctx, job, sheets)
		if err != nil {
			return Result{}, err
		}
		result.Workbook = &wbRef
	}

	e.Logger.Infof("export %s: saved %s (%d pages, %d bytes, %d skipped) in %s",
		job.id, job.opts.Filename, pages, size, len(skipped), e.Now().Sub(job.startedAt))
	return result, nil
}

// composeItemPage draws the header, image, table and summary of one item,
// starting on the current page and adding pages as the table and summary need.
func composeItemPage(doc Canvas, page Page, bmp Bitmap, item ItemMeta, timestamp string, tableStyle TableStyle) error {
	cur := drawHeader(doc, page, header{
		Title:     item.Title,
		Source:    item.Source,
		Timestamp: timestamp,
		ChartType: item.ChartType,
	})

	imageY := cur.Y + imageGap
	available := page.Height - imageY - lineHeight - page.Margin
	width, height := ImageBlock{Bitmap: bmp, TargetWidth: page.ContentWidth()}.Fit(available)
	if err := doc.DrawImage(bmp, page.Margin, imageY, width, height); err != nil {
		return wrapUnexpected("draw content image", err)
	}
	cur = cur.At(imageY + height + lineHeight)

	tables := TableRenderer{Canvas: doc, Page: page, Style: tableStyle, NewPageAllowed: true}
	if !item.Table.Empty() {
		cur, _ = tables.Render(cur, page.ContentWidth(), item.Table)
		cur = cur.Down(lineHeight)
	}

	summaries := SummaryRenderer{Canvas: doc, Page: page, Style: PageSummaryStyle, NewPageAllowed: true}
	summaries.Render(cur, page.Width/2, item.Summary)
	return nil
}

// composePanel slices a panel image into page-height strips, one per page.
func composePanel(ctx context.Context, doc Canvas, page Page, img image.Image, opts Options, timestamp string) error {
	bounds := img.Bounds()
	imageWidth := page.ContentWidth()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 || imageWidth <= 0 {
		return NewError(KindNotFound, "panel has no renderable surface", nil)
	}
	pxPerMM := float64(bounds.Dx()) / imageWidth

	headerSpace := 0.0
	if opts.Title != "" {
		headerSpace = panelHeaderSpace
	}
	available := page.Height - page.Margin*2
	strips := SliceStrips(bounds.Dy(), pixelsFor(available-headerSpace, pxPerMM), pixelsFor(available, pxPerMM))

	for i, strip := range strips {
		if err := ctx.Err(); err != nil {
			return wrapUnexpected("export interrupted", err)
		}
		if i > 0 {
			doc.AddPage()
		}

		imageY := page.Margin
		if i == 0 && opts.Title != "" {
			headerY := page.Margin + headerOffset
			doc.SetFont(fontTitle)
			doc.Text(page.Width/2, headerY, opts.Title, AlignCenter)
			if timestamp != "" {
				doc.SetFont(fontMeta)
				doc.Text(page.Margin, headerY+lineHeight, "Date: "+timestamp, AlignLeft)
			}
			imageY += headerSpace
		}

		part, err := EncodeBitmap(cropStrip(img, strip))
		if err != nil {
			return err
		}
		if err := doc.DrawImage(part, page.Margin, imageY, imageWidth, float64(strip.Height)/pxPerMM); err != nil {
			return wrapUnexpected("draw panel strip", err)
		}
	}

	if opts.Summary != nil {
		doc.AddPage()
		summaries := SummaryRenderer{Canvas: doc, Page: page, Style: PageSummaryStyle, NewPageAllowed: true}
		summaries.Render(page.Top(), page.Width/2, opts.Summary)
	}
	return nil
}
