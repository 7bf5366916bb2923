package report

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"
)

// Orientation is the page orientation.
type Orientation string

const (
	OrientationPortrait  Orientation = "portrait"
	OrientationLandscape Orientation = "landscape"
)

// PaperFormat is a named paper size.
type PaperFormat string

const (
	FormatA4     PaperFormat = "a4"
	FormatA3     PaperFormat = "a3"
	FormatLetter PaperFormat = "letter"
)

// LayoutMode selects how multi-item exports are laid out.
type LayoutMode string

const (
	LayoutList LayoutMode = "list"
	LayoutGrid LayoutMode = "grid"
)

// SummaryStats is the fixed key/value block rendered under a chart.
type SummaryStats struct {
	TotalRegions int     `json:"total_regions"`
	TotalYears   int     `json:"total_years"`
	DataPoints   int     `json:"data_points"`
	AverageValue float64 `json:"average_value"`
	MaxValue     float64 `json:"max_value"`
	MinValue     float64 `json:"min_value"`
	// Decimals is the display precision of the value rows.
	Decimals int `json:"decimals,omitempty"`
}

// Rows returns the label/value pairs in display order.
func (s SummaryStats) Rows() [][2]string {
	decimals := s.Decimals
	if decimals < 0 {
		decimals = 0
	}
	return [][2]string{
		{"Total Regions", strconv.Itoa(s.TotalRegions)},
		{"Total Years", strconv.Itoa(s.TotalYears)},
		{"Data Points", strconv.Itoa(s.DataPoints)},
		{"Average", strconv.FormatFloat(s.AverageValue, 'f', decimals, 64)},
		{"Maximum", strconv.FormatFloat(s.MaxValue, 'f', decimals, 64)},
		{"Minimum", strconv.FormatFloat(s.MinValue, 'f', decimals, 64)},
	}
}

// Table is a data table with a fixed column count.
type Table struct {
	Title   string     `json:"title,omitempty"`
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// NewTable builds a table and rejects rows whose length differs from the header count.
func NewTable(title string, headers []string, rows [][]string) (*Table, error) {
	table := &Table{Title: title, Headers: headers, Rows: rows}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return table, nil
}

// Validate checks the header/row shape.
func (t *Table) Validate() error {
	if t == nil || len(t.Rows) == 0 {
		return nil
	}
	if len(t.Headers) == 0 {
		return NewError(KindValidation, "table headers are required", nil)
	}
	for i, row := range t.Rows {
		if len(row) != len(t.Headers) {
			return NewError(KindValidation, fmt.Sprintf("table row %d has %d cells, expected %d", i, len(row), len(t.Headers)), nil)
		}
	}
	return nil
}

// Empty reports whether the table has nothing to render.
func (t *Table) Empty() bool {
	return t == nil || len(t.Headers) == 0 || len(t.Rows) == 0
}

// ItemMeta holds the per-item header and data of a multi-item export.
type ItemMeta struct {
	Title     string        `json:"title,omitempty"`
	Source    string        `json:"source,omitempty"`
	ChartType string        `json:"chart_type,omitempty"`
	Summary   *SummaryStats `json:"summary,omitempty"`
	Table     *Table        `json:"table,omitempty"`
}

// Options configures an export. Zero values are replaced by the mode defaults.
type Options struct {
	Filename    string      `json:"filename,omitempty"`
	Orientation Orientation `json:"orientation,omitempty"`
	Format      PaperFormat `json:"format,omitempty"`
	// Quality multiplies the device pixel ratio when a panel is rasterized.
	Quality float64 `json:"quality,omitempty"`
	// Margin is the page margin in millimetres.
	Margin    float64       `json:"margin,omitempty"`
	Title     string        `json:"title,omitempty"`
	Source    string        `json:"source,omitempty"`
	ChartType string        `json:"chart_type,omitempty"`
	Summary   *SummaryStats `json:"summary,omitempty"`
	Table     *Table        `json:"table,omitempty"`
	// Workbook also stores the tables and summaries as an .xlsx artifact.
	Workbook bool `json:"workbook,omitempty"`
}

// MultiOptions configures a multi-item export.
type MultiOptions struct {
	Options
	Layout LayoutMode `json:"layout,omitempty"`
	// Items is indexed in parallel with the content IDs.
	Items []ItemMeta `json:"items,omitempty"`
}

// Item returns the metadata for index i, or an empty value.
func (o MultiOptions) Item(i int) ItemMeta {
	if i < 0 || i >= len(o.Items) {
		return ItemMeta{}
	}
	return o.Items[i]
}

// Result describes a completed export.
type Result struct {
	ID       string       `json:"id"`
	Filename string       `json:"filename"`
	Pages    int          `json:"pages"`
	Bytes    int64        `json:"bytes"`
	Skipped  []string     `json:"skipped,omitempty"`
	Artifact ArtifactRef  `json:"artifact"`
	Workbook *ArtifactRef `json:"workbook,omitempty"`
}

// ContentSource resolves a content ID to its rendered bitmap.
type ContentSource interface {
	Locate(ctx context.Context, id string) (Bitmap, error)
}

// ContentSourceFunc adapts a function to a ContentSource.
type ContentSourceFunc func(ctx context.Context, id string) (Bitmap, error)

func (f ContentSourceFunc) Locate(ctx context.Context, id string) (Bitmap, error) {
	if f == nil {
		return Bitmap{}, NewError(KindUnexpected, "content source func is nil", nil)
	}
	return f(ctx, id)
}

// PanelRasterizer re-renders a panel subtree off-screen at the given scale.
type PanelRasterizer interface {
	Rasterize(ctx context.Context, id string, scale float64) (Bitmap, error)
}

// ArtifactMeta describes a stored artifact.
type ArtifactMeta struct {
	ExportID    string    `json:"export_id,omitempty"`
	ContentType string    `json:"content_type,omitempty"`
	Filename    string    `json:"filename,omitempty"`
	Size        int64     `json:"size"`
	Pages       int       `json:"pages,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ArtifactRef references a stored artifact.
type ArtifactRef struct {
	Key  string       `json:"key"`
	Meta ArtifactMeta `json:"meta"`
}

// ArtifactStore persists finished documents.
type ArtifactStore interface {
	Put(ctx context.Context, key string, r io.Reader, meta ArtifactMeta) (ArtifactRef, error)
}

// Logger provides logging hooks.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// NopLogger is a no-op logger.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any) {}
func (NopLogger) Infof(string, ...any)  {}
func (NopLogger) Warnf(string, ...any)  {}
func (NopLogger) Errorf(string, ...any) {}
