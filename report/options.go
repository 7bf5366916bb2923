package report

import (
	"fmt"
	"strings"
	"time"
)

// exportMode identifies which entry point is normalizing options.
type exportMode string

const (
	modeSingle exportMode = "single"
	modeMulti  exportMode = "multi"
	modePanel  exportMode = "panel"
)

type modeDefaults struct {
	filenamePrefix string
	orientation    Orientation
	format         PaperFormat
	quality        float64
	margin         float64
	title          string
	subject        string
}

var defaultsByMode = map[exportMode]modeDefaults{
	modeSingle: {
		filenamePrefix: "chart",
		orientation:    OrientationLandscape,
		format:         FormatA4,
		quality:        1.0,
		margin:         10,
		title:          "Data Visualization Chart",
		subject:        "Chart Export",
	},
	modeMulti: {
		filenamePrefix: "charts",
		orientation:    OrientationPortrait,
		format:         FormatA4,
		quality:        1.5,
		margin:         10,
		title:          "Data Visualization Charts",
		subject:        "Multiple Charts Export",
	},
	modePanel: {
		filenamePrefix: "dashboard",
		orientation:    OrientationPortrait,
		format:         FormatA4,
		quality:        1.5,
		margin:         5,
		title:          "Data Visualization Dashboard",
		subject:        "Dashboard Export",
	},
}

// normalizeOptions applies the mode defaults and validates the result.
func normalizeOptions(mode exportMode, opts Options, now time.Time) (Options, error) {
	defaults := defaultsByMode[mode]

	opts.Filename = strings.TrimSpace(opts.Filename)
	if opts.Filename == "" {
		opts.Filename = fmt.Sprintf("%s_%d", defaults.filenamePrefix, now.UnixMilli())
	}
	if !strings.HasSuffix(strings.ToLower(opts.Filename), ".pdf") {
		opts.Filename += ".pdf"
	}

	opts.Orientation = Orientation(strings.ToLower(strings.TrimSpace(string(opts.Orientation))))
	if opts.Orientation == "" {
		opts.Orientation = defaults.orientation
	}
	opts.Format = PaperFormat(strings.ToLower(strings.TrimSpace(string(opts.Format))))
	if opts.Format == "" {
		opts.Format = defaults.format
	}
	width, height, err := (PageSetup{Format: opts.Format, Orientation: opts.Orientation}).Size()
	if err != nil {
		return Options{}, err
	}

	if opts.Quality < 0 {
		return Options{}, NewError(KindValidation, "quality must not be negative", nil)
	}
	if opts.Quality == 0 {
		opts.Quality = defaults.quality
	}
	if opts.Margin < 0 {
		return Options{}, NewError(KindValidation, "margin must not be negative", nil)
	}
	if opts.Margin == 0 {
		opts.Margin = defaults.margin
	}
	if err := checkContentArea(mode, opts, width, height); err != nil {
		return Options{}, err
	}

	if err := opts.Table.Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// checkContentArea rejects margins that leave too little of the page to draw
// on, including the space under a panel title on the first page.
func checkContentArea(mode exportMode, opts Options, width, height float64) error {
	contentWidth := width - 2*opts.Margin
	contentHeight := height - 2*opts.Margin
	if contentWidth < minContentSize || contentHeight < minContentSize {
		return NewError(KindValidation, fmt.Sprintf(
			"margin %gmm leaves %gx%gmm of a %gx%gmm page, need at least %gmm each way",
			opts.Margin, contentWidth, contentHeight, width, height, minContentSize), nil)
	}
	if mode == modePanel && opts.Title != "" && contentHeight-panelHeaderSpace < minContentSize {
		return NewError(KindValidation, fmt.Sprintf(
			"margin %gmm leaves no room for the panel below its title", opts.Margin), nil)
	}
	return nil
}

// normalizeMultiOptions validates the layout and per-item tables; the embedded
// Options must already be normalized.
func normalizeMultiOptions(opts MultiOptions) (MultiOptions, error) {
	opts.Layout = LayoutMode(strings.ToLower(strings.TrimSpace(string(opts.Layout))))
	switch opts.Layout {
	case "":
		opts.Layout = LayoutList
	case LayoutList, LayoutGrid:
	default:
		return MultiOptions{}, NewError(KindValidation, fmt.Sprintf("unsupported layout mode: %s", opts.Layout), nil)
	}

	for i, item := range opts.Items {
		if err := item.Table.Validate(); err != nil {
			return MultiOptions{}, NewError(KindValidation, fmt.Sprintf("item %d table", i), err)
		}
	}
	return opts, nil
}

func (o Options) pageSetup() PageSetup {
	return PageSetup{Format: o.Format, Orientation: o.Orientation}
}

func (o Options) item() ItemMeta {
	return ItemMeta{
		Title:     o.Title,
		Source:    o.Source,
		ChartType: o.ChartType,
		Summary:   o.Summary,
		Table:     o.Table,
	}
}

func workbookKey(filename string) string {
	base := filename
	if strings.HasSuffix(strings.ToLower(base), ".pdf") {
		base = base[:len(base)-len(".pdf")]
	}
	return base + ".xlsx"
}
