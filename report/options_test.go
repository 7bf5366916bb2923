package report

import (
	"testing"
	"time"
)

func TestNormalizeOptionsDefaults(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	cases := []struct {
		mode        exportMode
		filename    string
		orientation Orientation
		quality     float64
		margin      float64
	}{
		{modeSingle, "chart_1700000000123.pdf", OrientationLandscape, 1.0, 10},
		{modeMulti, "charts_1700000000123.pdf", OrientationPortrait, 1.5, 10},
		{modePanel, "dashboard_1700000000123.pdf", OrientationPortrait, 1.5, 5},
	}
	for _, tc := range cases {
		opts, err := normalizeOptions(tc.mode, Options{}, now)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.mode, err)
		}
		if opts.Filename != tc.filename {
			t.Fatalf("%s: expected filename %q, got %q", tc.mode, tc.filename, opts.Filename)
		}
		if opts.Orientation != tc.orientation {
			t.Fatalf("%s: expected orientation %s, got %s", tc.mode, tc.orientation, opts.Orientation)
		}
		if opts.Format != FormatA4 {
			t.Fatalf("%s: expected a4, got %s", tc.mode, opts.Format)
		}
		if opts.Quality != tc.quality {
			t.Fatalf("%s: expected quality %v, got %v", tc.mode, tc.quality, opts.Quality)
		}
		if opts.Margin != tc.margin {
			t.Fatalf("%s: expected margin %v, got %v", tc.mode, tc.margin, opts.Margin)
		}
	}
}

func TestNormalizeOptionsKeepsCallerValues(t *testing.T) {
	opts, err := normalizeOptions(modeSingle, Options{
		Filename:    "report",
		Orientation: "Portrait",
		Format:      " LETTER ",
		Quality:     2,
		Margin:      15,
	}, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Filename != "report.pdf" {
		t.Fatalf("expected .pdf appended, got %q", opts.Filename)
	}
	if opts.Orientation != OrientationPortrait || opts.Format != FormatLetter {
		t.Fatalf("expected normalized page setup, got %s %s", opts.Orientation, opts.Format)
	}
	if opts.Quality != 2 || opts.Margin != 15 {
		t.Fatalf("expected caller quality and margin, got %v %v", opts.Quality, opts.Margin)
	}

	opts, err = normalizeOptions(modeSingle, Options{Filename: "Report.PDF"}, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Filename != "Report.PDF" {
		t.Fatalf("expected filename untouched, got %q", opts.Filename)
	}
}

func TestNormalizeOptionsRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		opts Options
	}{
		{"format", Options{Format: "a5"}},
		{"orientation", Options{Orientation: "diagonal"}},
		{"quality", Options{Quality: -1}},
		{"margin", Options{Margin: -2}},
		{"margin wider than page", Options{Margin: 150}},
		{"margin leaves no height", Options{Orientation: OrientationLandscape, Margin: 100}},
		{"margin leaves no width", Options{Orientation: OrientationPortrait, Margin: 96}},
		{"table", Options{Table: &Table{Headers: []string{"A", "B"}, Rows: [][]string{{"only one"}}}}},
	}
	for _, tc := range cases {
		_, err := normalizeOptions(modeSingle, tc.opts, time.Now())
		if KindFromError(err) != KindValidation {
			t.Fatalf("%s: expected validation error, got %v", tc.name, err)
		}
	}
}

func TestNormalizePanelOptionsReservesTitleSpace(t *testing.T) {
	// a4 landscape with a 90mm margin leaves 30mm of height: enough for an
	// untitled panel, not for one under an 18mm title block.
	opts := Options{Orientation: OrientationLandscape, Margin: 90}
	if _, err := normalizeOptions(modePanel, opts, time.Now()); err != nil {
		t.Fatalf("expected untitled panel to pass, got %v", err)
	}

	opts.Title = "Dashboard"
	if _, err := normalizeOptions(modePanel, opts, time.Now()); KindFromError(err) != KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := normalizeOptions(modeSingle, opts, time.Now()); err != nil {
		t.Fatalf("expected single export to ignore the panel title space, got %v", err)
	}
}

func TestNormalizeMultiOptionsLayout(t *testing.T) {
	opts, err := normalizeMultiOptions(MultiOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Layout != LayoutList {
		t.Fatalf("expected list layout, got %s", opts.Layout)
	}

	opts, err = normalizeMultiOptions(MultiOptions{Layout: "GRID"})
	if err != nil || opts.Layout != LayoutGrid {
		t.Fatalf("expected grid layout, got %s (%v)", opts.Layout, err)
	}

	if _, err := normalizeMultiOptions(MultiOptions{Layout: "mosaic"}); KindFromError(err) != KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	bad := MultiOptions{Items: []ItemMeta{{Table: &Table{Headers: []string{"A"}, Rows: [][]string{{"1", "2"}}}}}}
	if _, err := normalizeMultiOptions(bad); KindFromError(err) != KindValidation {
		t.Fatalf("expected item table validation error, got %v", err)
	}
}

func TestPageSetupSize(t *testing.T) {
	cases := []struct {
		setup PageSetup
		w, h  float64
	}{
		{PageSetup{FormatA4, OrientationPortrait}, 210, 297},
		{PageSetup{FormatA4, OrientationLandscape}, 297, 210},
		{PageSetup{FormatA3, OrientationPortrait}, 297, 420},
		{PageSetup{FormatLetter, OrientationLandscape}, 279.4, 215.9},
	}
	for _, tc := range cases {
		w, h, err := tc.setup.Size()
		if err != nil {
			t.Fatalf("%+v: unexpected error: %v", tc.setup, err)
		}
		if w != tc.w || h != tc.h {
			t.Fatalf("%+v: expected %vx%v, got %vx%v", tc.setup, tc.w, tc.h, w, h)
		}
	}
}

func TestWorkbookKey(t *testing.T) {
	if got := workbookKey("chart_1.pdf"); got != "chart_1.xlsx" {
		t.Fatalf("expected chart_1.xlsx, got %s", got)
	}
	if got := workbookKey("summary.PDF"); got != "summary.xlsx" {
		t.Fatalf("expected summary.xlsx, got %s", got)
	}
}
