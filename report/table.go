package report

import (
	"fmt"
	"math"
)

const defaultTableTitle = "Data Values"

// TableStyle holds the fonts and spacing of a rendered table.
type TableStyle struct {
	TitleFont Font
	// TitleGap is the distance from the title baseline to the header row.
	TitleGap  float64
	BodyFont  Font
	RowHeight float64
	// Reserve is the space required below the cursor before a paginating
	// table starts; otherwise it moves to a new page.
	Reserve float64
	// FooterSpace is kept free above the bottom margin by truncating tables.
	FooterSpace float64
	// AbbreviateLabels fits first-column cells with FitLabel.
	AbbreviateLabels bool
	// AbbreviateHeader fits the first header cell with FitLabel.
	AbbreviateHeader bool
}

// PageTableStyle is used for full-width tables that continue across pages.
var PageTableStyle = TableStyle{
	TitleFont: Font{Style: FontBold, Size: 12},
	TitleGap:  6,
	BodyFont:  Font{Style: FontRegular, Size: 9},
	RowHeight: 6,
	Reserve:   20,
}

// ColumnTableStyle is used for the per-column tables of grid mode.
var ColumnTableStyle = TableStyle{
	TitleFont:        Font{Style: FontBold, Size: 10},
	TitleGap:         4,
	BodyFont:         Font{Style: FontRegular, Size: 8},
	RowHeight:        5,
	FooterSpace:      2,
	AbbreviateLabels: true,
	AbbreviateHeader: true,
}

// TableResult reports what a table render produced.
type TableResult struct {
	Rows       int
	Omitted    int
	PagesAdded int
}

// TableRenderer draws a Table at a cursor. With NewPageAllowed the table
// continues on new pages and repeats its header; without it rows that do not
// fit are dropped and counted in a "(+N more)" line.
type TableRenderer struct {
	Canvas         Canvas
	Page           Page
	Style          TableStyle
	NewPageAllowed bool
}

// Render draws table in the column starting at cur.X with the given width and
// returns the cursor below the last drawn line. Empty tables draw nothing.
func (r TableRenderer) Render(cur Cursor, width float64, table *Table) (Cursor, TableResult) {
	var result TableResult
	if table.Empty() {
		return cur, result
	}

	p := &pager{canvas: r.Canvas, page: r.Page}
	style := r.Style
	maxRows := len(table.Rows)

	if r.NewPageAllowed {
		if !cur.Fits(style.Reserve) {
			cur = p.next(cur)
		}
	} else {
		// Body baselines start one row below the header and must stay above the
		// footer space; when rows are dropped the last slot holds "(+N more)".
		available := cur.Remaining() - style.FooterSpace - style.TitleGap
		fit := int(math.Floor(available/style.RowHeight + 1e-9))
		if fit < maxRows {
			fit--
		}
		if fit < 0 {
			fit = 0
		}
		if fit < maxRows {
			maxRows = fit
		}
	}

	title := table.Title
	if title == "" {
		title = defaultTableTitle
	}
	r.Canvas.SetFont(style.TitleFont)
	r.Canvas.Text(cur.X, cur.Y, title, AlignLeft)
	cur = cur.Down(style.TitleGap)

	r.Canvas.SetFont(style.BodyFont)
	colWidth := width / float64(len(table.Headers))
	cur = r.drawRow(cur, colWidth, table.Headers, style.AbbreviateHeader)

	for i := 0; i < maxRows; i++ {
		if r.NewPageAllowed && !cur.Fits(style.RowHeight) {
			cur = p.next(cur)
			r.Canvas.SetFont(style.BodyFont)
			cur = r.drawRow(cur, colWidth, table.Headers, style.AbbreviateHeader)
		}
		cur = r.drawRow(cur, colWidth, table.Rows[i], style.AbbreviateLabels)
		result.Rows++
	}

	if omitted := len(table.Rows) - maxRows; omitted > 0 {
		r.Canvas.Text(cur.X, cur.Y, fmt.Sprintf("(+%d more)", omitted), AlignLeft)
		cur = cur.Down(style.RowHeight)
		result.Omitted = omitted
	}
	cur = cur.Down(style.FooterSpace)

	result.PagesAdded = p.added
	return cur, result
}

func (r TableRenderer) drawRow(cur Cursor, colWidth float64, cells []string, abbreviateFirst bool) Cursor {
	for i, cell := range cells {
		text := cell
		if i == 0 && abbreviateFirst {
			text = FitLabel(r.Canvas, cell, colWidth)
			// FitLabel measures at the label font; draw with the same metrics.
			r.Canvas.SetFont(labelFont)
			r.Canvas.Text(cur.X, cur.Y, text, AlignLeft)
			r.Canvas.SetFont(r.Style.BodyFont)
			continue
		}
		r.Canvas.Text(cur.X+float64(i)*colWidth, cur.Y, text, AlignLeft)
	}
	return cur.Down(r.Style.RowHeight)
}
