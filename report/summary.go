package report

const summaryTitle = "Data Summary"

// SummaryStyle holds the fonts and spacing of a summary block.
type SummaryStyle struct {
	TitleFont Font
	TitleGap  float64
	BodyFont  Font
	RowHeight float64
	// Reserve is the space a paginating summary needs before it starts.
	Reserve float64
	// Leading advances by a row height before each row instead of after it.
	Leading bool
}

// PageSummaryStyle is the full-width summary block.
var PageSummaryStyle = SummaryStyle{
	TitleFont: Font{Style: FontBold, Size: 12},
	TitleGap:  4,
	BodyFont:  Font{Style: FontRegular, Size: 10},
	RowHeight: 6,
	Reserve:   40,
	Leading:   true,
}

// ColumnSummaryStyle is the compact block of grid mode.
var ColumnSummaryStyle = SummaryStyle{
	TitleFont: Font{Style: FontBold, Size: 10},
	TitleGap:  4,
	BodyFont:  Font{Style: FontRegular, Size: 9},
	RowHeight: 5,
}

// SummaryRenderer draws SummaryStats as a two-column key/value block.
type SummaryRenderer struct {
	Canvas         Canvas
	Page           Page
	Style          SummaryStyle
	NewPageAllowed bool
}

// Render draws the block with labels at cur.X and values at valueX, returning
// the cursor after the last row and the number of pages added.
func (r SummaryRenderer) Render(cur Cursor, valueX float64, stats *SummaryStats) (Cursor, int) {
	if stats == nil {
		return cur, 0
	}
	p := &pager{canvas: r.Canvas, page: r.Page}
	style := r.Style

	if r.NewPageAllowed && !cur.Fits(style.Reserve) {
		cur = p.next(cur)
	}

	r.Canvas.SetFont(style.TitleFont)
	r.Canvas.Text(cur.X, cur.Y, summaryTitle, AlignLeft)
	cur = cur.Down(style.TitleGap)

	r.Canvas.SetFont(style.BodyFont)
	for _, row := range stats.Rows() {
		if style.Leading {
			if r.NewPageAllowed && !cur.Fits(style.RowHeight) {
				cur = p.next(cur)
				r.Canvas.SetFont(style.BodyFont)
			}
			cur = cur.Down(style.RowHeight)
		}
		r.Canvas.Text(cur.X, cur.Y, row[0], AlignLeft)
		r.Canvas.Text(valueX, cur.Y, row[1], AlignLeft)
		if !style.Leading {
			cur = cur.Down(style.RowHeight)
		}
	}
	return cur, p.added
}
