package report

const (
	lineHeight = 6.0
	// headerOffset is the distance from the top margin to the first header baseline.
	headerOffset = 6.0
	imageGap     = 2.0
	// panelHeaderSpace is kept above the first panel strip when a title is drawn.
	panelHeaderSpace = lineHeight * 3
	// minContentSize is the smallest usable page area, in mm, in either direction.
	minContentSize = 20.0
)

var (
	fontTitle        = Font{Style: FontBold, Size: 16}
	fontMeta         = Font{Style: FontRegular, Size: 10}
	fontCompareTitle = Font{Style: FontBold, Size: 14}
	fontCompareVs    = Font{Style: FontBold, Size: 12}
)

// header is the title and meta lines drawn at the top of an item page.
type header struct {
	Title     string
	Source    string
	Timestamp string
	ChartType string
}

// drawHeader renders the centered title and left-aligned meta lines and returns
// the cursor below the last line.
func drawHeader(c Canvas, page Page, h header) Cursor {
	cur := page.Top().Down(headerOffset)

	if h.Title != "" {
		c.SetFont(fontTitle)
		c.Text(page.Width/2, cur.Y, h.Title, AlignCenter)
		cur = cur.Down(lineHeight)
	}

	c.SetFont(fontMeta)
	if h.Source != "" {
		c.Text(page.Margin, cur.Y, "Generated From: "+h.Source, AlignLeft)
		cur = cur.Down(lineHeight)
	}
	if h.Timestamp != "" {
		c.Text(page.Margin, cur.Y, "Date: "+h.Timestamp, AlignLeft)
		cur = cur.Down(lineHeight)
	}
	if h.ChartType != "" {
		c.Text(page.Margin, cur.Y, "Chart Type: "+h.ChartType, AlignLeft)
		cur = cur.Down(lineHeight)
	}
	return cur
}

// drawComparisonHeader renders the "Comparing: A / Vs / B" block of grid mode.
func drawComparisonHeader(c Canvas, page Page, first, second, timestamp string) Cursor {
	cur := page.Top().Down(headerOffset)
	center := page.Width / 2

	c.SetFont(fontCompareTitle)
	c.Text(center, cur.Y, "Comparing: "+first, AlignCenter)
	c.SetFont(fontCompareVs)
	c.Text(center, cur.Y+lineHeight, "Vs", AlignCenter)
	c.SetFont(fontCompareTitle)
	c.Text(center, cur.Y+lineHeight*2, second, AlignCenter)

	cur = cur.Down(lineHeight * 3)
	c.SetFont(fontMeta)
	if timestamp != "" {
		c.Text(page.Margin, cur.Y, "Date: "+timestamp, AlignLeft)
		cur = cur.Down(lineHeight)
	}
	return cur
}

// ImageBlock is a bitmap scaled to a target width.
type ImageBlock struct {
	Bitmap      Bitmap
	TargetWidth float64
}

// Fit returns the drawn size: the target width with the bitmap's aspect ratio,
// uniformly shrunk when taller than maxHeight. It never scales up.
func (b ImageBlock) Fit(maxHeight float64) (float64, float64) {
	if !b.Bitmap.Valid() || b.TargetWidth <= 0 {
		return 0, 0
	}
	width := b.TargetWidth
	height := float64(b.Bitmap.Height) * width / float64(b.Bitmap.Width)
	if maxHeight < 0 {
		maxHeight = 0
	}
	if height > maxHeight {
		ratio := maxHeight / height
		width *= ratio
		height *= ratio
	}
	return width, height
}
