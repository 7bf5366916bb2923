package report

import "fmt"

var paperSizesMM = map[PaperFormat]struct {
	width  float64
	height float64
}{
	FormatA4:     {width: 210, height: 297},
	FormatA3:     {width: 297, height: 420},
	FormatLetter: {width: 215.9, height: 279.4},
}

// Size returns the page width and height in millimetres.
func (s PageSetup) Size() (float64, float64, error) {
	size, ok := paperSizesMM[s.Format]
	if !ok {
		return 0, 0, NewError(KindValidation, fmt.Sprintf("unsupported paper format: %s", s.Format), nil)
	}
	switch s.Orientation {
	case OrientationPortrait:
		return size.width, size.height, nil
	case OrientationLandscape:
		return size.height, size.width, nil
	default:
		return 0, 0, NewError(KindValidation, fmt.Sprintf("unsupported orientation: %s", s.Orientation), nil)
	}
}

// Page is the fixed geometry of every page in a document.
type Page struct {
	Width  float64
	Height float64
	Margin float64
}

// Bottom is the lowest baseline content may use.
func (p Page) Bottom() float64 {
	return p.Height - p.Margin
}

// ContentWidth is the width between the side margins.
func (p Page) ContentWidth() float64 {
	return p.Width - 2*p.Margin
}

// Top returns a cursor at the top margin of a fresh page.
func (p Page) Top() Cursor {
	return Cursor{X: p.Margin, Y: p.Margin, Bottom: p.Bottom()}
}

// Cursor is the next draw position and the lowest usable baseline of the page.
type Cursor struct {
	X      float64
	Y      float64
	Bottom float64
}

// Remaining is the vertical space left on the page.
func (c Cursor) Remaining() float64 {
	return c.Bottom - c.Y
}

// Fits reports whether advancing by h stays on the page.
func (c Cursor) Fits(h float64) bool {
	return c.Y+h <= c.Bottom
}

// Down returns the cursor moved down by dy.
func (c Cursor) Down(dy float64) Cursor {
	c.Y += dy
	return c
}

// At returns the cursor at the given y.
func (c Cursor) At(y float64) Cursor {
	c.Y = y
	return c
}

// pager adds pages on behalf of renderers that are allowed to break.
type pager struct {
	canvas Canvas
	page   Page
	added  int
}

func (p *pager) next(cur Cursor) Cursor {
	p.canvas.AddPage()
	p.added++
	top := p.page.Top()
	top.X = cur.X
	return top
}
