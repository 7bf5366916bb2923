package report

import (
	"image"
	"math"

	xdraw "golang.org/x/image/draw"
)

// Strip is a horizontal band of a bitmap, in pixels.
type Strip struct {
	Top    int
	Height int
}

// SliceStrips cuts total pixel rows into consecutive strips. The first strip
// holds at most first rows and every later strip at most rest rows; heights sum
// to total with no gap or overlap.
func SliceStrips(total, first, rest int) []Strip {
	if total <= 0 {
		return nil
	}
	if first < 1 {
		first = 1
	}
	if rest < 1 {
		rest = 1
	}

	capacity := 1
	if total > first {
		capacity += (total - first + rest - 1) / rest
	}
	strips := make([]Strip, 0, capacity)
	top := 0
	limit := first
	for top < total {
		height := total - top
		if height > limit {
			height = limit
		}
		strips = append(strips, Strip{Top: top, Height: height})
		top += height
		limit = rest
	}
	return strips
}

// pixelsFor converts a page length in mm to whole pixel rows, never rounding up
// so that a strip is never drawn taller than the space it was sized for.
func pixelsFor(mm, pxPerMM float64) int {
	px := int(math.Floor(mm*pxPerMM + 1e-9))
	if px < 1 {
		return 1
	}
	return px
}

// cropStrip copies a strip of src into its own image.
func cropStrip(src image.Image, strip Strip) image.Image {
	bounds := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), strip.Height))
	srcRect := image.Rect(bounds.Min.X, bounds.Min.Y+strip.Top, bounds.Max.X, bounds.Min.Y+strip.Top+strip.Height)
	xdraw.Copy(dst, image.Point{}, src, srcRect, xdraw.Src, nil)
	return dst
}
