package report

import (
	"bytes"
	"image"
	"image/png"
	"io"
)

// FontStyle selects a helvetica weight.
type FontStyle string

const (
	FontRegular FontStyle = ""
	FontBold    FontStyle = "B"
)

// Font is a helvetica style and size in points.
type Font struct {
	Style FontStyle
	Size  float64
}

// Align positions text relative to the x coordinate.
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
)

// Properties are the document metadata fields.
type Properties struct {
	Title   string
	Subject string
	Author  string
	Creator string
}

// Measurer measures rendered text width in page units.
type Measurer interface {
	TextWidth(text string, font Font) float64
}

// Canvas is the page-drawing surface of a document. Coordinates are millimetres
// from the top-left corner; y is the text baseline.
type Canvas interface {
	Measurer
	PageSize() (width, height float64)
	AddPage()
	PageCount() int
	SetFont(font Font)
	Text(x, y float64, text string, align Align)
	DrawImage(img Bitmap, x, y, width, height float64) error
	SetProperties(props Properties)
	Output(w io.Writer) error
}

// PageSetup is what a canvas needs to size its pages.
type PageSetup struct {
	Format      PaperFormat
	Orientation Orientation
}

// CanvasFactory creates a document with its first page already added.
type CanvasFactory func(setup PageSetup) (Canvas, error)

// Bitmap is a PNG-encoded raster with its intrinsic pixel size.
type Bitmap struct {
	Data   []byte
	Width  int
	Height int
}

// Valid reports whether the bitmap has content and a drawable size.
func (b Bitmap) Valid() bool {
	return len(b.Data) > 0 && b.Width > 0 && b.Height > 0
}

// Image decodes the bitmap.
func (b Bitmap) Image() (image.Image, error) {
	img, err := png.Decode(bytes.NewReader(b.Data))
	if err != nil {
		return nil, NewError(KindUnexpected, "decode bitmap", err)
	}
	return img, nil
}

// DecodeBitmap wraps PNG data, reading its dimensions.
func DecodeBitmap(data []byte) (Bitmap, error) {
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Bitmap{}, NewError(KindUnexpected, "decode bitmap header", err)
	}
	return Bitmap{Data: data, Width: cfg.Width, Height: cfg.Height}, nil
}

// EncodeBitmap PNG-encodes an image.
func EncodeBitmap(img image.Image) (Bitmap, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return Bitmap{}, NewError(KindUnexpected, "encode bitmap", err)
	}
	bounds := img.Bounds()
	return Bitmap{Data: buf.Bytes(), Width: bounds.Dx(), Height: bounds.Dy()}, nil
}
