package reportpdf

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/goliatone/go-chartpdf/report"
)

const fontFamily = "Helvetica"

var orientationCodes = map[report.Orientation]string{
	report.OrientationPortrait:  "P",
	report.OrientationLandscape: "L",
}

var formatNames = map[report.PaperFormat]string{
	report.FormatA4:     "A4",
	report.FormatA3:     "A3",
	report.FormatLetter: "Letter",
}

// Canvas draws report pages into an fpdf document.
type Canvas struct {
	pdf       *fpdf.Fpdf
	translate func(string) string
	font      report.Font
	images    int
}

// Options tunes documents created by a Factory.
type Options struct {
	// Compress toggles stream compression; fpdf compresses by default.
	Compress *bool
	// CreationDate pins the document creation date, for reproducible output.
	CreationDate time.Time
}

// Factory returns a report.CanvasFactory producing fpdf canvases.
func Factory(opts Options) report.CanvasFactory {
	return func(setup report.PageSetup) (report.Canvas, error) {
		canvas, err := New(setup)
		if err != nil {
			return nil, err
		}
		if opts.Compress != nil {
			canvas.pdf.SetCompression(*opts.Compress)
		}
		if !opts.CreationDate.IsZero() {
			canvas.pdf.SetCreationDate(opts.CreationDate)
			canvas.pdf.SetModificationDate(opts.CreationDate)
		}
		return canvas, nil
	}
}

// New creates a document with its first page added.
func New(setup report.PageSetup) (*Canvas, error) {
	if _, _, err := setup.Size(); err != nil {
		return nil, err
	}
	orientation, ok := orientationCodes[setup.Orientation]
	if !ok {
		return nil, report.NewError(report.KindValidation, fmt.Sprintf("unsupported orientation: %s", setup.Orientation), nil)
	}
	format, ok := formatNames[setup.Format]
	if !ok {
		return nil, report.NewError(report.KindValidation, fmt.Sprintf("unsupported paper format: %s", setup.Format), nil)
	}

	pdf := fpdf.New(orientation, "mm", format, "")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)

	c := &Canvas{
		pdf:       pdf,
		translate: pdf.UnicodeTranslatorFromDescriptor(""),
	}
	pdf.AddPage()
	c.SetFont(report.Font{Style: report.FontRegular, Size: 10})
	if err := pdf.Error(); err != nil {
		return nil, report.NewError(report.KindUnexpected, "create pdf document", err)
	}
	return c, nil
}

// PageSize returns the page width and height in millimetres.
func (c *Canvas) PageSize() (float64, float64) {
	return c.pdf.GetPageSize()
}

// AddPage starts a new page.
func (c *Canvas) AddPage() {
	c.pdf.AddPage()
	c.applyFont(c.font)
}

// PageCount returns the number of pages.
func (c *Canvas) PageCount() int {
	return c.pdf.PageCount()
}

// SetFont selects the helvetica style and size used by Text.
func (c *Canvas) SetFont(font report.Font) {
	c.font = font
	c.applyFont(font)
}

func (c *Canvas) applyFont(font report.Font) {
	c.pdf.SetFont(fontFamily, string(font.Style), font.Size)
}

// TextWidth measures text at font without changing the current font.
func (c *Canvas) TextWidth(text string, font report.Font) float64 {
	if font != c.font {
		c.applyFont(font)
		defer c.applyFont(c.font)
	}
	return c.pdf.GetStringWidth(c.translate(text))
}

// Text draws text with its baseline at y.
func (c *Canvas) Text(x, y float64, text string, align report.Align) {
	if strings.TrimSpace(text) == "" {
		return
	}
	encoded := c.translate(text)
	if align == report.AlignCenter {
		x -= c.pdf.GetStringWidth(encoded) / 2
	}
	c.pdf.Text(x, y, encoded)
}

// DrawImage places a PNG bitmap at x, y with its top-left corner.
func (c *Canvas) DrawImage(img report.Bitmap, x, y, width, height float64) error {
	if !img.Valid() || width <= 0 || height <= 0 {
		return nil
	}
	c.images++
	name := fmt.Sprintf("bitmap-%d", c.images)
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	c.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(img.Data))
	if err := c.pdf.Error(); err != nil {
		return report.NewError(report.KindUnexpected, "register image", err)
	}
	c.pdf.ImageOptions(name, x, y, width, height, false, opts, 0, "")
	if err := c.pdf.Error(); err != nil {
		return report.NewError(report.KindUnexpected, "draw image", err)
	}
	return nil
}

// SetProperties sets the document metadata.
func (c *Canvas) SetProperties(props report.Properties) {
	c.pdf.SetTitle(props.Title, true)
	c.pdf.SetSubject(props.Subject, true)
	c.pdf.SetAuthor(props.Author, true)
	c.pdf.SetCreator(props.Creator, true)
}

// Output writes the finished document.
func (c *Canvas) Output(w io.Writer) error {
	if err := c.pdf.Output(w); err != nil {
		return report.NewError(report.KindUnexpected, "write pdf", err)
	}
	return nil
}
