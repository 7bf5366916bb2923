package reportchromium

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/goliatone/go-chartpdf/report"
)

const pngDataURLPrefix = "data:image/png;base64,"

// canvasScript reads the first <canvas> inside the element as a PNG data URL,
// showing the element for the read when it is hidden with display:none.
const canvasScript = `(function(id) {
	const el = document.getElementById(id);
	if (!el) { return {status: "no_element"}; }
	const canvas = el.querySelector("canvas");
	if (!canvas) { return {status: "no_canvas"}; }
	const display = el.style.display;
	if (display === "none") { el.style.display = "block"; }
	try {
		if (!canvas.width || !canvas.height) { return {status: "empty"}; }
		return {status: "ok", data: canvas.toDataURL("image/png")};
	} finally {
		if (display === "none") { el.style.display = display; }
	}
})(%s)`

// boundsScript returns the document-relative box of the element including its
// scrollable overflow.
const boundsScript = `(function(id) {
	const el = document.getElementById(id);
	if (!el) { return {status: "no_element"}; }
	const rect = el.getBoundingClientRect();
	return {
		status: "ok",
		x: rect.left + window.scrollX,
		y: rect.top + window.scrollY,
		width: Math.max(el.scrollWidth, rect.width),
		height: Math.max(el.scrollHeight, rect.height)
	};
})(%s)`

type scriptResult struct {
	Status string  `json:"status"`
	Data   string  `json:"data,omitempty"`
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
}

// Session is one loaded page. It resolves element ids to bitmaps and
// implements report.ContentSource and report.PanelRasterizer.
type Session struct {
	tabCtx  context.Context
	cancel  context.CancelFunc
	timeout time.Duration

	// mu serializes captures; a tab runs one action list at a time.
	mu sync.Mutex
}

// Locate reads the chart canvas inside the element with the given id.
func (s *Session) Locate(ctx context.Context, id string) (report.Bitmap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res scriptResult
	if err := s.run(ctx, chromedp.Evaluate(script(canvasScript, id), &res)); err != nil {
		return report.Bitmap{}, wrapChromium(fmt.Sprintf("read canvas of %q", id), err)
	}
	switch res.Status {
	case "ok":
	case "no_element":
		return report.Bitmap{}, report.NewError(report.KindNotFound, fmt.Sprintf("chart element with id %q not found", id), nil)
	case "no_canvas":
		return report.Bitmap{}, report.NewError(report.KindNotFound, fmt.Sprintf("canvas element not found inside chart %q", id), nil)
	default:
		return report.Bitmap{}, report.NewError(report.KindNotFound, fmt.Sprintf("canvas of chart %q is empty", id), nil)
	}
	return decodeDataURL(res.Data)
}

// Rasterize screenshots the element with the given id, including content
// scrolled out of view, at scale device pixels per CSS pixel on white.
func (s *Session) Rasterize(ctx context.Context, id string, scale float64) (report.Bitmap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if scale <= 0 || math.IsNaN(scale) {
		scale = 1
	}

	var box scriptResult
	if err := s.run(ctx, chromedp.Evaluate(script(boundsScript, id), &box)); err != nil {
		return report.Bitmap{}, wrapChromium(fmt.Sprintf("measure panel %q", id), err)
	}
	if box.Status != "ok" {
		return report.Bitmap{}, report.NewError(report.KindNotFound, fmt.Sprintf("panel element with id %q not found", id), nil)
	}
	if box.Width <= 0 || box.Height <= 0 {
		return report.Bitmap{}, report.NewError(report.KindNotFound, fmt.Sprintf("panel %q has no size", id), nil)
	}

	var data []byte
	err := s.run(ctx,
		emulation.SetDefaultBackgroundColorOverride().WithColor(&cdp.RGBA{R: 255, G: 255, B: 255, A: 1}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			data, err = page.CaptureScreenshot().
				WithFormat(page.CaptureScreenshotFormatPng).
				WithCaptureBeyondViewport(true).
				WithClip(&page.Viewport{X: box.X, Y: box.Y, Width: box.Width, Height: box.Height, Scale: scale}).
				Do(ctx)
			return err
		}),
		emulation.SetDefaultBackgroundColorOverride(),
	)
	if err != nil {
		return report.Bitmap{}, wrapChromium(fmt.Sprintf("capture panel %q", id), err)
	}
	return report.DecodeBitmap(data)
}

// Close closes the tab.
func (s *Session) Close() error {
	if s == nil || s.cancel == nil {
		return nil
	}
	s.cancel()
	return nil
}

// run executes actions on the tab, bounded by both the caller context and the
// engine timeout.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	execCtx, cancelReq := context.WithCancel(s.tabCtx)
	defer cancelReq()
	go func() {
		select {
		case <-ctx.Done():
			cancelReq()
		case <-execCtx.Done():
		}
	}()
	if s.timeout > 0 {
		var cancelTimeout context.CancelFunc
		execCtx, cancelTimeout = context.WithTimeout(execCtx, s.timeout)
		defer cancelTimeout()
	}

	err := chromedp.Run(execCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func script(template, id string) string {
	encoded, _ := json.Marshal(id)
	return fmt.Sprintf(template, encoded)
}

func decodeDataURL(dataURL string) (report.Bitmap, error) {
	if !strings.HasPrefix(dataURL, pngDataURLPrefix) {
		return report.Bitmap{}, report.NewError(report.KindUnexpected, "canvas did not return a png data url", nil)
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(dataURL, pngDataURLPrefix))
	if err != nil {
		return report.Bitmap{}, report.NewError(report.KindUnexpected, "decode canvas data url", err)
	}
	return report.DecodeBitmap(raw)
}
