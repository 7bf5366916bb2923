package reportchromium

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/goliatone/go-chartpdf/report"
)

const (
	defaultWindowWidth  = 1440
	defaultWindowHeight = 900
)

// Engine owns a shared headless Chromium instance. Pages are opened as
// Sessions, each bound to one tab.
type Engine struct {
	BrowserPath string
	Headless    bool
	Timeout     time.Duration
	Args        []string

	WindowWidth  int
	WindowHeight int

	initOnce      sync.Once
	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// OpenOptions controls how a page is loaded before capture.
type OpenOptions struct {
	// WaitSelector blocks until the element is visible.
	WaitSelector string
	// Settle is an extra delay after load, for chart animations.
	Settle time.Duration
}

// Open navigates a new tab to url and returns a session for capturing it.
func (e *Engine) Open(ctx context.Context, url string, opts OpenOptions) (*Session, error) {
	if e == nil {
		return nil, report.NewError(report.KindUnexpected, "chromium engine is nil", nil)
	}
	if strings.TrimSpace(url) == "" {
		return nil, report.NewError(report.KindValidation, "page url is required", nil)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if err := e.ensureBrowser(); err != nil {
		return nil, report.NewError(report.KindUnexpected, "chromium engine init failed", err)
	}

	tabCtx, cancel := chromedp.NewContext(e.browserCtx)
	// Allocate the tab on its own context so later per-call cancellation does
	// not close it.
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, report.NewError(report.KindUnexpected, "chromium tab init failed", err)
	}
	session := &Session{tabCtx: tabCtx, cancel: cancel, timeout: e.Timeout}

	actions := []chromedp.Action{
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	if opts.WaitSelector != "" {
		actions = append(actions, chromedp.WaitVisible(opts.WaitSelector, chromedp.ByQuery))
	}
	if opts.Settle > 0 {
		actions = append(actions, chromedp.Sleep(opts.Settle))
	}

	if err := session.run(ctx, actions...); err != nil {
		_ = session.Close()
		return nil, wrapChromium("chromium page load failed", err)
	}
	return session, nil
}

// Close releases Chromium resources if they have been initialized.
func (e *Engine) Close() error {
	if e == nil {
		return nil
	}
	if e.browserCancel != nil {
		e.browserCancel()
	}
	if e.allocCancel != nil {
		e.allocCancel()
	}
	return nil
}

func (e *Engine) ensureBrowser() error {
	e.initOnce.Do(func() {
		options := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
		if e.BrowserPath != "" {
			options = append(options, chromedp.ExecPath(e.BrowserPath))
		}
		options = append(options, chromedp.Flag("headless", e.Headless))
		options = append(options, chromedp.WindowSize(e.windowSize()))
		options = append(options, allocatorOptionsFromArgs(e.Args)...)

		e.allocCtx, e.allocCancel = chromedp.NewExecAllocator(context.Background(), options...)
		e.browserCtx, e.browserCancel = chromedp.NewContext(e.allocCtx)
	})
	if e.allocCtx == nil || e.browserCtx == nil {
		return errors.New("chromium allocator unavailable")
	}
	return nil
}

func (e *Engine) windowSize() (int, int) {
	width, height := e.WindowWidth, e.WindowHeight
	if width <= 0 {
		width = defaultWindowWidth
	}
	if height <= 0 {
		height = defaultWindowHeight
	}
	return width, height
}

func allocatorOptionsFromArgs(args []string) []chromedp.ExecAllocatorOption {
	options := make([]chromedp.ExecAllocatorOption, 0, len(args))
	for _, arg := range args {
		arg = strings.TrimSpace(arg)
		if arg == "" {
			continue
		}
		arg = strings.TrimPrefix(arg, "--")
		if arg == "" {
			continue
		}
		if name, value, ok := strings.Cut(arg, "="); ok {
			options = append(options, chromedp.Flag(name, value))
			continue
		}
		options = append(options, chromedp.Flag(arg, true))
	}
	return options
}

// wrapChromium keeps context errors classified and marks the rest unexpected.
func wrapChromium(msg string, err error) error {
	switch report.KindFromError(err) {
	case report.KindTimeout:
		return report.NewError(report.KindTimeout, msg, err)
	case report.KindCanceled:
		return report.NewError(report.KindCanceled, msg, err)
	}
	return report.NewError(report.KindUnexpected, msg, err)
}
