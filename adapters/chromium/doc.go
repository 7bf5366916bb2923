// Package reportchromium resolves chart and panel ids on a live page using a
// shared headless Chromium instance driven by chromedp.
//
// A Session reads chart canvases directly (Locate) and screenshots whole panel
// subtrees at a device scale (Rasterize), so it can back both
// report.ContentSource and report.PanelRasterizer.
package reportchromium
