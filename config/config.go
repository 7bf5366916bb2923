// Package config loads chartpdf settings from YAML files.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/goliatone/go-chartpdf/report"
	"gopkg.in/yaml.v3"
)

// Config is the top-level chartpdf configuration.
type Config struct {
	Output   Output   `yaml:"output"`
	Document Document `yaml:"document"`
	Chromium Chromium `yaml:"chromium"`
	History  History  `yaml:"history"`
	Log      Log      `yaml:"log"`
}

// Output controls where documents are stored.
type Output struct {
	Dir string `yaml:"dir"`
	// Workbook stores an .xlsx of the exported tables next to each PDF.
	Workbook bool `yaml:"workbook"`
}

// Document holds document-wide settings.
type Document struct {
	Author           string  `yaml:"author"`
	Creator          string  `yaml:"creator"`
	TimestampLayout  string  `yaml:"timestamp_layout"`
	HideTimestamp    bool    `yaml:"hide_timestamp"`
	DevicePixelRatio float64 `yaml:"device_pixel_ratio"`
}

// Chromium configures the headless browser used to capture live pages.
type Chromium struct {
	BrowserPath string        `yaml:"browser_path"`
	Headless    bool          `yaml:"headless"`
	Timeout     time.Duration `yaml:"timeout"`
	Args        []string      `yaml:"args"`
	// URL is the dashboard page charts and panels are read from.
	URL          string        `yaml:"url"`
	WaitSelector string        `yaml:"wait_selector"`
	Settle       time.Duration `yaml:"settle"`
	WindowWidth  int           `yaml:"window_width"`
	WindowHeight int           `yaml:"window_height"`
}

// History configures the export history database. An empty DSN disables it.
type History struct {
	DSN string `yaml:"dsn"`
}

// Log configures the CLI logger.
type Log struct {
	Level string `yaml:"level"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	doc := report.DefaultDocumentConfig()
	return Config{
		Output: Output{Dir: "exports"},
		Document: Document{
			Author:           doc.Author,
			Creator:          doc.Creator,
			TimestampLayout:  doc.TimestampLayout,
			DevicePixelRatio: doc.DevicePixelRatio,
		},
		Chromium: Chromium{
			Headless:     true,
			Timeout:      30 * time.Second,
			WindowWidth:  1440,
			WindowHeight: 900,
		},
		Log: Log{Level: "info"},
	}
}

// Load reads path and applies it over Defaults.
func Load(path string) (Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, report.NewError(report.KindNotFound, "config file not found: "+path, err)
		}
		return Config{}, report.NewError(report.KindUnexpected, "read config", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, report.NewError(report.KindValidation, "parse config", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadOrDefault loads path, falling back to Defaults when path is empty.
func LoadOrDefault(path string) (Config, error) {
	if strings.TrimSpace(path) == "" {
		return Defaults(), nil
	}
	return Load(path)
}

// Validate checks values Load cannot repair.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Output.Dir) == "" {
		return report.NewError(report.KindValidation, "output.dir is required", nil)
	}
	if c.Document.DevicePixelRatio < 0 {
		return report.NewError(report.KindValidation, "document.device_pixel_ratio must not be negative", nil)
	}
	if c.Chromium.Timeout < 0 {
		return report.NewError(report.KindValidation, "chromium.timeout must not be negative", nil)
	}
	return nil
}

// DocumentConfig converts the document section for report.NewExporter.
func (c Config) DocumentConfig() report.DocumentConfig {
	return report.DocumentConfig{
		Author:           c.Document.Author,
		Creator:          c.Document.Creator,
		TimestampLayout:  c.Document.TimestampLayout,
		HideTimestamp:    c.Document.HideTimestamp,
		DevicePixelRatio: c.Document.DevicePixelRatio,
	}
}
