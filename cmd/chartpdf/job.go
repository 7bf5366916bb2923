package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goliatone/go-chartpdf/command"
	"github.com/goliatone/go-chartpdf/report"
	"gopkg.in/yaml.v3"
)

// jobFile is a batch of exports read from YAML.
type jobFile struct {
	// URL overrides chromium.url for this batch.
	URL string `yaml:"url"`
	// Images maps content IDs to PNG files. When set, the page is not opened.
	Images          map[string]string `yaml:"images"`
	MaxRequests     int               `yaml:"max_requests"`
	ContinueOnError bool              `yaml:"continue_on_error"`
	Exports         []jobExport       `yaml:"exports"`

	dir string
}

type jobExport struct {
	Mode    string     `yaml:"mode"`
	IDs     []string   `yaml:"ids"`
	Layout  string     `yaml:"layout"`
	Options jobOptions `yaml:"options"`
	Items   []jobItem  `yaml:"items"`
}

type jobOptions struct {
	Filename    string  `yaml:"filename"`
	Orientation string  `yaml:"orientation"`
	Format      string  `yaml:"format"`
	Quality     float64 `yaml:"quality"`
	Margin      float64 `yaml:"margin"`
	Workbook    *bool   `yaml:"workbook"`
	jobItem     `yaml:",inline"`
}

type jobItem struct {
	Title     string      `yaml:"title"`
	Source    string      `yaml:"source"`
	ChartType string      `yaml:"chart_type"`
	Summary   *jobSummary `yaml:"summary"`
	Table     *jobTable   `yaml:"table"`
}

type jobSummary struct {
	TotalRegions int     `yaml:"total_regions"`
	TotalYears   int     `yaml:"total_years"`
	DataPoints   int     `yaml:"data_points"`
	AverageValue float64 `yaml:"average_value"`
	MaxValue     float64 `yaml:"max_value"`
	MinValue     float64 `yaml:"min_value"`
	Decimals     int     `yaml:"decimals"`
}

type jobTable struct {
	Title   string     `yaml:"title"`
	Headers []string   `yaml:"headers"`
	Rows    [][]string `yaml:"rows"`
}

func loadJobFile(path string) (*jobFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, report.NewError(report.KindNotFound, "read job file", err)
	}
	job := &jobFile{}
	if err := yaml.Unmarshal(data, job); err != nil {
		return nil, report.NewError(report.KindValidation, "parse job file", err)
	}
	job.dir = filepath.Dir(path)
	return job, nil
}

// requests converts the job into command messages. workbook is the default
// for exports that do not set options.workbook.
func (j *jobFile) requests(workbook bool) ([]command.Request, error) {
	reqs := make([]command.Request, 0, len(j.Exports))
	for i, exp := range j.Exports {
		req, err := exp.request(workbook)
		if err != nil {
			return nil, report.NewError(report.KindValidation, fmt.Sprintf("export %d", i+1), err)
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

func (e jobExport) request(workbook bool) (command.Request, error) {
	opts, err := e.Options.options(workbook)
	if err != nil {
		return nil, err
	}

	items := make([]report.ItemMeta, 0, len(e.Items))
	for _, item := range e.Items {
		meta, err := item.meta()
		if err != nil {
			return nil, err
		}
		items = append(items, meta)
	}
	spec := command.ExportSpec{
		Mode: e.Mode,
		IDs:  e.IDs,
		Options: report.MultiOptions{
			Options: opts,
			Layout:  report.LayoutMode(strings.ToLower(e.Layout)),
			Items:   items,
		},
	}
	return spec.Request()
}

func (o jobOptions) options(workbook bool) (report.Options, error) {
	meta, err := o.jobItem.meta()
	if err != nil {
		return report.Options{}, err
	}
	if o.Workbook != nil {
		workbook = *o.Workbook
	}
	return report.Options{
		Filename:    o.Filename,
		Orientation: report.Orientation(strings.ToLower(o.Orientation)),
		Format:      report.PaperFormat(strings.ToLower(o.Format)),
		Quality:     o.Quality,
		Margin:      o.Margin,
		Title:       meta.Title,
		Source:      meta.Source,
		ChartType:   meta.ChartType,
		Summary:     meta.Summary,
		Table:       meta.Table,
		Workbook:    workbook,
	}, nil
}

func (i jobItem) meta() (report.ItemMeta, error) {
	meta := report.ItemMeta{
		Title:     i.Title,
		Source:    i.Source,
		ChartType: i.ChartType,
	}
	if i.Summary != nil {
		s := report.SummaryStats(*i.Summary)
		meta.Summary = &s
	}
	if i.Table != nil {
		table, err := report.NewTable(i.Table.Title, i.Table.Headers, i.Table.Rows)
		if err != nil {
			return report.ItemMeta{}, err
		}
		meta.Table = table
	}
	return meta, nil
}

// staticSource decodes the job's PNG files, resolving paths against the job
// file's directory.
func (j *jobFile) staticSource() (*report.StaticSource, error) {
	source := report.NewStaticSource(nil)
	for id, path := range j.Images {
		if !filepath.IsAbs(path) {
			path = filepath.Join(j.dir, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, report.NewError(report.KindNotFound, fmt.Sprintf("read image for %q", id), err)
		}
		bmp, err := report.DecodeBitmap(data)
		if err != nil {
			return nil, err
		}
		source.Add(id, bmp)
	}
	return source, nil
}
