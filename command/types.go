package command

import (
	"strings"

	"github.com/goliatone/go-chartpdf/report"
	"github.com/goliatone/go-errors"
)

// Request is any export message accepted by the batch runner.
type Request interface {
	Type() string
	Validate() error
}

// ExportChart exports one chart with its header, table and summary.
type ExportChart struct {
	ContentID string
	Options   report.Options
	Result    *report.Result
}

func (ExportChart) Type() string { return "chartpdf:export_chart" }

func (msg ExportChart) Validate() error {
	if strings.TrimSpace(msg.ContentID) == "" {
		return errors.New("content ID is required", errors.CategoryValidation).
			WithTextCode("CONTENT_ID_REQUIRED")
	}
	return nil
}

// ExportCharts exports several charts as a list or a two-chart comparison.
type ExportCharts struct {
	ContentIDs []string
	Options    report.MultiOptions
	Result     *report.Result
}

func (ExportCharts) Type() string { return "chartpdf:export_charts" }

func (msg ExportCharts) Validate() error {
	if len(msg.ContentIDs) == 0 {
		return errors.New("at least one content ID is required", errors.CategoryValidation).
			WithTextCode("CONTENT_IDS_REQUIRED")
	}
	for _, id := range msg.ContentIDs {
		if strings.TrimSpace(id) == "" {
			return errors.New("content IDs must not be blank", errors.CategoryValidation).
				WithTextCode("CONTENT_ID_BLANK")
		}
	}
	switch msg.Options.Layout {
	case "", report.LayoutList, report.LayoutGrid:
	default:
		return errors.New("layout must be list or grid", errors.CategoryValidation).
			WithTextCode("LAYOUT_INVALID")
	}
	return nil
}

// ExportPanel exports a whole dashboard panel sliced across pages.
type ExportPanel struct {
	PanelID string
	Options report.Options
	Result  *report.Result
}

func (ExportPanel) Type() string { return "chartpdf:export_panel" }

func (msg ExportPanel) Validate() error {
	if strings.TrimSpace(msg.PanelID) == "" {
		return errors.New("panel ID is required", errors.CategoryValidation).
			WithTextCode("PANEL_ID_REQUIRED")
	}
	return nil
}

// DeleteArtifact removes a stored document.
type DeleteArtifact struct {
	Key string
}

func (DeleteArtifact) Type() string { return "chartpdf:delete_artifact" }

func (msg DeleteArtifact) Validate() error {
	if strings.TrimSpace(msg.Key) == "" {
		return errors.New("artifact key is required", errors.CategoryValidation).
			WithTextCode("ARTIFACT_KEY_REQUIRED")
	}
	return nil
}
