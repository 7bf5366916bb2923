package command

import (
	"context"

	"github.com/goliatone/go-chartpdf/report"
	gcmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-errors"
)

// Exporter produces chart documents.
type Exporter interface {
	ExportSingle(ctx context.Context, contentID string, opts report.Options) (report.Result, error)
	ExportMultiple(ctx context.Context, contentIDs []string, opts report.MultiOptions) (report.Result, error)
	ExportPanel(ctx context.Context, panelID string, opts report.Options) (report.Result, error)
}

// ArtifactDeleter removes stored documents.
type ArtifactDeleter interface {
	Delete(ctx context.Context, key string) error
}

func exporterRequired() error {
	return errors.New("exporter is required", errors.CategoryInternal).
		WithTextCode("EXPORTER_REQUIRED")
}

func storeResult(ctx context.Context, result report.Result, target *report.Result) {
	if target != nil {
		*target = result
	}
	if res := gcmd.ResultFromContext[report.Result](ctx); res != nil {
		res.Store(result)
	}
}

// ExportChartHandler handles single chart exports.
type ExportChartHandler struct {
	Exporter Exporter
}

func NewExportChartHandler(exp Exporter) *ExportChartHandler {
	return &ExportChartHandler{Exporter: exp}
}

func (h *ExportChartHandler) Execute(ctx context.Context, msg ExportChart) error {
	if h == nil || h.Exporter == nil {
		return exporterRequired()
	}
	result, err := h.Exporter.ExportSingle(ctx, msg.ContentID, msg.Options)
	if err != nil {
		return err
	}
	storeResult(ctx, result, msg.Result)
	return nil
}

// ExportChartsHandler handles multi-chart exports.
type ExportChartsHandler struct {
	Exporter Exporter
}

func NewExportChartsHandler(exp Exporter) *ExportChartsHandler {
	return &ExportChartsHandler{Exporter: exp}
}

func (h *ExportChartsHandler) Execute(ctx context.Context, msg ExportCharts) error {
	if h == nil || h.Exporter == nil {
		return exporterRequired()
	}
	result, err := h.Exporter.ExportMultiple(ctx, msg.ContentIDs, msg.Options)
	if err != nil {
		return err
	}
	storeResult(ctx, result, msg.Result)
	return nil
}

// ExportPanelHandler handles dashboard panel exports.
type ExportPanelHandler struct {
	Exporter Exporter
}

func NewExportPanelHandler(exp Exporter) *ExportPanelHandler {
	return &ExportPanelHandler{Exporter: exp}
}

func (h *ExportPanelHandler) Execute(ctx context.Context, msg ExportPanel) error {
	if h == nil || h.Exporter == nil {
		return exporterRequired()
	}
	result, err := h.Exporter.ExportPanel(ctx, msg.PanelID, msg.Options)
	if err != nil {
		return err
	}
	storeResult(ctx, result, msg.Result)
	return nil
}

// DeleteArtifactHandler deletes stored documents.
type DeleteArtifactHandler struct {
	Store ArtifactDeleter
}

func NewDeleteArtifactHandler(store ArtifactDeleter) *DeleteArtifactHandler {
	return &DeleteArtifactHandler{Store: store}
}

func (h *DeleteArtifactHandler) Execute(ctx context.Context, msg DeleteArtifact) error {
	if h == nil || h.Store == nil {
		return errors.New("artifact store is required", errors.CategoryInternal).
			WithTextCode("STORE_REQUIRED")
	}
	return h.Store.Delete(ctx, msg.Key)
}
