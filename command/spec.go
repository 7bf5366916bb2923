package command

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-chartpdf/report"
	"github.com/goliatone/go-errors"
)

// Export modes accepted by ExportSpec.
const (
	ModeChart  = "chart"
	ModeCharts = "charts"
	ModePanel  = "panel"
)

// ExportSpec is the serializable form of an export request, used by job
// payloads, job files and the HTTP API.
type ExportSpec struct {
	Mode    string              `json:"mode" yaml:"mode"`
	IDs     []string            `json:"ids" yaml:"ids"`
	Options report.MultiOptions `json:"options" yaml:"-"`
}

// Request converts the spec into its command message. An empty mode means a
// single chart.
func (s ExportSpec) Request() (Request, error) {
	switch strings.ToLower(strings.TrimSpace(s.Mode)) {
	case "", ModeChart:
		if len(s.IDs) != 1 {
			return nil, specError(fmt.Sprintf("chart export needs exactly one id, got %d", len(s.IDs)))
		}
		return ExportChart{ContentID: s.IDs[0], Options: s.Options.Options}, nil
	case ModeCharts:
		return ExportCharts{ContentIDs: s.IDs, Options: s.Options}, nil
	case ModePanel:
		if len(s.IDs) != 1 {
			return nil, specError(fmt.Sprintf("panel export needs exactly one id, got %d", len(s.IDs)))
		}
		return ExportPanel{PanelID: s.IDs[0], Options: s.Options.Options}, nil
	default:
		return nil, specError(fmt.Sprintf("unknown export mode %q", s.Mode))
	}
}

func specError(msg string) error {
	return errors.New(msg, errors.CategoryValidation).WithTextCode("EXPORT_SPEC_INVALID")
}
