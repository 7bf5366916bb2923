package command

import (
	"github.com/goliatone/go-chartpdf/query"
	gcmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-errors"
)

// Artifacts is the store surface used by the artifact handlers.
type Artifacts interface {
	ArtifactDeleter
	query.ArtifactReader
}

// RegisterHandlers wires the export commands and artifact query to go-command.
// A nil store skips the artifact handlers. Callers unsubscribe the returned
// subscriptions when done.
func RegisterHandlers(reg *gcmd.Registry, exp Exporter, store Artifacts) ([]dispatcher.Subscription, error) {
	if exp == nil {
		return nil, errors.New("exporter is required", errors.CategoryValidation).
			WithTextCode("EXPORTER_REQUIRED")
	}

	chart := NewExportChartHandler(exp)
	charts := NewExportChartsHandler(exp)
	panel := NewExportPanelHandler(exp)

	subscriptions := []dispatcher.Subscription{
		dispatcher.SubscribeCommand(chart),
		dispatcher.SubscribeCommand(charts),
		dispatcher.SubscribeCommand(panel),
	}
	handlers := []any{chart, charts, panel}

	if store != nil {
		del := NewDeleteArtifactHandler(store)
		meta := query.NewArtifactMetadataHandler(store)
		subscriptions = append(subscriptions,
			dispatcher.SubscribeCommand(del),
			dispatcher.SubscribeQuery(meta),
		)
		handlers = append(handlers, del, meta)
	}

	if reg != nil {
		for _, handler := range handlers {
			if err := reg.RegisterCommand(handler); err != nil {
				return subscriptions, err
			}
		}
	}

	return subscriptions, nil
}
