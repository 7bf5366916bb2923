package query

import (
	"context"
	"io"

	"github.com/goliatone/go-chartpdf/report"
	"github.com/goliatone/go-errors"
)

// ArtifactReader opens stored documents.
type ArtifactReader interface {
	Open(ctx context.Context, key string) (io.ReadCloser, report.ArtifactMeta, error)
}

// ArtifactMetadataHandler returns artifact metadata without reading the body.
type ArtifactMetadataHandler struct {
	Store ArtifactReader
}

func NewArtifactMetadataHandler(store ArtifactReader) *ArtifactMetadataHandler {
	return &ArtifactMetadataHandler{Store: store}
}

func (h *ArtifactMetadataHandler) Query(ctx context.Context, msg ArtifactMetadata) (report.ArtifactMeta, error) {
	if h == nil || h.Store == nil {
		return report.ArtifactMeta{}, errors.New("artifact store is required", errors.CategoryInternal).
			WithTextCode("STORE_REQUIRED")
	}
	if err := msg.Validate(); err != nil {
		return report.ArtifactMeta{}, err
	}
	reader, meta, err := h.Store.Open(ctx, msg.Key)
	if err != nil {
		return report.ArtifactMeta{}, err
	}
	if err := reader.Close(); err != nil {
		return report.ArtifactMeta{}, report.NewError(report.KindUnexpected, "close artifact", err)
	}
	return meta, nil
}
