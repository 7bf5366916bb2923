package query

import (
	"strings"

	"github.com/goliatone/go-errors"
)

// ArtifactMetadata requests the stored metadata of a document.
type ArtifactMetadata struct {
	Key string
}

func (ArtifactMetadata) Type() string { return "chartpdf:artifact_metadata" }

func (msg ArtifactMetadata) Validate() error {
	if strings.TrimSpace(msg.Key) == "" {
		return errors.New("artifact key is required", errors.CategoryValidation).
			WithTextCode("ARTIFACT_KEY_REQUIRED")
	}
	return nil
}
