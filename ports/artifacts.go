package ports

import (
	"context"

	"datapilot/domain/analysis"
)

// ArtifactExporter turns session data into a downloadable file
type ArtifactExporter interface {
	Export(bundle analysis.Bundle, kind, format string) (*analysis.Artifact, error)
}

// FileSaver triggers the save of one file on the user's side
type FileSaver interface {
	Save(ctx context.Context, artifact analysis.Artifact) error
}
