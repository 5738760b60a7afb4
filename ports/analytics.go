package ports

import (
	"context"

	"datapilot/domain/analysis"
	"datapilot/domain/core"
)

// AnalyticsBackend is the external service that does the real data work.
// Implementations: the HTTP API client and the simulated backend.
type AnalyticsBackend interface {
	Upload(ctx context.Context, role core.RoleID, file analysis.Upload) (*analysis.Dataset, error)
	Clean(ctx context.Context, role core.RoleID, operation string, rows []analysis.Row) ([]analysis.Row, error)
	Analyze(ctx context.Context, role core.RoleID, task core.TaskID, payload analysis.TaskPayload) (*analysis.Chart, error)
	Insight(ctx context.Context, role core.RoleID, question string) (string, error)
	Report(ctx context.Context, role core.RoleID, format string) ([]byte, error)
	ChartExport(ctx context.Context, chartID string) ([]byte, error)
	Preview(ctx context.Context, role core.RoleID) (*analysis.Dataset, error)
}
