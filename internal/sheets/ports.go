package sheets

import (
	"context"

	"jangbu/internal/core"
)

// Ports for outbound adapters.
type (
	// ReportWriter mirrors a finalized daily report to a spreadsheet.
	ReportWriter interface {
		AppendReport(ctx context.Context, r core.DailyReport) (rowRef string, err error)
	}
)
