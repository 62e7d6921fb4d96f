package ports

import (
	"context"

	"github.com/lcalzada-xor/dgramsniff/internal/core/domain"
)

// ReportSink receives every emitted report.
type ReportSink interface {
	Publish(ctx context.Context, report domain.Report) error
}

// ReportStore defines the behavior for report persistence.
type ReportStore interface {
	ReportSink

	// GetReport retrieves an archived report by ID.
	GetReport(ctx context.Context, id string) (domain.Report, error)

	// ListReports returns the newest reports first.
	ListReports(ctx context.Context, limit int) ([]domain.ReportSummaryInfo, error)

	// Close closes the storage connection.
	Close() error
}
