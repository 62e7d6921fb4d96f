package reporting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lcalzada-xor/dgramsniff/internal/core/domain"
	"github.com/lcalzada-xor/dgramsniff/internal/core/ports"
	"github.com/lcalzada-xor/dgramsniff/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Reporter snapshots the aggregator into a domain.Report and hands it to
// every registered sink.
type Reporter struct {
	stats   ports.StatsProvider
	channel ports.ChannelReader
	drops   ports.DropCounter
	sinks   []ports.ReportSink
	tracer  trace.Tracer
	now     func() time.Time
}

// NewReporter creates a reporter. channel and drops may be nil.
func NewReporter(stats ports.StatsProvider, channel ports.ChannelReader, drops ports.DropCounter, sinks ...ports.ReportSink) *Reporter {
	return &Reporter{
		stats:   stats,
		channel: channel,
		drops:   drops,
		sinks:   sinks,
		tracer:  telemetry.Tracer("reporting"),
		now:     time.Now,
	}
}

// AddSink registers another report consumer.
func (r *Reporter) AddSink(s ports.ReportSink) {
	r.sinks = append(r.sinks, s)
}

// Build takes a snapshot without publishing it.
func (r *Reporter) Build(kind domain.ReportKind, reason string) domain.Report {
	rep := domain.Report{
		ID:        uuid.New().String(),
		Kind:      kind,
		Reason:    reason,
		CreatedAt: r.now(),
		Channels:  r.stats.SnapshotAll(),
	}
	if r.channel != nil {
		rep.CurrentChannel = r.channel.CurrentChannel()
	}
	if r.drops != nil {
		rep.Dropped = r.drops.Dropped()
	}
	return rep
}

// Emit builds a report and publishes it to all sinks.
func (r *Reporter) Emit(ctx context.Context, kind domain.ReportKind, reason string) (domain.Report, error) {
	if !kind.Valid() {
		return domain.Report{}, fmt.Errorf("unknown report kind %q", kind)
	}
	rep := r.Build(kind, reason)
	return rep, r.Publish(ctx, rep)
}

// Publish hands a built report to every sink. A failing sink does not stop
// the others; their errors are joined.
func (r *Reporter) Publish(ctx context.Context, rep domain.Report) error {
	ctx, span := r.tracer.Start(ctx, "report.emit")
	defer span.End()

	span.SetAttributes(
		attribute.String("report.id", rep.ID),
		attribute.String("report.kind", string(rep.Kind)),
		attribute.String("report.reason", rep.Reason),
		attribute.Int64("report.total", int64(rep.Aggregate().Total)),
		attribute.Int("report.channel", rep.CurrentChannel),
	)

	var errs []error
	for _, s := range r.sinks {
		if err := s.Publish(ctx, rep); err != nil {
			errs = append(errs, err)
		}
	}

	telemetry.ReportsEmitted.WithLabelValues(string(rep.Kind), rep.Reason).Inc()

	if err := errors.Join(errs...); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "sink failure")
		slog.Warn("Report sinks failed", "id", rep.ID, "error", err)
		return err
	}
	slog.Debug("Report emitted", "id", rep.ID, "kind", rep.Kind, "reason", rep.Reason, "total", rep.Aggregate().Total)
	return nil
}
