package monitor

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/lcalzada-xor/dgramsniff/internal/core/domain"
	"github.com/lcalzada-xor/dgramsniff/internal/core/services/aggregator"
	"github.com/lcalzada-xor/dgramsniff/internal/core/services/reporting"
	"github.com/lcalzada-xor/dgramsniff/internal/telemetry"
)

// DefaultPollInterval is how often the main loop ticks the scanner and checks
// the report trigger.
const DefaultPollInterval = 100 * time.Millisecond

// Scanner is the channel scheduler as seen by the main loop.
type Scanner interface {
	Tick(now time.Time) (domain.ChannelChanged, bool)
	Apply(ev domain.ChannelChanged) error
	CurrentChannel() int
}

// DefaultOutboxSize is how many built reports may wait for the publisher.
const DefaultOutboxSize = 8

// Publisher snapshots and publishes reports. Build runs on the main loop;
// Publish runs on the publishing goroutine and may block on sink I/O.
type Publisher interface {
	Build(kind domain.ReportKind, reason string) domain.Report
	Publish(ctx context.Context, rep domain.Report) error
}

// ChannelListener is told about every channel change, after the radio was
// asked to retune.
type ChannelListener func(ev domain.ChannelChanged)

// Monitor is the main loop. It is the only goroutine that mutates the
// Aggregator: records arrive through the Queue from the capture callback.
// Reports are snapshotted on the loop and published from a separate
// goroutine, so a slow sink never stalls aggregation.
type Monitor struct {
	Interface string

	queue    *aggregator.Queue
	agg      *aggregator.Aggregator
	scanner  Scanner
	trigger  *reporting.Trigger
	reporter Publisher
	outbox   chan domain.Report
	poll     time.Duration
	now      func() time.Time

	listeners   []ChannelListener
	lastDropped uint64
}

// New wires the main loop.
func New(iface string, queue *aggregator.Queue, agg *aggregator.Aggregator, scanner Scanner, trigger *reporting.Trigger, reporter Publisher, poll time.Duration) *Monitor {
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	return &Monitor{
		Interface: iface,
		queue:     queue,
		agg:       agg,
		scanner:   scanner,
		trigger:   trigger,
		reporter:  reporter,
		outbox:    make(chan domain.Report, DefaultOutboxSize),
		poll:      poll,
		now:       time.Now,
	}
}

// OnChannelChange registers a listener for scheduler advances.
func (m *Monitor) OnChannelChange(l ChannelListener) {
	m.listeners = append(m.listeners, l)
}

// Run processes records and polls until ctx is cancelled. Reports still
// waiting for the publisher are published before Run returns.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.poll)
	defer ticker.Stop()

	stop := make(chan struct{})
	published := make(chan struct{})
	go func() {
		defer close(published)
		m.publishLoop(context.WithoutCancel(ctx), stop)
	}()

	slog.Info("Monitor loop started", "interface", m.Interface, "poll", m.poll)
	telemetry.CurrentChannel.Set(float64(m.scanner.CurrentChannel()))

	for {
		select {
		case <-ctx.Done():
			m.Drain()
			close(stop)
			<-published
			slog.Info("Monitor loop stopped", "records", m.agg.Total(), "dropped", m.queue.Dropped())
			return nil
		case rec := <-m.queue.Records():
			m.apply(rec)
		case <-ticker.C:
			m.Poll(m.now())
		}
	}
}

func (m *Monitor) publishLoop(ctx context.Context, stop <-chan struct{}) {
	for {
		select {
		case rep := <-m.outbox:
			m.publish(ctx, rep)
		case <-stop:
			m.Flush(ctx)
			return
		}
	}
}

// Flush publishes every report waiting in the outbox and returns how many.
func (m *Monitor) Flush(ctx context.Context) int {
	n := 0
	for {
		select {
		case rep := <-m.outbox:
			m.publish(ctx, rep)
			n++
		default:
			return n
		}
	}
}

func (m *Monitor) publish(ctx context.Context, rep domain.Report) {
	if err := m.reporter.Publish(ctx, rep); err != nil {
		slog.Error("Failed to publish report", "id", rep.ID, "kind", rep.Kind, "reason", rep.Reason, "error", err)
	}
}

// Drain applies every record currently queued without blocking.
func (m *Monitor) Drain() int {
	n := 0
	for {
		select {
		case rec := <-m.queue.Records():
			m.apply(rec)
			n++
		default:
			return n
		}
	}
}

// Poll runs one main loop step: pending records are applied, the scanner is
// ticked and a due report is snapshotted and queued for publishing.
func (m *Monitor) Poll(now time.Time) {
	m.Drain()
	m.reportDrops()

	if ev, changed := m.scanner.Tick(now); changed {
		result := "ok"
		if err := m.scanner.Apply(ev); err != nil {
			result = "error"
		}
		telemetry.ChannelChanges.WithLabelValues(m.Interface, result).Inc()
		telemetry.CurrentChannel.Set(float64(ev.Channel))
		for _, l := range m.listeners {
			l(ev)
		}
	}

	if req, ok := m.trigger.Check(); ok {
		rep := m.reporter.Build(req.Kind, req.Reason)
		select {
		case m.outbox <- rep:
		default:
			slog.Warn("Report publisher busy, report discarded", "id", rep.ID, "kind", rep.Kind, "reason", rep.Reason)
		}
	}
}

func (m *Monitor) apply(rec domain.TelemetryRecord) {
	if err := m.agg.Apply(rec); err != nil {
		slog.Debug("Discarding telemetry record", "error", err)
		return
	}
	m.trigger.Observe(1)

	telemetry.FramesCaptured.WithLabelValues(rec.Variant.String()).Inc()
	if rec.Category.Category != domain.CategoryUnknown {
		telemetry.FramesByCategory.WithLabelValues(rec.Category.Category.String()).Inc()
	}
	if a := rec.Category.Anomalies; a != 0 {
		for _, k := range domain.AllAnomalies {
			if a.Has(k) {
				telemetry.DecodeAnomalies.WithLabelValues(k.String()).Inc()
			}
		}
	}
	if rec.AMPDU {
		telemetry.RadioFlags.WithLabelValues("ampdu").Inc()
	}
	if rec.HT {
		telemetry.RadioFlags.WithLabelValues("ht").Inc()
	}
	if rec.HasRx {
		telemetry.SignalStrength.WithLabelValues(strconv.Itoa(rec.Channel)).Observe(float64(rec.RSSI))
	}
}

func (m *Monitor) reportDrops() {
	d := m.queue.Dropped()
	if d == m.lastDropped {
		return
	}
	delta := d - m.lastDropped
	m.lastDropped = d
	telemetry.RecordsDropped.Add(float64(delta))
	slog.Warn("Capture queue overflow, telemetry records dropped", "dropped", delta, "total_dropped", d)
}
