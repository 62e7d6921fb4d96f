package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// FramesCaptured counts capture buffers handed to the aggregator, by layout
	FramesCaptured = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dgramsniff",
			Name:      "frames_captured_total",
			Help:      "Total number of capture buffers recorded, by buffer variant",
		},
		[]string{"variant"},
	)

	// FramesByCategory counts decoded frames by 802.11 type
	FramesByCategory = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dgramsniff",
			Name:      "frames_by_category_total",
			Help:      "Total number of frames recorded, by frame category",
		},
		[]string{"category"},
	)

	// DecodeAnomalies counts non-fatal decode findings
	DecodeAnomalies = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dgramsniff",
			Name:      "decode_anomalies_total",
			Help:      "Total number of decode anomalies, by kind",
		},
		[]string{"kind"},
	)

	// RadioFlags counts buffers the radio flagged as A-MPDU or HT receptions
	RadioFlags = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dgramsniff",
			Name:      "radio_flags_total",
			Help:      "Total number of capture buffers carrying a receive-path flag, by flag",
		},
		[]string{"flag"},
	)

	// RecordsDropped counts telemetry records lost to a full capture queue
	RecordsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "dgramsniff",
			Name:      "records_dropped_total",
			Help:      "Total number of telemetry records dropped because the queue was full",
		},
	)

	// ChannelChanges counts scheduler advances
	ChannelChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dgramsniff",
			Name:      "channel_changes_total",
			Help:      "Total number of listening channel changes",
		},
		[]string{"interface", "result"},
	)

	// CurrentChannel is the channel captures are credited to
	CurrentChannel = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "dgramsniff",
			Name:      "current_channel",
			Help:      "Channel the radio is listening on",
		},
	)

	// SignalStrength observes RSSI of captures carrying radio metadata
	SignalStrength = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dgramsniff",
			Name:      "rssi_dbm",
			Help:      "RSSI of captured frames in dBm",
			Buckets:   prometheus.LinearBuckets(-100, 10, 9),
		},
		[]string{"channel"},
	)

	// ReportsEmitted counts reports handed to sinks
	ReportsEmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dgramsniff",
			Name:      "reports_emitted_total",
			Help:      "Total number of telemetry reports emitted, by kind and reason",
		},
		[]string{"kind", "reason"},
	)

	// Ensure metrics are only registered once
	once sync.Once
)

// InitMetrics registers all metrics with the global Prometheus registry
// This function is idempotent and can be called multiple times safely
func InitMetrics() {
	once.Do(func() {
		// Register metrics, ignoring errors if already registered
		// This prevents panics when metrics are already in the registry
		prometheus.DefaultRegisterer.Register(FramesCaptured)
		prometheus.DefaultRegisterer.Register(FramesByCategory)
		prometheus.DefaultRegisterer.Register(DecodeAnomalies)
		prometheus.DefaultRegisterer.Register(RadioFlags)
		prometheus.DefaultRegisterer.Register(RecordsDropped)
		prometheus.DefaultRegisterer.Register(ChannelChanges)
		prometheus.DefaultRegisterer.Register(CurrentChannel)
		prometheus.DefaultRegisterer.Register(SignalStrength)
		prometheus.DefaultRegisterer.Register(ReportsEmitted)
	})
}
