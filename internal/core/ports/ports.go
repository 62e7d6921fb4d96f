package ports

import (
	"context"

	"github.com/lcalzada-xor/dgramsniff/internal/core/domain"
)

// CaptureCallback receives one capture buffer from the radio. buf is only
// valid for the duration of the call; length is its layout discriminator.
type CaptureCallback func(buf []byte, length uint16)

// Radio is the hardware collaborator: it owns the promiscuous receive path
// and the channel tuner.
type Radio interface {
	// SetChannel tunes the receiver to ch (1..14).
	SetChannel(ch int) error
	// SetPromiscuousMode enables or disables capture of all frames.
	SetPromiscuousMode(enabled bool) error
	// RegisterCaptureCallback installs the callback invoked once per datagram.
	// Called once at startup, before Run.
	RegisterCaptureCallback(fn CaptureCallback)
	// Run delivers captures until ctx is cancelled or the source is exhausted.
	Run(ctx context.Context) error
}

// ChannelReader exposes the channel captures are credited to.
type ChannelReader interface {
	CurrentChannel() int
}

// StatsProvider gives read-only access to the channel telemetry.
type StatsProvider interface {
	Snapshot(channel int) (domain.ChannelStats, error)
	SnapshotAll() []domain.ChannelStats
}

// DropCounter reports telemetry records lost between capture and aggregation.
type DropCounter interface {
	Dropped() uint64
}

// ReportRequester queues an operator report request.
type ReportRequester interface {
	Request(kind domain.ReportKind, reason string) bool
}
