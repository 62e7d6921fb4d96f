package aggregator

import (
	"fmt"
	"sync"

	"github.com/lcalzada-xor/dgramsniff/internal/core/domain"
)

// Aggregator owns the per-channel telemetry counters. Slot 0 is the
// aggregate of slots 1..14 and is updated in the same critical section as
// the channel slot, so readers never see the two disagree.
type Aggregator struct {
	mu    sync.RWMutex
	slots [domain.MaxChannel + 1]domain.ChannelStats
	ssids [domain.MaxChannel + 1]*SSIDSet
}

// New creates an Aggregator with zeroed counters.
func New(maxSSIDs int) *Aggregator {
	a := &Aggregator{}
	for i := range a.slots {
		a.slots[i].Channel = i
		a.ssids[i] = NewSSIDSet(maxSSIDs)
	}
	return a
}

// Record credits one capture to channel and to the aggregate slot.
func (a *Aggregator) Record(channel int, bucket domain.LengthBucket, cat domain.FrameCategory) error {
	return a.record(domain.TelemetryRecord{Channel: channel, Bucket: bucket, Category: cat})
}

// Apply records a TelemetryRecord produced by the capture path, including
// its receive-path flags.
func (a *Aggregator) Apply(rec domain.TelemetryRecord) error {
	return a.record(rec)
}

func (a *Aggregator) record(rec domain.TelemetryRecord) error {
	channel, cat := rec.Channel, rec.Category
	if !domain.ValidChannel(channel) {
		return fmt.Errorf("record on channel %d: %w", channel, domain.ErrInvalidChannel)
	}

	var ssid string
	if cat.SSID.Present {
		ssid = cat.SSID.String()
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for _, i := range [2]int{channel, 0} {
		a.slots[i].Apply(rec.Bucket, cat)
		a.slots[i].ApplyRadio(rec.AMPDU, rec.HT)
	}
	if ssid != "" {
		a.ssids[channel].Add(ssid)
		a.ssids[0].Add(ssid)
	}
	return nil
}

// Snapshot returns a copy of one slot (0 for the aggregate).
func (a *Aggregator) Snapshot(channel int) (domain.ChannelStats, error) {
	if channel < 0 || channel > domain.MaxChannel {
		return domain.ChannelStats{}, fmt.Errorf("snapshot channel %d: %w", channel, domain.ErrInvalidChannel)
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snapshotLocked(channel), nil
}

// SnapshotAll returns copies of every slot, aggregate first.
func (a *Aggregator) SnapshotAll() []domain.ChannelStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]domain.ChannelStats, len(a.slots))
	for i := range a.slots {
		out[i] = a.snapshotLocked(i)
	}
	return out
}

func (a *Aggregator) snapshotLocked(i int) domain.ChannelStats {
	s := a.slots[i]
	s.SSIDs = a.ssids[i].List()
	return s
}

// Total returns the aggregate record count.
func (a *Aggregator) Total() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.slots[0].Total
}
