package hopping

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lcalzada-xor/dgramsniff/internal/core/domain"
)

// DefaultDwell is how long the scheduler listens on one channel.
const DefaultDwell = 60 * time.Second

// Scheduler rotates the listening channel through 1..14 on a fixed dwell.
// Tick is driven by the main loop; the capture path only reads
// CurrentChannel, which is lock free.
type Scheduler struct {
	Interface string
	Dwell     time.Duration

	switcher   ChannelSwitcher
	current    atomic.Int32
	state      AtomicState
	mu         sync.Mutex // Protects dwellStart and errorCount
	dwellStart time.Time
	errorCount int
}

// NewScheduler creates a scheduler parked on start. The dwell clock starts
// at now. A nil switcher makes Apply a no-op, for record-only setups.
func NewScheduler(iface string, dwell time.Duration, start int, now time.Time, switcher ChannelSwitcher) (*Scheduler, error) {
	if !domain.ValidChannel(start) {
		return nil, fmt.Errorf("start channel %d: %w", start, domain.ErrInvalidChannel)
	}
	if dwell <= 0 {
		dwell = DefaultDwell
	}
	s := &Scheduler{
		Interface:  iface,
		Dwell:      dwell,
		switcher:   switcher,
		dwellStart: now,
	}
	s.current.Store(int32(start))
	return s, nil
}

// CurrentChannel returns the channel captures are credited to.
func (s *Scheduler) CurrentChannel() int {
	return int(s.current.Load())
}

// State returns the scheduler lifecycle state.
func (s *Scheduler) State() SchedulerState {
	return s.state.Get()
}

// DwellStart returns when the current channel was entered.
func (s *Scheduler) DwellStart() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dwellStart
}

// Start tunes the radio to the current channel and begins scanning.
func (s *Scheduler) Start(now time.Time) error {
	if !s.state.CompareAndSwap(StateIdle, StateScanning) {
		return fmt.Errorf("scheduler on %s is %s", s.Interface, s.State())
	}
	s.mu.Lock()
	s.dwellStart = now
	s.mu.Unlock()

	slog.Info("Starting channel scan", "interface", s.Interface, "channel", s.CurrentChannel(), "dwell", s.Dwell)
	// Initial tune
	return s.Apply(domain.ChannelChanged{Channel: s.CurrentChannel(), At: now})
}

// Stop ends scanning. Tick is a no-op afterwards.
func (s *Scheduler) Stop() {
	if s.state.Get() != StateStopped {
		s.state.Set(StateStopped)
		slog.Info("Stopping channel scan", "interface", s.Interface, "channel", s.CurrentChannel())
	}
}

// Tick advances to the next channel once the dwell has elapsed and reports
// the change. It does not touch the radio; the caller hands the event to
// Apply. A scheduler that was never started still ticks.
func (s *Scheduler) Tick(now time.Time) (domain.ChannelChanged, bool) {
	if s.state.Get() == StateStopped {
		return domain.ChannelChanged{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.dwellStart) < s.Dwell {
		return domain.ChannelChanged{}, false
	}

	next := domain.NextChannel(s.CurrentChannel())
	s.current.Store(int32(next))
	s.dwellStart = now
	return domain.ChannelChanged{Channel: next, At: now}, true
}

// Apply asks the switcher to retune. Persistent failures are logged on the
// first error and every tenth after it; the scheduler keeps rotating.
func (s *Scheduler) Apply(ev domain.ChannelChanged) error {
	if s.switcher == nil {
		return nil
	}

	err := s.switcher.SetChannel(ev.Channel)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.errorCount++
		if s.errorCount == 1 || s.errorCount%10 == 0 {
			slog.Warn("Failed to set channel", "channel", ev.Channel, "error", err, "consecutive_errors", s.errorCount)
		}
		return err
	}
	if s.errorCount > 0 {
		slog.Info("Channel switching recovered", "after_errors", s.errorCount)
		s.errorCount = 0
	}
	slog.Debug("Channel changed", "interface", s.Interface, "channel", ev.Channel)
	return nil
}

// ErrorCount returns the number of consecutive failed retunes.
func (s *Scheduler) ErrorCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errorCount
}

// Status is a read-only view for the API.
type Status struct {
	Interface      string        `json:"interface"`
	State          string        `json:"state"`
	CurrentChannel int           `json:"current_channel"`
	Dwell          time.Duration `json:"dwell_ns"`
	DwellStart     time.Time     `json:"dwell_start"`
	NextChangeAt   time.Time     `json:"next_change_at"`
}

// Status returns the current scan state.
func (s *Scheduler) Status() Status {
	start := s.DwellStart()
	return Status{
		Interface:      s.Interface,
		State:          s.State().String(),
		CurrentChannel: s.CurrentChannel(),
		Dwell:          s.Dwell,
		DwellStart:     start,
		NextChangeAt:   start.Add(s.Dwell),
	}
}
