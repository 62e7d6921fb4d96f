package radio

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lcalzada-xor/dgramsniff/internal/core/domain"
	"github.com/lcalzada-xor/dgramsniff/internal/core/ports"
	"github.com/lcalzada-xor/dgramsniff/internal/mock"
)

// DefaultMockRate is the number of frames per second MockRadio emits.
const DefaultMockRate = 200

// MockRadio synthesises traffic for the scenario's devices on whichever
// channel it is tuned to.
type MockRadio struct {
	Scenario string
	Rate     int

	mu  sync.Mutex
	gen *mock.DataGenerator
	d   deliverer
}

var _ ports.Radio = (*MockRadio)(nil)

// NewMockRadio builds the scenario up front. seed 0 uses the clock.
func NewMockRadio(scenario string, rate int, seed int64) *MockRadio {
	if rate <= 0 {
		rate = DefaultMockRate
	}
	gen := mock.NewDataGenerator(seed)
	gen.GenerateScenario(scenario)
	r := &MockRadio{Scenario: scenario, Rate: rate, gen: gen}
	r.d.channel.Store(1)
	return r
}

func (r *MockRadio) SetChannel(ch int) error {
	if !domain.ValidChannel(ch) {
		return fmt.Errorf("set channel %d: %w", ch, domain.ErrInvalidChannel)
	}
	r.d.channel.Store(int32(ch))
	return nil
}

func (r *MockRadio) SetPromiscuousMode(bool) error { return nil }

func (r *MockRadio) RegisterCaptureCallback(fn ports.CaptureCallback) {
	r.d.register(fn)
}

// Emit delivers one synthetic frame on the current channel. It returns false
// when nothing transmits there.
func (r *MockRadio) Emit() bool {
	cb := r.d.callback()
	if cb == nil {
		return false
	}
	ch := int(r.d.channel.Load())

	r.mu.Lock()
	f, ok := r.gen.Next(ch)
	r.mu.Unlock()
	if !ok {
		return false
	}

	rx := domain.RxControl{
		RSSI:         f.RSSI,
		Rate:         f.Rate,
		LegacyLength: uint16(min(len(f.Bytes), 0xfff)),
		Channel:      uint8(ch),
	}
	var ampdu uint16 = 1
	if f.Kind == mock.KindData && f.RSSI > -50 {
		ampdu = 2
	}
	out := Reframe(r.d.buf[:], f.Bytes, rx, ampdu)
	cb(out, uint16(len(out)))
	r.d.delivered.Add(1)
	return true
}

// Run emits frames at Rate until ctx is cancelled.
func (r *MockRadio) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Second / time.Duration(r.Rate))
	defer ticker.Stop()

	slog.Info("Mock radio started", "scenario", r.Scenario, "rate", r.Rate,
		"aps", len(r.gen.GetAPs()), "stations", len(r.gen.GetStations()))
	for {
		select {
		case <-ctx.Done():
			slog.Info("Mock radio stopped", "delivered", r.d.delivered.Load())
			return nil
		case <-ticker.C:
			r.Emit()
		}
	}
}
