package radio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
	"github.com/lcalzada-xor/dgramsniff/internal/core/ports"
)

// Backlog is the fill level of whatever the capture callback feeds.
type Backlog interface {
	Len() int
	Cap() int
}

// deliverer turns radiotap packets into capture buffers and hands them to the
// registered callback. It owns the single reused capture buffer, like the
// hardware does.
type deliverer struct {
	mu      sync.RWMutex
	cb      ports.CaptureCallback
	buf     [256]byte
	channel atomic.Int32
	// filter drops packets whose radiotap channel is not the current one
	filter bool
	// follow retunes to each packet's radiotap channel before delivering it
	follow bool
	// backlog, when set, holds delivery until it has room
	backlog Backlog

	delivered atomic.Uint64
	skipped   atomic.Uint64
}

func (d *deliverer) register(fn ports.CaptureCallback) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cb = fn
}

func (d *deliverer) callback() ports.CaptureCallback {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cb
}

// deliver decodes one radiotap packet. It returns false when the packet was
// skipped.
func (d *deliverer) deliver(ctx context.Context, data []byte) bool {
	cb := d.callback()
	if cb == nil {
		return false
	}
	c, err := DecodeRadioTap(data)
	if err != nil {
		d.skipped.Add(1)
		return false
	}
	cur := int(d.channel.Load())
	switch {
	case c.Channel == 0:
		c.Rx.Channel = uint8(cur)
	case d.follow:
		d.channel.Store(int32(c.Channel))
	case d.filter && c.Channel != cur:
		d.skipped.Add(1)
		return false
	}
	if d.backlog != nil && !d.waitForRoom(ctx) {
		return false
	}

	out := Reframe(d.buf[:], c.Frame, c.Rx, 1)
	cb(out, uint16(len(out)))
	d.delivered.Add(1)
	return true
}

// pump reads packets from src until ctx is done or src is exhausted.
func (d *deliverer) pump(ctx context.Context, src gopacket.PacketDataSource) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		data, _, err := src.ReadPacketData()
		switch {
		case err == nil:
			d.deliver(ctx, data)
		case errors.Is(err, pcap.NextErrorTimeoutExpired):
			continue
		case errors.Is(err, io.EOF), errors.Is(err, pcap.NextErrorNoMorePackets):
			return nil
		default:
			return fmt.Errorf("read packet: %w", err)
		}
	}
}

// waitForRoom blocks until the backlog can take one more record. pump is the
// only producer, so the slot cannot be taken before the callback runs.
func (d *deliverer) waitForRoom(ctx context.Context) bool {
	for d.backlog.Len() >= d.backlog.Cap() {
		t := time.NewTimer(time.Millisecond)
		select {
		case <-ctx.Done():
			t.Stop()
			return false
		case <-t.C:
		}
	}
	return true
}

func checkLinkType(lt layers.LinkType) error {
	if lt != layers.LinkTypeIEEE80211Radio {
		return fmt.Errorf("unsupported link type %s, need 802.11 with radiotap (monitor mode)", lt)
	}
	return nil
}
