package capture

import (
	"github.com/lcalzada-xor/dgramsniff/internal/adapters/sniffer/parser"
	"github.com/lcalzada-xor/dgramsniff/internal/core/domain"
	"github.com/lcalzada-xor/dgramsniff/internal/core/ports"
)

// RecordQueue is the non-blocking hand-off to the main loop.
type RecordQueue interface {
	Offer(rec domain.TelemetryRecord) bool
}

// Sniffer is the capture-delivery side of the pipeline. OnFrameCaptured runs
// in the radio's receive context: it decodes the buffer and enqueues one
// record, with no I/O, no logging and no locks.
type Sniffer struct {
	Interface string

	handler *parser.PacketHandler
	queue   RecordQueue
	channel ports.ChannelReader
}

// NewSniffer creates the capture bridge. Records are credited to the
// channel reported by channel at delivery time.
func NewSniffer(iface string, handler *parser.PacketHandler, queue RecordQueue, channel ports.ChannelReader) *Sniffer {
	return &Sniffer{
		Interface: iface,
		handler:   handler,
		queue:     queue,
		channel:   channel,
	}
}

// Attach registers the sniffer as the radio's capture callback.
func (s *Sniffer) Attach(radio ports.Radio) {
	radio.RegisterCaptureCallback(s.OnFrameCaptured)
}

// OnFrameCaptured handles one datagram. length is the layout discriminator;
// a length larger than buf is clamped so nothing past the buffer is read.
func (s *Sniffer) OnFrameCaptured(buf []byte, length uint16) {
	n := int(length)
	if n > len(buf) {
		n = len(buf)
	}
	rec := s.handler.HandlePacket(buf[:n], s.channel.CurrentChannel())
	s.queue.Offer(rec)
}
