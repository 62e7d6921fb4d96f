package parser

import (
	"github.com/lcalzada-xor/dgramsniff/internal/core/domain"
)

// Capture is everything decoded from one capture buffer. It holds no
// reference to the buffer.
type Capture struct {
	Length     int
	Layout     domain.BufferLayout
	Rx         domain.RxControl
	HasRx      bool
	Header     domain.MacHeader
	HasHeader  bool
	Category   domain.FrameCategory
	Trailer    domain.CaptureTrailer
	HasTrailer bool
}

// PacketHandler runs the classify -> decode -> categorize pipeline on raw
// capture buffers. It keeps no state between calls, so one handler can be
// shared by any number of capture callbacks.
type PacketHandler struct {
	// DecodeFrames disables header decoding when false ("record-only"):
	// only length buckets and totals advance.
	DecodeFrames bool
}

// NewPacketHandler creates a new PacketHandler.
func NewPacketHandler(decodeFrames bool) *PacketHandler {
	return &PacketHandler{DecodeFrames: decodeFrames}
}

// Decode classifies buf by its length and decodes whatever the layout holds.
// Decode failures are folded into c.Category.Anomalies; Decode never panics.
func (h *PacketHandler) Decode(buf []byte) (c Capture) {
	defer func() {
		if r := recover(); r != nil {
			// Return what we know about the buffer and move on
			c = Capture{Length: len(buf), Layout: LayoutFor(domain.VariantUnclassified)}
			c.Category.Anomalies = domain.AnomalyRecovered
		}
	}()

	c.Length = len(buf)
	c.Layout = LayoutFor(ClassifyBuffer(len(buf)))

	if c.Layout.Variant == domain.VariantUnclassified {
		// Undefined layout, nothing is safe to read.
		return c
	}
	c.Rx, c.HasRx = decodeRx(buf)
	if !c.Layout.Variant.Decodable() {
		return c
	}
	c.Trailer, c.HasTrailer = DecodeTrailer(buf, c.Layout)
	if !h.DecodeFrames {
		return c
	}

	frame := buf[:c.Layout.FrameEnd]
	hdr, err := DecodeHeader(frame, c.Layout.HeaderOffset)
	if err != nil {
		c.Category.Anomalies |= domain.AnomalyTooShort
		return c
	}
	c.Header = hdr
	c.HasHeader = true

	bodyOffset := -1
	if c.Layout.CarriesBody {
		bodyOffset = c.Layout.HeaderOffset + hdr.Len()
	}
	c.Category = ClassifyFrame(hdr.FrameControl, frame, bodyOffset)
	return c
}

func decodeRx(buf []byte) (domain.RxControl, bool) {
	rx, err := DecodeRxControl(buf)
	return rx, err == nil
}

// HandlePacket decodes buf and returns the telemetry record to credit to
// channel. It does no I/O and does not allocate, so it is safe to call from
// the capture callback.
func (h *PacketHandler) HandlePacket(buf []byte, channel int) domain.TelemetryRecord {
	c := h.Decode(buf)
	return domain.TelemetryRecord{
		Channel:  channel,
		Bucket:   domain.BucketForLength(c.Length),
		Variant:  c.Layout.Variant,
		Category: c.Category,
		RSSI:     c.Rx.RSSI,
		HasRx:    c.HasRx,
		AMPDU:    c.HasTrailer && c.Trailer.IsAMPDU(),
		HT:       c.HasRx && c.Rx.Is80211n(),
	}
}
