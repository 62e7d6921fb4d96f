package parser

import (
	"encoding/binary"

	"github.com/lcalzada-xor/dgramsniff/internal/core/domain"
)

// Frame control first bytes (version 0)
const (
	fcAssocReq  = 0x00
	fcProbeReq  = 0x40
	fcBeacon    = 0x80
	fcDisassoc  = 0xA0
	fcDeauth    = 0xC0
	fcData      = 0x08
	fcACK       = 0xD4
	fcReserved  = 0x0C
	flagToDS    = 0x01
	flagFromDS  = 0x02
	flagRetry   = 0x08
	flagProtect = 0x40
)

var (
	apMAC  = domain.MAC{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}
	staMAC = domain.MAC{0x00, 0x22, 0x33, 0x44, 0x55, 0x66}
	dstMAC = domain.MAC{0x00, 0x11, 0x11, 0x11, 0x11, 0x11}
	srcMAC = domain.MAC{0x00, 0x99, 0x99, 0x99, 0x99, 0x99}
)

// frameBuilder writes raw 802.11 bytes the way a radio would hand them over.
type frameBuilder struct {
	data []byte
}

func newFrame(fc0, flags byte, a1, a2, a3 domain.MAC) *frameBuilder {
	h := make([]byte, domain.MacHeaderLen)
	h[0] = fc0
	h[1] = flags
	// Duration 0x013a
	h[2], h[3] = 0x3a, 0x01
	copy(h[4:], a1[:])
	copy(h[10:], a2[:])
	copy(h[16:], a3[:])
	// Seq 42, fragment 3
	binary.LittleEndian.PutUint16(h[22:], 42<<4|3)
	return &frameBuilder{data: h}
}

func (fb *frameBuilder) addr4(a4 domain.MAC) *frameBuilder {
	fb.data = append(fb.data, a4[:]...)
	return fb
}

func (fb *frameBuilder) beaconFixed() *frameBuilder {
	fixed := []byte{
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // Timestamp
		0x64, 0x00, // Interval 100
		0x01, 0x00, // Caps: ESS
	}
	fb.data = append(fb.data, fixed...)
	return fb
}

func (fb *frameBuilder) ie(id byte, val []byte) *frameBuilder {
	fb.data = append(fb.data, id, byte(len(val)))
	fb.data = append(fb.data, val...)
	return fb
}

func (fb *frameBuilder) raw(b ...byte) *frameBuilder {
	fb.data = append(fb.data, b...)
	return fb
}

func (fb *frameBuilder) bytes() []byte {
	return fb.data
}

func testRx() domain.RxControl {
	return domain.RxControl{RSSI: -61, Rate: 11, LegacyLength: 180, Channel: 6}
}

// largeCapture lays frame out as the 128-byte single frame buffer.
func largeCapture(frame []byte) []byte {
	buf := make([]byte, domain.LargeBufferLen)
	rx := EncodeRxControl(testRx())
	copy(buf, rx[:])
	copy(buf[12:124], frame)
	binary.LittleEndian.PutUint16(buf[124:], 1)
	binary.LittleEndian.PutUint16(buf[126:], uint16(len(frame)))
	return buf
}

// smallCapture lays frame out as the 60-byte buffer.
func smallCapture(frame []byte, count uint16) []byte {
	buf := make([]byte, domain.SmallBufferLen)
	rx := EncodeRxControl(testRx())
	copy(buf, rx[:])
	copy(buf[12:48], frame)
	binary.LittleEndian.PutUint16(buf[48:], count)
	binary.LittleEndian.PutUint16(buf[50:], uint16(len(frame)))
	if len(frame) >= 24 {
		copy(buf[52:54], frame[22:24])
		copy(buf[54:60], frame[16:22])
	}
	return buf
}
