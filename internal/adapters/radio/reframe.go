package radio

import (
	"encoding/binary"
	"errors"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/lcalzada-xor/dgramsniff/internal/adapters/sniffer/parser"
	"github.com/lcalzada-xor/dgramsniff/internal/core/domain"
)

const (
	frameOffset     = domain.RxControlLen
	largeFrameBytes = 112 // 128 - RxControl - count/len
	smallFrameBytes = 36
)

// Reframe lays an 802.11 frame (no FCS) out the way the promiscuous-mode
// callback delivers it:
//
//   - management frames: 128 bytes, frame bytes truncated to 112
//   - other frames with a full MAC header: 60 bytes, first 36 frame bytes
//     plus count/len/seq/addr3
//   - anything shorter than a MAC header: the 12-byte RxControl only
//
// dst must hold at least 128 bytes; it is overwritten and the filled prefix
// is returned. ampdu is the number of packets the buffer stands for.
func Reframe(dst, frame []byte, rx domain.RxControl, ampdu uint16) []byte {
	buf := dst[:domain.LargeBufferLen]
	clear(buf)

	if ampdu == 0 {
		ampdu = 1
	}
	rx.AMPDUCount = uint8(min(ampdu, 255))
	prefix := parser.EncodeRxControl(rx)
	copy(buf, prefix[:])

	if len(frame) < domain.MacHeaderLen {
		return buf[:domain.RxControlLen]
	}

	fc := parser.DecodeFrameControl(frame[0], frame[1])
	if fc.Type == domain.FrameTypeManagement {
		copy(buf[frameOffset:frameOffset+largeFrameBytes], frame)
		binary.LittleEndian.PutUint16(buf[124:], 1)
		binary.LittleEndian.PutUint16(buf[126:], uint16(min(len(frame), 0xffff)))
		return buf
	}

	copy(buf[frameOffset:frameOffset+smallFrameBytes], frame)
	binary.LittleEndian.PutUint16(buf[48:], ampdu)
	binary.LittleEndian.PutUint16(buf[50:], uint16(min(len(frame), 0xffff)))
	copy(buf[52:54], frame[22:24])
	copy(buf[54:60], frame[16:22])
	return buf[:domain.SmallBufferLen]
}

// ChannelForFrequency maps a 2.4GHz centre frequency to its channel, or 0.
func ChannelForFrequency(mhz int) int {
	switch {
	case mhz == 2484:
		return 14
	case mhz >= 2412 && mhz <= 2472 && (mhz-2407)%5 == 0:
		return (mhz - 2407) / 5
	}
	return 0
}

// FrequencyForChannel is the inverse of ChannelForFrequency.
func FrequencyForChannel(ch int) int {
	switch {
	case ch == 14:
		return 2484
	case ch >= 1 && ch <= 13:
		return 2407 + ch*5
	}
	return 0
}

// Capture is one radiotap-framed packet split into radio metadata and the
// bare 802.11 frame.
type Capture struct {
	Frame   []byte
	Rx      domain.RxControl
	Channel int // 0 when the radiotap header carries no 2.4GHz channel
}

var errShortRadioTap = errors.New("radiotap header truncated")

// DecodeRadioTap strips the radiotap header and FCS from data and converts
// the fields the RxControl block carries.
func DecodeRadioTap(data []byte) (Capture, error) {
	if len(data) < 8 || int(binary.LittleEndian.Uint16(data[2:4])) >= len(data) {
		return Capture{}, errShortRadioTap
	}
	var rt layers.RadioTap
	if err := rt.DecodeFromBytes(data, gopacket.NilDecodeFeedback); err != nil {
		return Capture{}, err
	}

	frame := rt.Payload
	if rt.Present.Flags() && rt.Flags.FCS() && len(frame) >= 4 {
		frame = frame[:len(frame)-4]
	}

	c := Capture{Frame: frame}
	if rt.Present.DBMAntennaSignal() {
		c.Rx.RSSI = rt.DBMAntennaSignal
	}
	if rt.Present.Rate() {
		// Radiotap rate is in 500kbps units
		c.Rx.Rate = uint8(min(int(rt.Rate)/2, 15))
	}
	if rt.Present.MCS() {
		c.Rx.SigMode = 1
		c.Rx.MCS = rt.MCS.MCS
		c.Rx.HTLength = uint16(min(len(frame), 0xffff))
	} else {
		c.Rx.LegacyLength = uint16(min(len(frame), 0xfff))
	}
	if rt.Present.Channel() {
		c.Channel = ChannelForFrequency(int(rt.ChannelFrequency))
		c.Rx.Channel = uint8(c.Channel)
	}
	return c, nil
}
