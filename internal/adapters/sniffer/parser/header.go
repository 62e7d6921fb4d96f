package parser

import (
	"encoding/binary"

	"github.com/google/gopacket/layers"
	"github.com/lcalzada-xor/dgramsniff/internal/core/domain"
)

// Frame control layout, first byte on the wire:
//
//	bits 0-1  protocol version
//	bits 2-3  type
//	bits 4-7  subtype
//
// Second byte holds the eight flags, ToDS in bit 0 up to Order in bit 7,
// the same bit order as layers.Dot11Flags.
const (
	fcVersionMask  = 0x03
	fcTypeShift    = 2
	fcTypeMask     = 0x03
	fcSubtypeShift = 4
	fcSubtypeMask  = 0x0f
)

// DecodeFrameControl splits the two frame control bytes into their fields.
func DecodeFrameControl(b0, b1 byte) domain.FrameControl {
	return domain.FrameControl{
		Version: b0 & fcVersionMask,
		Type:    domain.FrameType((b0 >> fcTypeShift) & fcTypeMask),
		Subtype: (b0 >> fcSubtypeShift) & fcSubtypeMask,
		Flags:   layers.Dot11Flags(b1),
	}
}

// DecodeHeader reads the MAC header starting at offset. Multi-byte fields
// are little-endian. Address4 is read only when ToDS and FromDS are both set.
// It returns domain.ErrTooShort when the header does not fit in buf.
func DecodeHeader(buf []byte, offset int) (domain.MacHeader, error) {
	var h domain.MacHeader
	if offset < 0 || len(buf)-offset < domain.MacHeaderLen {
		return h, domain.ErrTooShort
	}
	b := buf[offset:]

	h.FrameControl = DecodeFrameControl(b[0], b[1])
	if h.FrameControl.ToDS() && h.FrameControl.FromDS() {
		if len(b) < domain.MacHeaderLen4 {
			return domain.MacHeader{}, domain.ErrTooShort
		}
		copy(h.Address4[:], b[24:30])
		h.HasAddress4 = true
	}

	h.RawFrameControl = binary.LittleEndian.Uint16(b[0:2])
	h.Duration = binary.LittleEndian.Uint16(b[2:4])
	copy(h.Address1[:], b[4:10])
	copy(h.Address2[:], b[10:16])
	copy(h.Address3[:], b[16:22])
	h.SequenceControl = binary.LittleEndian.Uint16(b[22:24])
	return h, nil
}

// ResolveAddressRoles applies the ToDS/FromDS table:
//
//	ToDS FromDS  Addr1  Addr2  Addr3  Addr4
//	0    0       DA     SA     BSSID  -
//	0    1       DA     BSSID  SA     -
//	1    0       BSSID  SA     DA     -
//	1    1       RA     TA     DA     SA
//
// ReceiverOrDestination is always Addr1, the immediate receiver.
func ResolveAddressRoles(h domain.MacHeader, fc domain.FrameControl) domain.AddressRoles {
	r := domain.AddressRoles{ReceiverOrDestination: h.Address1}
	switch {
	case !fc.ToDS() && !fc.FromDS():
		r.Destination = h.Address1
		r.Source = h.Address2
		r.BSSIDOrTransmitter = h.Address3
	case !fc.ToDS() && fc.FromDS():
		r.Destination = h.Address1
		r.BSSIDOrTransmitter = h.Address2
		r.Source = h.Address3
	case fc.ToDS() && !fc.FromDS():
		r.BSSIDOrTransmitter = h.Address1
		r.Source = h.Address2
		r.Destination = h.Address3
	default:
		r.BSSIDOrTransmitter = h.Address2
		r.Destination = h.Address3
		r.Source = h.Address4
	}
	return r
}
