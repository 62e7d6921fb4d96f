package parser

import (
	"net"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/lcalzada-xor/dgramsniff/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFrameControl(t *testing.T) {
	tests := []struct {
		name    string
		b0, b1  byte
		version uint8
		typ     domain.FrameType
		subtype uint8
		check   func(t *testing.T, fc domain.FrameControl)
	}{
		{
			name: "beacon", b0: fcBeacon, b1: 0,
			typ: domain.FrameTypeManagement, subtype: domain.SubtypeBeacon,
			check: func(t *testing.T, fc domain.FrameControl) {
				assert.Equal(t, layers.Dot11TypeMgmtBeacon, fc.Dot11Type())
				assert.False(t, fc.ToDS())
				assert.False(t, fc.FromDS())
			},
		},
		{
			name: "data to DS with retry", b0: fcData, b1: flagToDS | flagRetry,
			typ: domain.FrameTypeData, subtype: 0,
			check: func(t *testing.T, fc domain.FrameControl) {
				assert.Equal(t, layers.Dot11TypeData, fc.Dot11Type())
				assert.True(t, fc.ToDS())
				assert.True(t, fc.Retry())
				assert.False(t, fc.FromDS())
			},
		},
		{
			name: "ack", b0: fcACK, b1: 0,
			typ: domain.FrameTypeControl, subtype: 0xd,
			check: func(t *testing.T, fc domain.FrameControl) {
				assert.Equal(t, layers.Dot11TypeCtrlAck, fc.Dot11Type())
			},
		},
		{
			name: "all flags and version 3", b0: 0x03 | fcDisassoc, b1: 0xff,
			version: 3, typ: domain.FrameTypeManagement, subtype: domain.SubtypeDisassoc,
			check: func(t *testing.T, fc domain.FrameControl) {
				assert.True(t, fc.ToDS())
				assert.True(t, fc.FromDS())
				assert.True(t, fc.MoreFrag())
				assert.True(t, fc.Retry())
				assert.True(t, fc.PowerMgmt())
				assert.True(t, fc.MoreData())
				assert.True(t, fc.Protected())
				assert.True(t, fc.Order())
				assert.Equal(t, domain.MacHeaderLen4, fc.HeaderLen())
			},
		},
		{
			name: "reserved type", b0: fcReserved, b1: flagProtect,
			typ: domain.FrameTypeReserved, subtype: 0,
			check: func(t *testing.T, fc domain.FrameControl) {
				assert.True(t, fc.Protected())
				assert.Equal(t, domain.MacHeaderLen, fc.HeaderLen())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := DecodeFrameControl(tt.b0, tt.b1)
			assert.Equal(t, tt.version, fc.Version)
			assert.Equal(t, tt.typ, fc.Type)
			assert.Equal(t, tt.subtype, fc.Subtype)
			tt.check(t, fc)
		})
	}
}

func TestDecodeHeader_TooShort(t *testing.T) {
	frame := newFrame(fcBeacon, 0, domain.Broadcast, apMAC, apMAC).bytes()

	_, err := DecodeHeader(frame[:23], 0)
	assert.ErrorIs(t, err, domain.ErrTooShort)

	_, err = DecodeHeader(frame, 1)
	assert.ErrorIs(t, err, domain.ErrTooShort)

	_, err = DecodeHeader(frame, -1)
	assert.ErrorIs(t, err, domain.ErrTooShort)

	// WDS header without room for Address4
	wds := newFrame(fcData, flagToDS|flagFromDS, apMAC, staMAC, dstMAC).bytes()
	_, err = DecodeHeader(wds, 0)
	assert.ErrorIs(t, err, domain.ErrTooShort)
}

func TestDecodeHeader_Fields(t *testing.T) {
	frame := newFrame(fcBeacon, 0, domain.Broadcast, apMAC, apMAC).bytes()
	buf := append([]byte{0xEE, 0xEE, 0xEE}, frame...)

	h, err := DecodeHeader(buf, 3)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0080), h.RawFrameControl)
	assert.Equal(t, uint16(0x013a), h.Duration)
	assert.Equal(t, domain.Broadcast, h.Address1)
	assert.Equal(t, apMAC, h.Address2)
	assert.Equal(t, apMAC, h.Address3)
	assert.False(t, h.HasAddress4)
	assert.Equal(t, uint16(42), h.SequenceNumber())
	assert.Equal(t, uint8(3), h.FragmentNumber())
	assert.Equal(t, domain.MacHeaderLen, h.Len())
}

func TestDecodeHeader_Address4(t *testing.T) {
	frame := newFrame(fcData, flagToDS|flagFromDS, apMAC, staMAC, dstMAC).addr4(srcMAC).bytes()

	h, err := DecodeHeader(frame, 0)
	require.NoError(t, err)
	assert.True(t, h.HasAddress4)
	assert.Equal(t, srcMAC, h.Address4)
	assert.Equal(t, domain.MacHeaderLen4, h.Len())
}

// The decoder must agree with gopacket on every field both of them read.
func TestDecodeHeader_MatchesGopacket(t *testing.T) {
	frames := map[string][]byte{
		"beacon": newFrame(fcBeacon, 0, domain.Broadcast, apMAC, apMAC).beaconFixed().ie(0, []byte("lab")).bytes(),
		"probe":  newFrame(fcProbeReq, 0, domain.Broadcast, staMAC, domain.Broadcast).ie(0, nil).bytes(),
		"data":   newFrame(fcData, flagToDS|flagRetry, apMAC, staMAC, dstMAC).raw(0xAA, 0xAA, 0x03).bytes(),
		"wds":    newFrame(fcData, flagToDS|flagFromDS, apMAC, staMAC, dstMAC).addr4(srcMAC).raw(0xAA, 0xAA).bytes(),
	}

	for name, frame := range frames {
		t.Run(name, func(t *testing.T) {
			// Dummy FCS
			withFCS := append(append([]byte{}, frame...), 0xDE, 0xAD, 0xBE, 0xEF)
			pkt := gopacket.NewPacket(withFCS, layers.LayerTypeDot11, gopacket.Default)
			dot11, ok := pkt.Layer(layers.LayerTypeDot11).(*layers.Dot11)
			require.True(t, ok, "gopacket failed to decode %s", name)

			h, err := DecodeHeader(frame, 0)
			require.NoError(t, err)

			assert.Equal(t, dot11.Type, h.FrameControl.Dot11Type())
			assert.Equal(t, dot11.Flags, h.FrameControl.Flags)
			assert.Equal(t, dot11.Proto, h.FrameControl.Version)
			assert.Equal(t, dot11.DurationID, h.Duration)
			assert.Equal(t, dot11.SequenceNumber, h.SequenceNumber())
			assert.Equal(t, dot11.FragmentNumber, uint16(h.FragmentNumber()))
			assert.Equal(t, dot11.Address1, net.HardwareAddr(h.Address1[:]))
			assert.Equal(t, dot11.Address2, net.HardwareAddr(h.Address2[:]))
			assert.Equal(t, dot11.Address3, net.HardwareAddr(h.Address3[:]))
			if h.HasAddress4 {
				assert.Equal(t, dot11.Address4, net.HardwareAddr(h.Address4[:]))
			}
		})
	}
}

func TestResolveAddressRoles(t *testing.T) {
	tests := []struct {
		name  string
		flags byte
		want  domain.AddressRoles
	}{
		{
			name:  "IBSS / management",
			flags: 0,
			// A1=DA A2=SA A3=BSSID
			want: domain.AddressRoles{Destination: apMAC, Source: staMAC, BSSIDOrTransmitter: dstMAC, ReceiverOrDestination: apMAC},
		},
		{
			name:  "from AP",
			flags: flagFromDS,
			// A1=DA A2=BSSID A3=SA
			want: domain.AddressRoles{Destination: apMAC, BSSIDOrTransmitter: staMAC, Source: dstMAC, ReceiverOrDestination: apMAC},
		},
		{
			name:  "to AP",
			flags: flagToDS,
			// A1=BSSID A2=SA A3=DA
			want: domain.AddressRoles{BSSIDOrTransmitter: apMAC, Source: staMAC, Destination: dstMAC, ReceiverOrDestination: apMAC},
		},
		{
			name:  "WDS",
			flags: flagToDS | flagFromDS,
			// A1=RA A2=TA A3=DA A4=SA
			want: domain.AddressRoles{ReceiverOrDestination: apMAC, BSSIDOrTransmitter: staMAC, Destination: dstMAC, Source: srcMAC},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := newFrame(fcData, tt.flags, apMAC, staMAC, dstMAC)
			if tt.flags == flagToDS|flagFromDS {
				fb.addr4(srcMAC)
			}
			h, err := DecodeHeader(fb.bytes(), 0)
			require.NoError(t, err)

			assert.Equal(t, tt.want, ResolveAddressRoles(h, h.FrameControl))
		})
	}
}

func TestResolveAddressRoles_ZeroHeader(t *testing.T) {
	// Every flag combination resolves, even without a decoded Address4.
	fc := DecodeFrameControl(fcData, flagToDS|flagFromDS)
	roles := ResolveAddressRoles(domain.MacHeader{}, fc)
	assert.True(t, roles.Source.IsZero())
}
