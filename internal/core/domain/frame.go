package domain

import (
	"strings"

	"github.com/google/gopacket/layers"
)

// MacHeaderLen is the size of a three-address 802.11 MAC header.
const MacHeaderLen = 24

// MacHeaderLen4 is the header size when Address4 is present (ToDS and FromDS).
const MacHeaderLen4 = 30

// FrameType is the 2-bit type field of the frame control.
type FrameType uint8

const (
	FrameTypeManagement FrameType = 0
	FrameTypeControl    FrameType = 1
	FrameTypeData       FrameType = 2
	FrameTypeReserved   FrameType = 3
)

func (t FrameType) String() string {
	switch t {
	case FrameTypeManagement:
		return "management"
	case FrameTypeControl:
		return "control"
	case FrameTypeData:
		return "data"
	}
	return "reserved"
}

// Management frame subtype codes.
const (
	SubtypeAssocReq  uint8 = 0x0
	SubtypeProbeReq  uint8 = 0x4
	SubtypeBeacon    uint8 = 0x8
	SubtypeDisassoc  uint8 = 0xa
	SubtypeAuth      uint8 = 0xb
	SubtypeDeauth    uint8 = 0xc
	SubtypeProbeResp uint8 = 0x5
)

// FrameControl holds the decoded first two bytes of an 802.11 header.
type FrameControl struct {
	Version uint8
	Type    FrameType
	Subtype uint8
	Flags   layers.Dot11Flags
}

// Dot11Type returns the combined type/subtype in gopacket's encoding.
func (fc FrameControl) Dot11Type() layers.Dot11Type {
	return layers.Dot11Type(fc.Subtype<<2 | uint8(fc.Type))
}

func (fc FrameControl) ToDS() bool      { return fc.Flags.ToDS() }
func (fc FrameControl) FromDS() bool    { return fc.Flags.FromDS() }
func (fc FrameControl) MoreFrag() bool  { return fc.Flags.MF() }
func (fc FrameControl) Retry() bool     { return fc.Flags.Retry() }
func (fc FrameControl) PowerMgmt() bool { return fc.Flags.PowerManagement() }
func (fc FrameControl) MoreData() bool  { return fc.Flags.MD() }
func (fc FrameControl) Protected() bool { return fc.Flags.WEP() }
func (fc FrameControl) Order() bool     { return fc.Flags.Order() }

// HeaderLen returns the MAC header length implied by the DS flags.
func (fc FrameControl) HeaderLen() int {
	if fc.ToDS() && fc.FromDS() {
		return MacHeaderLen4
	}
	return MacHeaderLen
}

// MacHeader is the raw, uninterpreted 802.11 MAC header.
type MacHeader struct {
	FrameControl    FrameControl
	RawFrameControl uint16
	Duration        uint16
	Address1        MAC
	Address2        MAC
	Address3        MAC
	Address4        MAC
	HasAddress4     bool
	SequenceControl uint16
}

// Len is the number of buffer bytes the header occupies.
func (h MacHeader) Len() int {
	if h.HasAddress4 {
		return MacHeaderLen4
	}
	return MacHeaderLen
}

// SequenceNumber returns the 12-bit sequence number.
func (h MacHeader) SequenceNumber() uint16 {
	return h.SequenceControl >> 4
}

// FragmentNumber returns the 4-bit fragment number.
func (h MacHeader) FragmentNumber() uint8 {
	return uint8(h.SequenceControl & 0x0f)
}

// AddressRoles is the semantic view of the header addresses. It is always
// derived from the DS flags, never stored.
type AddressRoles struct {
	Destination           MAC
	Source                MAC
	BSSIDOrTransmitter    MAC
	ReceiverOrDestination MAC
}

// Anomaly is a set of non-fatal decode findings.
type Anomaly uint8

const (
	AnomalyTooShort Anomaly = 1 << iota
	AnomalyBadProtocolVersion
	AnomalyBadElementID
	AnomalyTruncatedElement
	AnomalyOversizedElement
	AnomalyRecovered
)

// AllAnomalies lists every anomaly bit in declaration order.
var AllAnomalies = [...]Anomaly{
	AnomalyTooShort,
	AnomalyBadProtocolVersion,
	AnomalyBadElementID,
	AnomalyTruncatedElement,
	AnomalyOversizedElement,
	AnomalyRecovered,
}

// Has reports whether every bit of x is set in a.
func (a Anomaly) Has(x Anomaly) bool {
	return a&x == x && x != 0
}

func (a Anomaly) String() string {
	if a == 0 {
		return "none"
	}
	var parts []string
	for _, k := range AllAnomalies {
		if a.Has(k) {
			parts = append(parts, k.name())
		}
	}
	return strings.Join(parts, "|")
}

func (a Anomaly) name() string {
	switch a {
	case AnomalyTooShort:
		return "too_short"
	case AnomalyBadProtocolVersion:
		return "bad_protocol_version"
	case AnomalyBadElementID:
		return "bad_element_id"
	case AnomalyTruncatedElement:
		return "truncated_element"
	case AnomalyOversizedElement:
		return "oversized_element"
	case AnomalyRecovered:
		return "recovered_panic"
	}
	return "unknown"
}

// Category is the top level classification of a capture.
type Category uint8

const (
	CategoryUnknown Category = iota
	CategoryManagement
	CategoryControl
	CategoryData
	CategoryReserved
)

// CategoryForType maps the 2-bit frame type onto a Category.
func CategoryForType(t FrameType) Category {
	switch t {
	case FrameTypeManagement:
		return CategoryManagement
	case FrameTypeControl:
		return CategoryControl
	case FrameTypeData:
		return CategoryData
	}
	return CategoryReserved
}

func (c Category) String() string {
	switch c {
	case CategoryManagement:
		return "management"
	case CategoryControl:
		return "control"
	case CategoryData:
		return "data"
	case CategoryReserved:
		return "reserved"
	}
	return "unknown"
}

// MgmtSubtype is the management detail tracked by the telemetry.
type MgmtSubtype uint8

const (
	MgmtOther MgmtSubtype = iota
	MgmtAssocReq
	MgmtProbeReq
	MgmtBeacon
	MgmtDisassoc
)

// MgmtSubtypeFor maps a raw 4-bit management subtype.
func MgmtSubtypeFor(subtype uint8) MgmtSubtype {
	switch subtype {
	case SubtypeAssocReq:
		return MgmtAssocReq
	case SubtypeProbeReq:
		return MgmtProbeReq
	case SubtypeBeacon:
		return MgmtBeacon
	case SubtypeDisassoc:
		return MgmtDisassoc
	}
	return MgmtOther
}

func (s MgmtSubtype) String() string {
	switch s {
	case MgmtAssocReq:
		return "assoc_req"
	case MgmtProbeReq:
		return "probe_req"
	case MgmtBeacon:
		return "beacon"
	case MgmtDisassoc:
		return "disassoc"
	}
	return "other"
}

// MaxSSIDLen is the largest SSID allowed by 802.11.
const MaxSSIDLen = 32

// SSID is a bounded copy of a beacon's SSID element.
type SSID struct {
	buf     [MaxSSIDLen]byte
	n       uint8
	Present bool
}

// NewSSID copies at most MaxSSIDLen bytes of b.
func NewSSID(b []byte) SSID {
	var s SSID
	s.n = uint8(copy(s.buf[:], b))
	s.Present = true
	return s
}

// Len returns the number of SSID bytes held.
func (s SSID) Len() int {
	return int(s.n)
}

// Bytes returns a copy of the SSID bytes.
func (s SSID) Bytes() []byte {
	out := make([]byte, s.n)
	copy(out, s.buf[:s.n])
	return out
}

// Hidden reports a zero-length or all-zero SSID.
func (s SSID) Hidden() bool {
	for _, b := range s.buf[:s.n] {
		if b != 0x00 {
			return false
		}
	}
	return true
}

// String returns the SSID text, or <HIDDEN>.
func (s SSID) String() string {
	if !s.Present {
		return ""
	}
	if s.Hidden() {
		return "<HIDDEN>"
	}
	return string(s.buf[:s.n])
}

// FrameCategory is the result of classifying one decoded frame.
type FrameCategory struct {
	Category  Category
	Subtype   MgmtSubtype // meaningful only for CategoryManagement
	SSID      SSID        // Present only for beacons with a valid element
	Anomalies Anomaly
}

// IsBeacon reports whether the category is a management beacon.
func (c FrameCategory) IsBeacon() bool {
	return c.Category == CategoryManagement && c.Subtype == MgmtBeacon
}
