package domain

import "net"

// Known capture buffer lengths delivered by the promiscuous-mode callback.
const (
	RxControlLen   = 12  // radio metadata only
	SmallBufferLen = 60  // RxControl + 36 bytes of header + count/len/seq/addr3
	LargeBufferLen = 128 // RxControl + 112 bytes of frame + count/len
)

// BufferVariant identifies the physical layout of a capture buffer.
// It is a pure function of the buffer length.
type BufferVariant uint8

const (
	VariantUnclassified BufferVariant = iota
	VariantRxControlOnly
	VariantSingleFrame
	VariantAggregatedOrData
)

func (v BufferVariant) String() string {
	switch v {
	case VariantRxControlOnly:
		return "rx_control"
	case VariantSingleFrame:
		return "single_frame"
	case VariantAggregatedOrData:
		return "aggregated_or_data"
	}
	return "unclassified"
}

// Decodable reports whether the variant carries a MAC header.
func (v BufferVariant) Decodable() bool {
	return v == VariantSingleFrame || v == VariantAggregatedOrData
}

// BufferLayout gives the fixed offsets of a variant. Offsets are -1 when the
// region does not exist in that layout.
type BufferLayout struct {
	Variant       BufferVariant
	HeaderOffset  int  // start of the 802.11 MAC header
	FrameEnd      int  // end (exclusive) of the 802.11 bytes
	TrailerOffset int  // start of the count/len trailer
	CarriesBody   bool // frame bytes after the MAC header are present
}

// LengthBucket is the histogram bucket a capture buffer falls into.
type LengthBucket uint8

const (
	BucketOther LengthBucket = iota
	Bucket12
	Bucket60
	Bucket128
)

// BucketForLength maps a raw buffer length to its bucket.
func BucketForLength(n int) LengthBucket {
	switch n {
	case RxControlLen:
		return Bucket12
	case SmallBufferLen:
		return Bucket60
	case LargeBufferLen:
		return Bucket128
	}
	return BucketOther
}

func (b LengthBucket) String() string {
	switch b {
	case Bucket12:
		return "12"
	case Bucket60:
		return "60"
	case Bucket128:
		return "128"
	}
	return "other"
}

// MAC is a fixed-size hardware address. It is a value type so decoded
// headers never point into the capture buffer.
type MAC [6]byte

// Broadcast is ff:ff:ff:ff:ff:ff.
var Broadcast = MAC{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

func (m MAC) String() string {
	return net.HardwareAddr(m[:]).String()
}

// IsZero reports whether every octet is zero.
func (m MAC) IsZero() bool {
	return m == MAC{}
}

// IsBroadcast reports whether m is the broadcast address.
func (m MAC) IsBroadcast() bool {
	return m == Broadcast
}

// RxControl is the radio metadata block that prefixes every capture buffer.
type RxControl struct {
	RSSI         int8
	Rate         uint8
	IsGroup      bool
	SigMode      uint8 // 0 = legacy, otherwise 802.11n
	LegacyLength uint16
	DAMatch0     bool
	DAMatch1     bool
	BSSIDMatch0  bool
	BSSIDMatch1  bool
	MCS          uint8
	CWB          bool // HT40
	HTLength     uint16
	Smoothing    bool
	NotSounding  bool
	Aggregation  bool
	STBC         uint8
	FECCoding    bool // LDPC
	SGI          bool
	RxEndState   uint8
	AMPDUCount   uint8
	Channel      uint8
}

// Is80211n reports whether the frame was received as an HT frame.
func (r RxControl) Is80211n() bool {
	return r.SigMode != 0
}

// CaptureTrailer is the bookkeeping the radio appends after the frame bytes.
type CaptureTrailer struct {
	Count    uint16 // packets represented by the buffer; >1 is an AMPDU
	Length   uint16 // length of the (first) packet
	Seq      uint16 // small layout only
	Address3 MAC    // small layout only
	HasSeq   bool
}

// IsAMPDU reports whether the buffer stands for an aggregate.
func (t CaptureTrailer) IsAMPDU() bool {
	return t.Count > 1
}

// SequenceNumber returns the high 12 bits of Seq.
func (t CaptureTrailer) SequenceNumber() uint16 {
	return t.Seq >> 4
}
