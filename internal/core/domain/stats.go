package domain

// MaxChannel is the highest 2.4GHz channel tracked. Slot 0 is the aggregate.
const MaxChannel = 14

// ValidChannel reports whether ch is a listening channel (1..14).
func ValidChannel(ch int) bool {
	return ch >= 1 && ch <= MaxChannel
}

// NextChannel returns the channel after ch in the 1..14 cycle.
func NextChannel(ch int) int {
	return (ch % MaxChannel) + 1
}

// TelemetryRecord is what the capture path hands to the aggregator.
// It is a plain value so it can cross a channel without allocation.
type TelemetryRecord struct {
	Channel  int
	Bucket   LengthBucket
	Variant  BufferVariant
	Category FrameCategory
	RSSI     int8
	HasRx    bool
	AMPDU    bool // trailer flagged the buffer as part of an A-MPDU
	HT       bool // RxControl reported an 802.11n reception
}

// LengthCounts counts buffers per length bucket.
type LengthCounts struct {
	Len12  uint64 `json:"len_12"`
	Len60  uint64 `json:"len_60"`
	Len128 uint64 `json:"len_128"`
	Other  uint64 `json:"other"`
}

// TypeCounts counts frames per 802.11 type.
type TypeCounts struct {
	Management uint64 `json:"management"`
	Control    uint64 `json:"control"`
	Data       uint64 `json:"data"`
	Reserved   uint64 `json:"reserved"`
}

// SubtypeCounts counts tracked management subtypes.
type SubtypeCounts struct {
	Assoc    uint64 `json:"assoc"`
	Probe    uint64 `json:"probe"`
	Beacon   uint64 `json:"beacon"`
	Disassoc uint64 `json:"disassoc"`
}

// AnomalyCounts counts decode anomalies.
type AnomalyCounts struct {
	TooShort           uint64 `json:"too_short"`
	BadProtocolVersion uint64 `json:"bad_protocol_version"`
	BadElementID       uint64 `json:"bad_element_id"`
	TruncatedElement   uint64 `json:"truncated_element"`
	OversizedElement   uint64 `json:"oversized_element"`
	Recovered          uint64 `json:"recovered"`
}

// RadioCounts counts receive-path properties reported by the radio.
type RadioCounts struct {
	AMPDU uint64 `json:"ampdu"`
	HT    uint64 `json:"ht"`
}

// ChannelStats is the counter family for one channel slot (0 = aggregate).
type ChannelStats struct {
	Channel   int           `json:"channel"`
	Total     uint64        `json:"total"`
	Lengths   LengthCounts  `json:"lengths"`
	Types     TypeCounts    `json:"types"`
	Subtypes  SubtypeCounts `json:"subtypes"`
	Anomalies AnomalyCounts `json:"anomalies"`
	Radio     RadioCounts   `json:"radio"`
	SSIDs     []string      `json:"ssids,omitempty"`
}

// Apply increments the counters touched by one record. Every call bumps
// Total and one length bucket; type, subtype and anomaly counters move only
// when the record carries them.
func (s *ChannelStats) Apply(bucket LengthBucket, cat FrameCategory) {
	s.Total++

	switch bucket {
	case Bucket12:
		s.Lengths.Len12++
	case Bucket60:
		s.Lengths.Len60++
	case Bucket128:
		s.Lengths.Len128++
	default:
		s.Lengths.Other++
	}

	switch cat.Category {
	case CategoryManagement:
		s.Types.Management++
		switch cat.Subtype {
		case MgmtAssocReq:
			s.Subtypes.Assoc++
		case MgmtProbeReq:
			s.Subtypes.Probe++
		case MgmtBeacon:
			s.Subtypes.Beacon++
		case MgmtDisassoc:
			s.Subtypes.Disassoc++
		}
	case CategoryControl:
		s.Types.Control++
	case CategoryData:
		s.Types.Data++
	case CategoryReserved:
		s.Types.Reserved++
	}

	a := cat.Anomalies
	if a.Has(AnomalyTooShort) {
		s.Anomalies.TooShort++
	}
	if a.Has(AnomalyBadProtocolVersion) {
		s.Anomalies.BadProtocolVersion++
	}
	if a.Has(AnomalyBadElementID) {
		s.Anomalies.BadElementID++
	}
	if a.Has(AnomalyTruncatedElement) {
		s.Anomalies.TruncatedElement++
	}
	if a.Has(AnomalyOversizedElement) {
		s.Anomalies.OversizedElement++
	}
	if a.Has(AnomalyRecovered) {
		s.Anomalies.Recovered++
	}
}

// ApplyRadio counts the receive-path flags of one record.
func (s *ChannelStats) ApplyRadio(ampdu, ht bool) {
	if ampdu {
		s.Radio.AMPDU++
	}
	if ht {
		s.Radio.HT++
	}
}

// Counters returns s without the SSID list, for counter comparisons.
func (s ChannelStats) Counters() ChannelStats {
	s.SSIDs = nil
	return s
}

// Sum adds the counters of o to s. Channel and SSIDs of s are kept.
func (s ChannelStats) Sum(o ChannelStats) ChannelStats {
	s.Total += o.Total
	s.Lengths.Len12 += o.Lengths.Len12
	s.Lengths.Len60 += o.Lengths.Len60
	s.Lengths.Len128 += o.Lengths.Len128
	s.Lengths.Other += o.Lengths.Other
	s.Types.Management += o.Types.Management
	s.Types.Control += o.Types.Control
	s.Types.Data += o.Types.Data
	s.Types.Reserved += o.Types.Reserved
	s.Subtypes.Assoc += o.Subtypes.Assoc
	s.Subtypes.Probe += o.Subtypes.Probe
	s.Subtypes.Beacon += o.Subtypes.Beacon
	s.Subtypes.Disassoc += o.Subtypes.Disassoc
	s.Anomalies.TooShort += o.Anomalies.TooShort
	s.Anomalies.BadProtocolVersion += o.Anomalies.BadProtocolVersion
	s.Anomalies.BadElementID += o.Anomalies.BadElementID
	s.Anomalies.TruncatedElement += o.Anomalies.TruncatedElement
	s.Anomalies.OversizedElement += o.Anomalies.OversizedElement
	s.Anomalies.Recovered += o.Anomalies.Recovered
	s.Radio.AMPDU += o.Radio.AMPDU
	s.Radio.HT += o.Radio.HT
	return s
}
