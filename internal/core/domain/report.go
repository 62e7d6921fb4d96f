package domain

import "time"

// ReportKind selects how much of the telemetry a report carries.
type ReportKind string

const (
	ReportSummary ReportKind = "summary"
	ReportFull    ReportKind = "full"
)

// Valid reports whether k is a known kind.
func (k ReportKind) Valid() bool {
	return k == ReportSummary || k == ReportFull
}

// CommandForByte maps an operator console byte to a report request.
// '\n' asks for a summary, 'f' or 'F' for a full report.
func CommandForByte(b byte) (ReportKind, bool) {
	switch b {
	case '\n':
		return ReportSummary, true
	case 'f', 'F':
		return ReportFull, true
	}
	return "", false
}

// ChannelChanged is emitted when the listening channel advances.
type ChannelChanged struct {
	Channel int       `json:"channel"`
	At      time.Time `json:"at"`
}

// Report is a point-in-time copy of the channel telemetry.
// Channels[0] is the aggregate slot, Channels[c] is channel c.
type Report struct {
	ID             string         `json:"id"`
	Kind           ReportKind     `json:"kind"`
	Reason         string         `json:"reason"`
	CreatedAt      time.Time      `json:"created_at"`
	CurrentChannel int            `json:"current_channel"`
	Dropped        uint64         `json:"dropped"`
	Channels       []ChannelStats `json:"channels"`
}

// Aggregate returns slot 0, or a zero value if the report is empty.
func (r Report) Aggregate() ChannelStats {
	if len(r.Channels) == 0 {
		return ChannelStats{}
	}
	return r.Channels[0]
}

// ReportSummaryInfo is the listing view of an archived report.
type ReportSummaryInfo struct {
	ID             string     `json:"id"`
	Kind           ReportKind `json:"kind"`
	Reason         string     `json:"reason"`
	CreatedAt      time.Time  `json:"created_at"`
	CurrentChannel int        `json:"current_channel"`
	Total          uint64     `json:"total"`
}
