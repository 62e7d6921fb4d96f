package storage

import (
	"encoding/json"
	"math"

	"github.com/lcalzada-xor/dgramsniff/internal/core/domain"
)

// SQLite integers are signed; counters saturate instead of wrapping.
func i64(v uint64) int64 {
	if v > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(v)
}

func u64(v int64) uint64 {
	if v < 0 {
		return 0
	}
	return uint64(v)
}

// toModel converts a domain report to a database model.
func toModel(r domain.Report) ReportModel {
	model := ReportModel{
		ID:             r.ID,
		Kind:           string(r.Kind),
		Reason:         r.Reason,
		CreatedAt:      r.CreatedAt.UTC(),
		CurrentChannel: r.CurrentChannel,
		Dropped:        i64(r.Dropped),
		Total:          i64(r.Aggregate().Total),
		Channels:       make([]ChannelStatsModel, len(r.Channels)),
	}
	for i, s := range r.Channels {
		model.Channels[i] = toStatsModel(r.ID, s)
	}
	return model
}

func toStatsModel(reportID string, s domain.ChannelStats) ChannelStatsModel {
	m := ChannelStatsModel{
		ReportID: reportID,
		Channel:  s.Channel,

		Total:  i64(s.Total),
		Len12:  i64(s.Lengths.Len12),
		Len60:  i64(s.Lengths.Len60),
		Len128: i64(s.Lengths.Len128),
		Other:  i64(s.Lengths.Other),

		Management: i64(s.Types.Management),
		Control:    i64(s.Types.Control),
		Data:       i64(s.Types.Data),
		Reserved:   i64(s.Types.Reserved),

		Assoc:    i64(s.Subtypes.Assoc),
		Probe:    i64(s.Subtypes.Probe),
		Beacon:   i64(s.Subtypes.Beacon),
		Disassoc: i64(s.Subtypes.Disassoc),

		TooShort:           i64(s.Anomalies.TooShort),
		BadProtocolVersion: i64(s.Anomalies.BadProtocolVersion),
		BadElementID:       i64(s.Anomalies.BadElementID),
		TruncatedElement:   i64(s.Anomalies.TruncatedElement),
		OversizedElement:   i64(s.Anomalies.OversizedElement),
		Recovered:          i64(s.Anomalies.Recovered),

		AMPDU: i64(s.Radio.AMPDU),
		HT:    i64(s.Radio.HT),
	}
	if len(s.SSIDs) > 0 {
		b, _ := json.Marshal(s.SSIDs)
		m.SSIDs = string(b)
	}
	return m
}

// toDomain converts a database model to a domain report.
func toDomain(m ReportModel) domain.Report {
	r := domain.Report{
		ID:             m.ID,
		Kind:           domain.ReportKind(m.Kind),
		Reason:         m.Reason,
		CreatedAt:      m.CreatedAt,
		CurrentChannel: m.CurrentChannel,
		Dropped:        u64(m.Dropped),
		Channels:       make([]domain.ChannelStats, len(m.Channels)),
	}
	for i, c := range m.Channels {
		r.Channels[i] = toStats(c)
	}
	return r
}

func toStats(m ChannelStatsModel) domain.ChannelStats {
	s := domain.ChannelStats{
		Channel: m.Channel,
		Total:   u64(m.Total),
		Lengths: domain.LengthCounts{
			Len12: u64(m.Len12), Len60: u64(m.Len60), Len128: u64(m.Len128), Other: u64(m.Other),
		},
		Types: domain.TypeCounts{
			Management: u64(m.Management), Control: u64(m.Control), Data: u64(m.Data), Reserved: u64(m.Reserved),
		},
		Subtypes: domain.SubtypeCounts{
			Assoc: u64(m.Assoc), Probe: u64(m.Probe), Beacon: u64(m.Beacon), Disassoc: u64(m.Disassoc),
		},
		Anomalies: domain.AnomalyCounts{
			TooShort:           u64(m.TooShort),
			BadProtocolVersion: u64(m.BadProtocolVersion),
			BadElementID:       u64(m.BadElementID),
			TruncatedElement:   u64(m.TruncatedElement),
			OversizedElement:   u64(m.OversizedElement),
			Recovered:          u64(m.Recovered),
		},
		Radio: domain.RadioCounts{AMPDU: u64(m.AMPDU), HT: u64(m.HT)},
	}
	if m.SSIDs != "" {
		_ = json.Unmarshal([]byte(m.SSIDs), &s.SSIDs)
	}
	return s
}

func toSummary(m ReportModel) domain.ReportSummaryInfo {
	return domain.ReportSummaryInfo{
		ID:             m.ID,
		Kind:           domain.ReportKind(m.Kind),
		Reason:         m.Reason,
		CreatedAt:      m.CreatedAt,
		CurrentChannel: m.CurrentChannel,
		Total:          u64(m.Total),
	}
}
