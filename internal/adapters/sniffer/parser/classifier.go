package parser

import (
	"github.com/lcalzada-xor/dgramsniff/internal/adapters/sniffer/ie"
	"github.com/lcalzada-xor/dgramsniff/internal/core/domain"
)

// ClassifyFrame derives the FrameCategory from decoded frame control bits.
// bodyOffset is where the frame body starts in buf; buf must end where the
// frame bytes end. A bodyOffset at or past len(buf) means the capture has no
// body and no SSID is looked for.
//
// A nonzero protocol version is flagged but does not stop classification.
func ClassifyFrame(fc domain.FrameControl, buf []byte, bodyOffset int) domain.FrameCategory {
	cat := domain.FrameCategory{Category: domain.CategoryForType(fc.Type)}
	if fc.Version != 0 {
		cat.Anomalies |= domain.AnomalyBadProtocolVersion
	}

	if cat.Category != domain.CategoryManagement {
		return cat
	}

	cat.Subtype = domain.MgmtSubtypeFor(fc.Subtype)
	if !cat.IsBeacon() || bodyOffset < 0 || bodyOffset >= len(buf) {
		return cat
	}

	ssid, anomaly := ie.ExtractSSID(buf, ie.BeaconSSIDOffset(bodyOffset))
	cat.SSID = ssid
	cat.Anomalies |= anomaly
	return cat
}
