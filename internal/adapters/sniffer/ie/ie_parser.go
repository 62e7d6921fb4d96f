package ie

import "github.com/lcalzada-xor/dgramsniff/internal/core/domain"

// Common IE Tags
const (
	TagSSID = 0
)

// BeaconFixedLen is timestamp(8) + interval(2) + capability(2).
const BeaconFixedLen = 12

// ExtractSSID reads the SSID element that must start at offset.
// The element length is never trusted past len(buf): a length that runs off
// the end yields AnomalyTruncatedElement and no SSID. The returned SSID is a
// copy and does not alias buf.
func ExtractSSID(buf []byte, offset int) (domain.SSID, domain.Anomaly) {
	// Needs at least 2 bytes (ID and Length)
	if offset < 0 || offset+2 > len(buf) {
		return domain.SSID{}, domain.AnomalyTruncatedElement
	}

	if buf[offset] != TagSSID {
		return domain.SSID{}, domain.AnomalyBadElementID
	}

	length := int(buf[offset+1])
	start := offset + 2
	if start+length > len(buf) {
		return domain.SSID{}, domain.AnomalyTruncatedElement
	}
	if length > domain.MaxSSIDLen {
		return domain.SSID{}, domain.AnomalyOversizedElement
	}

	return domain.NewSSID(buf[start : start+length]), 0
}

// BeaconSSIDOffset returns where the first IE of a beacon body starts.
func BeaconSSIDOffset(bodyOffset int) int {
	return bodyOffset + BeaconFixedLen
}
