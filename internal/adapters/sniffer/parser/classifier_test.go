package parser

import (
	"bytes"
	"testing"

	"github.com/lcalzada-xor/dgramsniff/internal/core/domain"
	"github.com/stretchr/testify/assert"
)

func classify(frame []byte, withBody bool) domain.FrameCategory {
	fc := DecodeFrameControl(frame[0], frame[1])
	body := -1
	if withBody {
		body = fc.HeaderLen()
	}
	return ClassifyFrame(fc, frame, body)
}

func TestClassifyFrame_Types(t *testing.T) {
	tests := []struct {
		name    string
		fc0     byte
		want    domain.Category
		subtype domain.MgmtSubtype
	}{
		{"assoc request", fcAssocReq, domain.CategoryManagement, domain.MgmtAssocReq},
		{"probe request", fcProbeReq, domain.CategoryManagement, domain.MgmtProbeReq},
		{"beacon", fcBeacon, domain.CategoryManagement, domain.MgmtBeacon},
		{"disassoc", fcDisassoc, domain.CategoryManagement, domain.MgmtDisassoc},
		{"deauth is other", fcDeauth, domain.CategoryManagement, domain.MgmtOther},
		{"ack", fcACK, domain.CategoryControl, domain.MgmtOther},
		{"data", fcData, domain.CategoryData, domain.MgmtOther},
		{"reserved", fcReserved, domain.CategoryReserved, domain.MgmtOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := newFrame(tt.fc0, 0, domain.Broadcast, apMAC, apMAC).bytes()
			cat := classify(frame, false)
			assert.Equal(t, tt.want, cat.Category)
			assert.Equal(t, tt.subtype, cat.Subtype)
			assert.Zero(t, cat.Anomalies)
			assert.False(t, cat.SSID.Present)
		})
	}
}

func TestClassifyFrame_BadProtocolVersion(t *testing.T) {
	frame := newFrame(fcProbeReq|0x01, 0, domain.Broadcast, staMAC, domain.Broadcast).bytes()
	cat := classify(frame, false)

	assert.True(t, cat.Anomalies.Has(domain.AnomalyBadProtocolVersion))
	assert.Equal(t, domain.CategoryManagement, cat.Category)
	assert.Equal(t, domain.MgmtProbeReq, cat.Subtype)
}

func TestClassifyFrame_BeaconSSID(t *testing.T) {
	tests := []struct {
		name    string
		frame   []byte
		ssid    string
		present bool
		hidden  bool
		anomaly domain.Anomaly
	}{
		{
			name:    "valid ssid",
			frame:   newFrame(fcBeacon, 0, domain.Broadcast, apMAC, apMAC).beaconFixed().ie(0, []byte("TEST")).ie(1, []byte{0x82}).bytes(),
			ssid:    "TEST",
			present: true,
		},
		{
			name:    "hidden ssid",
			frame:   newFrame(fcBeacon, 0, domain.Broadcast, apMAC, apMAC).beaconFixed().ie(0, []byte{0, 0, 0}).bytes(),
			ssid:    "<HIDDEN>",
			present: true,
			hidden:  true,
		},
		{
			name:    "empty ssid",
			frame:   newFrame(fcBeacon, 0, domain.Broadcast, apMAC, apMAC).beaconFixed().ie(0, nil).bytes(),
			ssid:    "<HIDDEN>",
			present: true,
			hidden:  true,
		},
		{
			name:    "first element is not ssid",
			frame:   newFrame(fcBeacon, 0, domain.Broadcast, apMAC, apMAC).beaconFixed().ie(1, []byte{0x82, 0x84}).bytes(),
			anomaly: domain.AnomalyBadElementID,
		},
		{
			name:    "length runs past buffer",
			frame:   newFrame(fcBeacon, 0, domain.Broadcast, apMAC, apMAC).beaconFixed().raw(0, 20, 'a', 'b').bytes(),
			anomaly: domain.AnomalyTruncatedElement,
		},
		{
			name:    "only element id",
			frame:   newFrame(fcBeacon, 0, domain.Broadcast, apMAC, apMAC).beaconFixed().raw(0).bytes(),
			anomaly: domain.AnomalyTruncatedElement,
		},
		{
			name:    "fixed fields cut",
			frame:   newFrame(fcBeacon, 0, domain.Broadcast, apMAC, apMAC).raw(0, 0, 0, 0).bytes(),
			anomaly: domain.AnomalyTruncatedElement,
		},
		{
			name:    "ssid longer than 32",
			frame:   newFrame(fcBeacon, 0, domain.Broadcast, apMAC, apMAC).beaconFixed().ie(0, bytes.Repeat([]byte{'x'}, 33)).bytes(),
			anomaly: domain.AnomalyOversizedElement,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat := classify(tt.frame, true)
			assert.True(t, cat.IsBeacon())
			assert.Equal(t, tt.anomaly, cat.Anomalies)
			assert.Equal(t, tt.present, cat.SSID.Present)
			if tt.present {
				assert.Equal(t, tt.ssid, cat.SSID.String())
				assert.Equal(t, tt.hidden, cat.SSID.Hidden())
			}
		})
	}
}

func TestClassifyFrame_BeaconWithoutBody(t *testing.T) {
	frame := newFrame(fcBeacon, 0, domain.Broadcast, apMAC, apMAC).bytes()

	cat := classify(frame, true) // body offset == len(frame)
	assert.True(t, cat.IsBeacon())
	assert.Zero(t, cat.Anomalies)
	assert.False(t, cat.SSID.Present)

	cat = classify(frame, false)
	assert.True(t, cat.IsBeacon())
	assert.Zero(t, cat.Anomalies)
}

func TestClassifyFrame_SSIDDoesNotAliasBuffer(t *testing.T) {
	frame := newFrame(fcBeacon, 0, domain.Broadcast, apMAC, apMAC).beaconFixed().ie(0, []byte("home")).bytes()
	cat := classify(frame, true)

	// Reuse the buffer for the next capture
	for i := range frame {
		frame[i] = 0xFF
	}
	assert.Equal(t, "home", cat.SSID.String())
	assert.Equal(t, []byte("home"), cat.SSID.Bytes())
}
