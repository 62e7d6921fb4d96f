package mock

import (
	"encoding/binary"
	"math/rand"
	"time"

	"github.com/lcalzada-xor/dgramsniff/internal/core/domain"
)

// Common SSIDs for realistic mock data
var commonSSIDs = []string{
	"HomeNetwork", "NETGEAR-5G", "Starbucks WiFi", "TP-Link_2.4GHz",
	"Linksys", "ATT-WiFi", "Xfinity", "Google Fiber",
	"Office-Network", "Guest-WiFi", "MyWiFi", "Home-2.4G",
	"DIRECT-Printer", "AndroidAP", "iPhone", "Samsung Galaxy",
	"CoffeeShop_Free", "Airport_WiFi", "Hotel-Guest", "Apartment_5G",
}

// Vendor OUI prefixes (first 3 bytes of MAC)
var vendorPrefixes = [][3]byte{
	{0x00, 0x17, 0xF2}, // Apple
	{0x00, 0x12, 0xFB}, // Samsung
	{0x00, 0x1E, 0xBD}, // Cisco
	{0x50, 0xC7, 0xBF}, // TP-Link
	{0xA0, 0x63, 0x91}, // Netgear
	{0x00, 0x14, 0xBF}, // Linksys
	{0xF4, 0xF5, 0xD8}, // Google
	{0xFC, 0xA6, 0x67}, // Amazon
	{0x34, 0xCE, 0x00}, // Xiaomi
	{0x00, 0xE0, 0xFC}, // Huawei
}

// Frame kinds the generator emits, weighted by how often they show up on a
// busy 2.4GHz channel.
const (
	KindBeacon = iota
	KindProbeReq
	KindAssocReq
	KindDisassoc
	KindData
	KindAck
	KindMalformed
)

var kindWeights = []float32{0.35, 0.15, 0.03, 0.02, 0.3, 0.12, 0.03}

// MockDevice represents a mock WiFi device
type MockDevice struct {
	MAC     domain.MAC
	IsAP    bool
	SSID    string
	Channel int
	RSSI    int
	Hidden  bool
	// ConnectedTo is the BSSID a station is associated with, zero when probing
	ConnectedTo domain.MAC
	seq         uint16
}

// Frame is one generated 802.11 frame (no FCS) with its radio metadata.
type Frame struct {
	Kind    int
	Bytes   []byte
	Channel int
	RSSI    int8
	Rate    uint8
}

// DataGenerator generates mock WiFi traffic
type DataGenerator struct {
	rand     *rand.Rand
	aps      []*MockDevice
	stations []*MockDevice
}

// NewDataGenerator creates a new mock data generator. A zero seed uses the
// clock.
func NewDataGenerator(seed int64) *DataGenerator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &DataGenerator{
		rand: rand.New(rand.NewSource(seed)),
	}
}

// GenerateMAC generates a random unicast MAC address with a vendor prefix
func (g *DataGenerator) GenerateMAC() domain.MAC {
	var m domain.MAC
	p := vendorPrefixes[g.rand.Intn(len(vendorPrefixes))]
	copy(m[:3], p[:])
	m[3] = byte(g.rand.Intn(256))
	m[4] = byte(g.rand.Intn(256))
	m[5] = byte(g.rand.Intn(256))
	return m
}

// GenerateAP creates a mock Access Point
func (g *DataGenerator) GenerateAP() *MockDevice {
	ap := &MockDevice{
		MAC:     g.GenerateMAC(),
		IsAP:    true,
		SSID:    commonSSIDs[g.rand.Intn(len(commonSSIDs))],
		Channel: 1 + g.rand.Intn(domain.MaxChannel),
		RSSI:    -30 - g.rand.Intn(40), // -30 to -70 dBm
		Hidden:  g.rand.Float32() < 0.1,
	}
	g.aps = append(g.aps, ap)
	return ap
}

// GenerateStation creates a mock Station
func (g *DataGenerator) GenerateStation(connectToAP *MockDevice) *MockDevice {
	sta := &MockDevice{
		MAC:     g.GenerateMAC(),
		RSSI:    -40 - g.rand.Intn(50), // -40 to -90 dBm
		Channel: 1 + g.rand.Intn(domain.MaxChannel),
	}
	if connectToAP != nil {
		sta.ConnectedTo = connectToAP.MAC
		sta.SSID = connectToAP.SSID
		sta.Channel = connectToAP.Channel
	}
	g.stations = append(g.stations, sta)
	return sta
}

// GenerateScenario creates a complete mock scenario
func (g *DataGenerator) GenerateScenario(scenario string) {
	var numAPs, numStations int

	switch scenario {
	case "crowded":
		numAPs = 20
		numStations = 50
	case "quiet":
		numAPs = 2
		numStations = 3
	default:
		numAPs = 5
		numStations = 10
	}

	for i := 0; i < numAPs; i++ {
		g.GenerateAP()
	}

	// 80% connected, 20% probing
	for i := 0; i < numStations; i++ {
		var ap *MockDevice
		if g.rand.Float32() < 0.8 && len(g.aps) > 0 {
			ap = g.aps[g.rand.Intn(len(g.aps))]
		}
		g.GenerateStation(ap)
	}
}

// GetAPs returns all APs
func (g *DataGenerator) GetAPs() []*MockDevice {
	return g.aps
}

// GetStations returns all stations
func (g *DataGenerator) GetStations() []*MockDevice {
	return g.stations
}

// Next produces one frame heard on channel. ok is false when no device of
// the scenario transmits there.
func (g *DataGenerator) Next(channel int) (Frame, bool) {
	aps := g.onChannel(g.aps, channel)
	stas := g.onChannel(g.stations, channel)
	if len(aps) == 0 && len(stas) == 0 {
		return Frame{}, false
	}

	kind := g.weightedChoice(kindWeights)
	var dev *MockDevice
	switch {
	case (kind == KindBeacon || kind == KindAck) && len(aps) > 0:
		dev = aps[g.rand.Intn(len(aps))]
	case len(stas) > 0:
		dev = stas[g.rand.Intn(len(stas))]
	default:
		dev = aps[g.rand.Intn(len(aps))]
		kind = KindBeacon
	}
	if dev.IsAP && kind != KindBeacon && kind != KindAck && kind != KindMalformed {
		kind = KindBeacon
	}

	f := Frame{
		Kind:    kind,
		Channel: channel,
		RSSI:    int8(g.jitter(dev.RSSI)),
		Rate:    uint8(g.rand.Intn(12)),
	}
	dev.seq = (dev.seq + 1) & 0x0fff

	switch kind {
	case KindBeacon:
		f.Bytes = g.beacon(dev)
	case KindProbeReq:
		f.Bytes = mgmtHeader(0x40, domain.Broadcast, dev.MAC, domain.Broadcast, dev.seq)
		f.Bytes = appendIE(f.Bytes, 0, nil)
	case KindAssocReq:
		bssid := dev.ConnectedTo
		if bssid.IsZero() && len(aps) > 0 {
			bssid = aps[0].MAC
		}
		f.Bytes = mgmtHeader(0x00, bssid, dev.MAC, bssid, dev.seq)
		f.Bytes = append(f.Bytes, 0x31, 0x04, 0x0a, 0x00) // capability, listen interval
		f.Bytes = appendIE(f.Bytes, 0, []byte(dev.SSID))
	case KindDisassoc:
		f.Bytes = mgmtHeader(0xa0, dev.ConnectedTo, dev.MAC, dev.ConnectedTo, dev.seq)
		f.Bytes = append(f.Bytes, 0x08, 0x00) // reason: leaving BSS
	case KindData:
		f.Bytes = g.data(dev)
	case KindAck:
		// 10-byte control frame, no full MAC header
		f.Bytes = make([]byte, 10)
		f.Bytes[0] = 0xd4
		copy(f.Bytes[4:], dev.MAC[:])
	case KindMalformed:
		f.Bytes = g.beacon(dev)
		f.Bytes[0] |= 0x01 // protocol version 1
	}
	return f, true
}

func (g *DataGenerator) beacon(ap *MockDevice) []byte {
	b := mgmtHeader(0x80, domain.Broadcast, ap.MAC, ap.MAC, ap.seq)
	// Timestamp, beacon interval 100TU, capability ESS|privacy
	var fixed [12]byte
	binary.LittleEndian.PutUint64(fixed[:8], uint64(time.Now().UnixMicro()))
	binary.LittleEndian.PutUint16(fixed[8:], 100)
	binary.LittleEndian.PutUint16(fixed[10:], 0x0011)
	b = append(b, fixed[:]...)

	ssid := []byte(ap.SSID)
	if ap.Hidden {
		ssid = make([]byte, len(ap.SSID))
	}
	b = appendIE(b, 0, ssid)
	b = appendIE(b, 1, []byte{0x82, 0x84, 0x8b, 0x96})
	b = appendIE(b, 3, []byte{byte(ap.Channel)})
	return b
}

func (g *DataGenerator) data(sta *MockDevice) []byte {
	bssid := sta.ConnectedTo
	if bssid.IsZero() {
		bssid = domain.Broadcast
	}
	b := make([]byte, domain.MacHeaderLen, domain.MacHeaderLen+64)
	b[0] = 0x08
	b[1] = 0x01 // ToDS
	copy(b[4:10], bssid[:])
	copy(b[10:16], sta.MAC[:])
	copy(b[16:22], domain.Broadcast[:])
	binary.LittleEndian.PutUint16(b[22:], sta.seq<<4)

	// LLC/SNAP + random payload
	b = append(b, 0xaa, 0xaa, 0x03, 0x00, 0x00, 0x00, 0x08, 0x00)
	payload := make([]byte, 20+g.rand.Intn(40))
	g.rand.Read(payload)
	return append(b, payload...)
}

func mgmtHeader(fc0 byte, a1, a2, a3 domain.MAC, seq uint16) []byte {
	b := make([]byte, domain.MacHeaderLen, 128)
	b[0] = fc0
	binary.LittleEndian.PutUint16(b[2:], 0x013a)
	copy(b[4:10], a1[:])
	copy(b[10:16], a2[:])
	copy(b[16:22], a3[:])
	binary.LittleEndian.PutUint16(b[22:], seq<<4)
	return b
}

func appendIE(b []byte, id byte, value []byte) []byte {
	b = append(b, id, byte(len(value)))
	return append(b, value...)
}

// Helper functions

func (g *DataGenerator) onChannel(devs []*MockDevice, channel int) []*MockDevice {
	var out []*MockDevice
	for _, d := range devs {
		if d.Channel == channel {
			out = append(out, d)
		}
	}
	return out
}

func (g *DataGenerator) jitter(rssi int) int {
	v := rssi + g.rand.Intn(10) - 5 // -5 to +5 dBm
	if v > -20 {
		v = -20
	}
	if v < -95 {
		v = -95
	}
	return v
}

func (g *DataGenerator) weightedChoice(weights []float32) int {
	total := float32(0)
	for _, w := range weights {
		total += w
	}

	r := g.rand.Float32() * total
	cumulative := float32(0)

	for i, w := range weights {
		cumulative += w
		if r <= cumulative {
			return i
		}
	}

	return 0
}
