package radio

import (
	"context"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
	"github.com/google/gopacket/pcapgo"
	"github.com/lcalzada-xor/dgramsniff/internal/adapters/sniffer/capture"
	"github.com/lcalzada-xor/dgramsniff/internal/adapters/sniffer/parser"
	"github.com/lcalzada-xor/dgramsniff/internal/core/domain"
	"github.com/lcalzada-xor/dgramsniff/internal/core/services/aggregator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	apMAC  = domain.MAC{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	staMAC = domain.MAC{0x66, 0x77, 0x88, 0x99, 0xaa, 0xbb}
)

func header(fc0, fc1 byte, a1, a2, a3 domain.MAC) []byte {
	b := make([]byte, domain.MacHeaderLen)
	b[0], b[1] = fc0, fc1
	copy(b[4:], a1[:])
	copy(b[10:], a2[:])
	copy(b[16:], a3[:])
	binary.LittleEndian.PutUint16(b[22:], 42<<4)
	return b
}

func beacon(ssid string) []byte {
	b := header(0x80, 0, domain.Broadcast, apMAC, apMAC)
	b = append(b, make([]byte, 12)...)
	b = append(b, 0, byte(len(ssid)))
	return append(b, ssid...)
}

func dataFrame() []byte {
	b := header(0x08, 0x01, apMAC, staMAC, domain.Broadcast)
	return append(b, 0xaa, 0xaa, 0x03, 0, 0, 0, 0x08, 0x00, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16)
}

// radiotap prepends a header carrying flags, rate, channel and antenna
// signal. ch 0 omits the channel field.
func radiotap(frame []byte, ch int, rssi int8, fcs bool) []byte {
	present := uint32(1<<1 | 1<<2 | 1<<5)
	if ch != 0 {
		present |= 1 << 3
	}
	hdr := []byte{0, 0, 0, 0}
	hdr = binary.LittleEndian.AppendUint32(hdr, present)

	var flags byte
	if fcs {
		flags = 0x10
	}
	hdr = append(hdr, flags, 22) // 11 Mbps
	if ch != 0 {
		hdr = binary.LittleEndian.AppendUint16(hdr, uint16(FrequencyForChannel(ch)))
		hdr = binary.LittleEndian.AppendUint16(hdr, 0x00a0)
	}
	hdr = append(hdr, byte(rssi))
	binary.LittleEndian.PutUint16(hdr[2:], uint16(len(hdr)))

	out := append(hdr, frame...)
	if fcs {
		out = append(out, 0xde, 0xad, 0xbe, 0xef)
	}
	return out
}

type collector struct {
	mu   sync.Mutex
	bufs [][]byte
}

func (c *collector) callback(buf []byte, length uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bufs = append(c.bufs, append([]byte(nil), buf[:length]...))
}

func (c *collector) all() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bufs
}

func TestChannelFrequency(t *testing.T) {
	tests := []struct {
		mhz, ch int
	}{
		{2412, 1}, {2437, 6}, {2462, 11}, {2472, 13}, {2484, 14},
		{2400, 0}, {2413, 0}, {5180, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.ch, ChannelForFrequency(tt.mhz), "%d MHz", tt.mhz)
		if tt.ch != 0 {
			assert.Equal(t, tt.mhz, FrequencyForChannel(tt.ch))
		}
	}
	assert.Zero(t, FrequencyForChannel(15))
}

func TestDecodeRadioTap(t *testing.T) {
	frame := beacon("lab")

	c, err := DecodeRadioTap(radiotap(frame, 6, -48, true))
	require.NoError(t, err)
	assert.Equal(t, frame, c.Frame)
	assert.Equal(t, 6, c.Channel)
	assert.Equal(t, int8(-48), c.Rx.RSSI)
	assert.Equal(t, uint8(11), c.Rx.Rate)
	assert.Equal(t, uint8(6), c.Rx.Channel)
	assert.Equal(t, uint16(len(frame)), c.Rx.LegacyLength)

	c, err = DecodeRadioTap(radiotap(frame, 0, -70, false))
	require.NoError(t, err)
	assert.Equal(t, frame, c.Frame)
	assert.Zero(t, c.Channel)

	_, err = DecodeRadioTap([]byte{0, 0, 8})
	assert.Error(t, err)
}

func TestReframe(t *testing.T) {
	h := parser.NewPacketHandler(true)
	rx := domain.RxControl{RSSI: -55, Rate: 11, Channel: 3}
	var dst [256]byte

	t.Run("management frame uses the 128-byte layout", func(t *testing.T) {
		out := Reframe(dst[:], beacon("TEST"), rx, 1)
		require.Len(t, out, domain.LargeBufferLen)

		c := h.Decode(out)
		assert.Equal(t, domain.VariantSingleFrame, c.Layout.Variant)
		assert.True(t, c.Category.IsBeacon())
		assert.Equal(t, "TEST", c.Category.SSID.String())
		assert.Equal(t, int8(-55), c.Rx.RSSI)
		assert.Equal(t, uint16(1), c.Trailer.Count)
	})

	t.Run("long management frame is truncated", func(t *testing.T) {
		long := append(beacon("x"), make([]byte, 200)...)
		out := Reframe(dst[:], long, rx, 1)
		require.Len(t, out, domain.LargeBufferLen)
		assert.Equal(t, uint16(len(long)), binary.LittleEndian.Uint16(out[126:]))
	})

	t.Run("data frame uses the 60-byte layout", func(t *testing.T) {
		out := Reframe(dst[:], dataFrame(), rx, 3)
		require.Len(t, out, domain.SmallBufferLen)

		c := h.Decode(out)
		assert.Equal(t, domain.CategoryData, c.Category.Category)
		assert.True(t, c.Trailer.IsAMPDU())
		assert.Equal(t, uint16(42), c.Trailer.SequenceNumber())
		assert.Equal(t, domain.Broadcast, c.Trailer.Address3)
		assert.Equal(t, uint8(3), c.Rx.AMPDUCount)
	})

	t.Run("short control frame is rx control only", func(t *testing.T) {
		ack := make([]byte, 10)
		ack[0] = 0xd4
		out := Reframe(dst[:], ack, rx, 0)
		require.Len(t, out, domain.RxControlLen)
		assert.Equal(t, domain.VariantRxControlOnly, h.Decode(out).Layout.Variant)
	})

	t.Run("rx control prefix is written for every layout", func(t *testing.T) {
		ht := domain.RxControl{RSSI: -70, SigMode: 1, MCS: 7, HTLength: 1500, Aggregation: true, Channel: 11}
		tests := []struct {
			name  string
			frame []byte
			ampdu uint16
		}{
			{"large", beacon("ht"), 1},
			{"small", dataFrame(), 4},
			{"rx only", []byte{0xd4, 0x00}, 1},
		}
		for _, tt := range tests {
			out := Reframe(dst[:], tt.frame, ht, tt.ampdu)
			got, err := parser.DecodeRxControl(out)
			require.NoError(t, err, tt.name)

			want := ht
			want.AMPDUCount = uint8(tt.ampdu)
			assert.Equal(t, want, got, tt.name)
			assert.True(t, got.Is80211n(), tt.name)
		}
	})

	t.Run("previous contents are cleared", func(t *testing.T) {
		for i := range dst {
			dst[i] = 0xff
		}
		out := Reframe(dst[:], beacon("a"), rx, 1)
		assert.Equal(t, byte(0), out[100])
	})
}

func writePcap(t *testing.T, lt layers.LinkType, packets ...[]byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture.pcap")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := pcapgo.NewWriter(f)
	require.NoError(t, w.WriteFileHeader(65536, lt))
	ts := time.Unix(1700000000, 0)
	for i, p := range packets {
		ci := gopacket.CaptureInfo{Timestamp: ts.Add(time.Duration(i) * time.Millisecond), CaptureLength: len(p), Length: len(p)}
		require.NoError(t, w.WritePacket(ci, p))
	}
	return path
}

func TestReplayRadio_RealtimeFiltersByChannel(t *testing.T) {
	path := writePcap(t, layers.LinkTypeIEEE80211Radio,
		radiotap(beacon("one"), 1, -40, true),
		radiotap(beacon("six"), 6, -40, true),
		radiotap(dataFrame(), 0, -60, false),
		radiotap(beacon("one-again"), 1, -41, false),
	)

	r := NewReplayRadio(path, true)
	r.sleep = func(context.Context, time.Duration) {}
	var c collector
	r.RegisterCaptureCallback(c.callback)
	require.NoError(t, r.SetChannel(1))
	require.NoError(t, r.Run(context.Background()))

	bufs := c.all()
	require.Len(t, bufs, 3)
	assert.Len(t, bufs[0], domain.LargeBufferLen)
	assert.Len(t, bufs[1], domain.SmallBufferLen)
	assert.Equal(t, uint64(3), r.Delivered())
	assert.Equal(t, uint64(1), r.Skipped())

	// Frames without a channel are credited to the tuned one
	rx, err := parser.DecodeRxControl(bufs[1])
	require.NoError(t, err)
	assert.Equal(t, uint8(1), rx.Channel)

	ssid := parser.NewPacketHandler(true).Decode(bufs[2]).Category.SSID
	assert.Equal(t, "one-again", ssid.String())
}

func TestReplayRadio_FileFollowsRecordedChannel(t *testing.T) {
	var packets [][]byte
	for i := 0; i < 200; i++ {
		packets = append(packets,
			radiotap(beacon("one"), 1, -40, false),
			radiotap(beacon("six"), 6, -45, false))
	}
	packets = append(packets, radiotap(dataFrame(), 0, -60, false))
	path := writePcap(t, layers.LinkTypeIEEE80211Radio, packets...)

	r := NewReplayRadio(path, false)
	q := aggregator.NewQueue(4)
	agg := aggregator.New(8)
	r.WaitFor(q)
	capture.NewSniffer("replay", parser.NewPacketHandler(true), q, r).Attach(r)

	// Slow consumer
	consumed := make(chan struct{})
	go func() {
		defer close(consumed)
		for n := 0; n < len(packets); n++ {
			rec := <-q.Records()
			if n%20 == 0 {
				time.Sleep(time.Millisecond)
			}
			assert.NoError(t, agg.Apply(rec))
		}
	}()

	require.NoError(t, r.Run(context.Background()))
	select {
	case <-consumed:
	case <-time.After(5 * time.Second):
		t.Fatal("records were lost between replay and consumer")
	}

	assert.Zero(t, q.Dropped())
	assert.Zero(t, r.Skipped())
	assert.Equal(t, uint64(len(packets)), r.Delivered())

	one, err := agg.Snapshot(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(200), one.Total)
	assert.Equal(t, []string{"one"}, one.SSIDs)

	// The trailing frame carries no channel and stays on the last one heard
	six, err := agg.Snapshot(6)
	require.NoError(t, err)
	assert.Equal(t, uint64(201), six.Total)
	assert.Equal(t, uint64(200), six.Subtypes.Beacon)
	assert.Equal(t, 6, r.CurrentChannel())

	// Hopping does not retune a file replay
	require.NoError(t, r.SetChannel(3))
	assert.Equal(t, 6, r.CurrentChannel())
	assert.ErrorIs(t, r.SetChannel(15), domain.ErrInvalidChannel)
}

func TestReplayRadio_WaitForStopsOnCancel(t *testing.T) {
	path := writePcap(t, layers.LinkTypeIEEE80211Radio,
		radiotap(beacon("a"), 1, -40, false),
		radiotap(beacon("b"), 1, -40, false),
	)
	r := NewReplayRadio(path, false)
	q := aggregator.NewQueue(1)
	r.WaitFor(q)
	capture.NewSniffer("replay", parser.NewPacketHandler(true), q, r).Attach(r)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool { return q.Len() == 1 }, time.Second, time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return while waiting for room")
	}
	assert.Equal(t, uint64(1), r.Delivered())
	assert.Zero(t, q.Dropped())
}

func TestReplayRadio_PcapNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.pcapng")
	f, err := os.Create(path)
	require.NoError(t, err)
	w, err := pcapgo.NewNgWriter(f, layers.LinkTypeIEEE80211Radio)
	require.NoError(t, err)
	p := radiotap(beacon("ng"), 11, -50, false)
	require.NoError(t, w.WritePacket(gopacket.CaptureInfo{Timestamp: time.Now(), CaptureLength: len(p), Length: len(p)}, p))
	require.NoError(t, w.Flush())
	require.NoError(t, f.Close())

	r := NewReplayRadio(path, false)
	var c collector
	r.RegisterCaptureCallback(c.callback)
	require.NoError(t, r.SetChannel(11))
	require.NoError(t, r.Run(context.Background()))
	assert.Len(t, c.all(), 1)
}

func TestReplayRadio_Errors(t *testing.T) {
	r := NewReplayRadio(filepath.Join(t.TempDir(), "missing.pcap"), false)
	assert.Error(t, r.Run(context.Background()))

	eth := writePcap(t, layers.LinkTypeEthernet, []byte{1, 2, 3})
	r = NewReplayRadio(eth, false)
	err := r.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported link type")

	garbage := filepath.Join(t.TempDir(), "garbage.pcap")
	require.NoError(t, os.WriteFile(garbage, []byte("definitely not a capture"), 0o600))
	assert.Error(t, NewReplayRadio(garbage, false).Run(context.Background()))

	assert.ErrorIs(t, r.SetChannel(0), domain.ErrInvalidChannel)
}

func TestReplayRadio_Realtime(t *testing.T) {
	path := writePcap(t, layers.LinkTypeIEEE80211Radio,
		radiotap(beacon("a"), 0, -40, false),
		radiotap(beacon("b"), 0, -40, false),
		radiotap(beacon("c"), 0, -40, false),
	)
	r := NewReplayRadio(path, true)
	var slept []time.Duration
	r.sleep = func(_ context.Context, d time.Duration) { slept = append(slept, d) }
	var c collector
	r.RegisterCaptureCallback(c.callback)

	require.NoError(t, r.Run(context.Background()))
	assert.Len(t, c.all(), 3)
	assert.Equal(t, []time.Duration{time.Millisecond, time.Millisecond}, slept)
}

func TestReplayRadio_NoCallback(t *testing.T) {
	path := writePcap(t, layers.LinkTypeIEEE80211Radio, radiotap(beacon("a"), 0, -40, false))
	r := NewReplayRadio(path, false)
	require.NoError(t, r.Run(context.Background()))
	assert.Zero(t, r.Delivered())
}

type fakeSource struct {
	packets [][]byte
	errs    []error
	closed  bool
	lt      layers.LinkType
}

func (f *fakeSource) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, gopacket.CaptureInfo{}, err
	}
	if len(f.packets) == 0 {
		return nil, gopacket.CaptureInfo{}, io.EOF
	}
	p := f.packets[0]
	f.packets = f.packets[1:]
	return p, gopacket.CaptureInfo{}, nil
}

func (f *fakeSource) LinkType() layers.LinkType { return f.lt }
func (f *fakeSource) Close()                    { f.closed = true }

type fakeSwitcher struct {
	mu       sync.Mutex
	channels []int
}

func (s *fakeSwitcher) SetChannel(ch int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !domain.ValidChannel(ch) {
		return domain.ErrInvalidChannel
	}
	s.channels = append(s.channels, ch)
	return nil
}

func TestLinuxRadio_Run(t *testing.T) {
	src := &fakeSource{
		lt:      layers.LinkTypeIEEE80211Radio,
		errs:    []error{pcap.NextErrorTimeoutExpired},
		packets: [][]byte{radiotap(beacon("live"), 9, -30, true), {0xff}},
	}
	sw := &fakeSwitcher{}

	r, err := NewLinuxRadio("wlan0")
	require.NoError(t, err)
	r.switcher = sw
	r.open = func(string) (packetSource, error) { return src, nil }

	var c collector
	r.RegisterCaptureCallback(c.callback)
	require.NoError(t, r.SetChannel(9))
	require.NoError(t, r.Run(context.Background()))

	assert.True(t, src.closed)
	assert.Equal(t, []int{9}, sw.channels)
	require.Len(t, c.all(), 1)
	assert.Equal(t, "live", parser.NewPacketHandler(true).Decode(c.all()[0]).Category.SSID.String())
	assert.Equal(t, uint64(1), r.d.skipped.Load())
}

func TestLinuxRadio_Errors(t *testing.T) {
	_, err := NewLinuxRadio("wlan0; rm -rf /")
	assert.Error(t, err)

	r, err := NewLinuxRadio("wlan0")
	require.NoError(t, err)
	r.switcher = &fakeSwitcher{}
	assert.Error(t, r.SetChannel(15))

	r.open = func(string) (packetSource, error) {
		return &fakeSource{lt: layers.LinkTypeEthernet}, nil
	}
	assert.Error(t, r.Run(context.Background()))

	r.open = func(string) (packetSource, error) {
		return &fakeSource{lt: layers.LinkTypeIEEE80211Radio, errs: []error{io.ErrUnexpectedEOF}}, nil
	}
	assert.ErrorIs(t, r.Run(context.Background()), io.ErrUnexpectedEOF)
}

func TestLinuxRadio_StopsOnCancel(t *testing.T) {
	r, err := NewLinuxRadio("wlan0")
	require.NoError(t, err)
	r.open = func(string) (packetSource, error) {
		return &fakeSource{lt: layers.LinkTypeIEEE80211Radio, errs: []error{pcap.NextErrorTimeoutExpired}}, nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, r.Run(ctx))
}

func TestMockRadio(t *testing.T) {
	r := NewMockRadio("crowded", 0, 99)
	assert.Equal(t, DefaultMockRate, r.Rate)
	assert.False(t, r.Emit(), "no callback registered")

	var c collector
	r.RegisterCaptureCallback(c.callback)

	ch := r.gen.GetAPs()[0].Channel
	require.NoError(t, r.SetChannel(ch))
	h := parser.NewPacketHandler(true)
	for i := 0; i < 100; i++ {
		require.True(t, r.Emit())
	}
	for _, buf := range c.all() {
		v := parser.ClassifyBuffer(len(buf))
		assert.NotEqual(t, domain.VariantUnclassified, v)
		assert.Equal(t, uint8(ch), h.Decode(buf).Rx.Channel)
	}

	assert.ErrorIs(t, r.SetChannel(0), domain.ErrInvalidChannel)
	assert.NoError(t, r.SetPromiscuousMode(true))
}

func TestMockRadio_Run(t *testing.T) {
	r := NewMockRadio("basic", 1000, 5)
	var c collector
	r.RegisterCaptureCallback(c.callback)
	require.NoError(t, r.SetChannel(r.gen.GetAPs()[0].Channel))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.NoError(t, r.Run(ctx))
	assert.NotEmpty(t, c.all())
}
