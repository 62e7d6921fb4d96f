package radio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcapgo"
	"github.com/lcalzada-xor/dgramsniff/internal/core/domain"
	"github.com/lcalzada-xor/dgramsniff/internal/core/ports"
)

// ReplayRadio feeds a radiotap pcap or pcapng file through the capture
// callback.
//
// In realtime mode it behaves like a radio: packets come out at capture
// speed and frames tagged with a channel are only heard while the radio is
// tuned to it. Otherwise the file is read as fast as the consumer allows and
// the radio follows each frame's own channel, so nothing is skipped for
// being off-channel; CurrentChannel reports the channel of the frame being
// delivered and SetChannel only validates.
type ReplayRadio struct {
	Path string
	// Realtime paces delivery by the capture timestamps.
	Realtime bool

	d     deliverer
	sleep func(ctx context.Context, d time.Duration)
}

var _ ports.Radio = (*ReplayRadio)(nil)

// NewReplayRadio creates a replay radio over the capture file at path.
func NewReplayRadio(path string, realtime bool) *ReplayRadio {
	r := &ReplayRadio{Path: path, Realtime: realtime, sleep: sleepCtx}
	r.d.filter = realtime
	r.d.follow = !realtime
	r.d.channel.Store(1)
	return r
}

func (r *ReplayRadio) SetChannel(ch int) error {
	if !domain.ValidChannel(ch) {
		return fmt.Errorf("set channel %d: %w", ch, domain.ErrInvalidChannel)
	}
	if r.d.follow {
		// The recorded channels win over the hopper
		return nil
	}
	r.d.channel.Store(int32(ch))
	return nil
}

func (r *ReplayRadio) SetPromiscuousMode(bool) error { return nil }

func (r *ReplayRadio) RegisterCaptureCallback(fn ports.CaptureCallback) {
	r.d.register(fn)
}

// CurrentChannel returns the channel the radio is tuned to, which outside
// realtime mode is the channel of the last delivered frame.
func (r *ReplayRadio) CurrentChannel() int {
	return int(r.d.channel.Load())
}

// WaitFor makes delivery wait until b has room, so a file replay never
// overflows the consumer. Call before Run.
func (r *ReplayRadio) WaitFor(b Backlog) {
	r.d.backlog = b
}

// Delivered returns how many frames reached the callback.
func (r *ReplayRadio) Delivered() uint64 { return r.d.delivered.Load() }

// Skipped returns how many frames were off-channel or undecodable.
func (r *ReplayRadio) Skipped() uint64 { return r.d.skipped.Load() }

// Run replays the file once. It returns nil at end of file.
func (r *ReplayRadio) Run(ctx context.Context) error {
	f, err := os.Open(r.Path)
	if err != nil {
		return fmt.Errorf("open capture: %w", err)
	}
	defer f.Close()

	src, err := openCaptureFile(f)
	if err != nil {
		return fmt.Errorf("%s: %w", r.Path, err)
	}

	var ds gopacket.PacketDataSource = src
	if r.Realtime {
		ds = &pacedSource{src: src, ctx: ctx, sleep: r.sleep}
	}

	slog.Info("Replay started", "file", r.Path, "realtime", r.Realtime)
	err = r.d.pump(ctx, ds)
	slog.Info("Replay finished", "file", r.Path,
		"delivered", r.d.delivered.Load(), "skipped", r.d.skipped.Load())
	return err
}

// openCaptureFile tries the classic pcap format first, then pcapng.
func openCaptureFile(f io.ReadSeeker) (gopacket.PacketDataSource, error) {
	if rd, err := pcapgo.NewReader(f); err == nil {
		return rd, checkLinkType(rd.LinkType())
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	ng, err := pcapgo.NewNgReader(f, pcapgo.DefaultNgReaderOptions)
	if err != nil {
		return nil, fmt.Errorf("not a pcap or pcapng file: %w", err)
	}
	return ng, checkLinkType(ng.LinkType())
}

// pacedSource sleeps between packets so they come out at capture speed.
type pacedSource struct {
	src   gopacket.PacketDataSource
	ctx   context.Context
	sleep func(ctx context.Context, d time.Duration)
	last  time.Time
}

func (p *pacedSource) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	data, ci, err := p.src.ReadPacketData()
	if err != nil {
		return data, ci, err
	}
	if !p.last.IsZero() {
		if gap := ci.Timestamp.Sub(p.last); gap > 0 {
			p.sleep(p.ctx, gap)
		}
	}
	p.last = ci.Timestamp
	return data, ci, nil
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
