package radio

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
	"github.com/lcalzada-xor/dgramsniff/internal/adapters/sniffer/driver"
	"github.com/lcalzada-xor/dgramsniff/internal/adapters/sniffer/hopping"
	"github.com/lcalzada-xor/dgramsniff/internal/core/domain"
	"github.com/lcalzada-xor/dgramsniff/internal/core/ports"
)

const (
	snapLen     = 2048
	readTimeout = 250 * time.Millisecond
)

// packetSource is the subset of *pcap.Handle the live radio reads from.
type packetSource interface {
	gopacket.PacketDataSource
	LinkType() layers.LinkType
	Close()
}

// LinuxRadio captures from a monitor-mode interface with libpcap and tunes
// it with iw.
type LinuxRadio struct {
	Interface string

	switcher hopping.ChannelSwitcher
	open     func(iface string) (packetSource, error)
	d        deliverer
	monitor  bool
}

var _ ports.Radio = (*LinuxRadio)(nil)

// NewLinuxRadio creates a radio on iface. Capture starts with Run.
func NewLinuxRadio(iface string) (*LinuxRadio, error) {
	if !domain.IsValidInterface(iface) {
		return nil, fmt.Errorf("invalid interface name %q", iface)
	}
	r := &LinuxRadio{
		Interface: iface,
		switcher:  hopping.NewLinuxChannelSwitcher(iface),
		open:      openLive,
	}
	return r, nil
}

func openLive(iface string) (packetSource, error) {
	handle, err := pcap.OpenLive(iface, snapLen, true, readTimeout)
	if err != nil {
		return nil, fmt.Errorf("pcap open failed: %w", err)
	}
	return handle, nil
}

// SetChannel tunes the interface and credits subsequent frames to ch.
func (r *LinuxRadio) SetChannel(ch int) error {
	if err := r.switcher.SetChannel(ch); err != nil {
		return err
	}
	r.d.channel.Store(int32(ch))
	return nil
}

// SetPromiscuousMode switches the interface in or out of monitor mode.
func (r *LinuxRadio) SetPromiscuousMode(enabled bool) error {
	if enabled == r.monitor {
		return nil
	}
	if enabled {
		if err := driver.EnableMonitorMode(r.Interface); err != nil {
			return err
		}
		r.monitor = true
		r.warnMissingChannels()
		return nil
	}
	r.monitor = false
	return driver.DisableMonitorMode(r.Interface)
}

func (r *LinuxRadio) warnMissingChannels() {
	supported, err := driver.GetInterfaceChannels(r.Interface)
	if err != nil {
		slog.Debug("Could not list supported channels", "interface", r.Interface, "error", err)
		return
	}
	if missing := driver.MissingScanChannels(supported); len(missing) > 0 {
		slog.Warn("Interface cannot tune every scan channel", "interface", r.Interface, "missing", missing)
	}
}

// RegisterCaptureCallback installs fn.
func (r *LinuxRadio) RegisterCaptureCallback(fn ports.CaptureCallback) {
	r.d.register(fn)
}

// Run captures until ctx is cancelled.
func (r *LinuxRadio) Run(ctx context.Context) error {
	src, err := r.open(r.Interface)
	if err != nil {
		return err
	}
	defer src.Close()

	if err := checkLinkType(src.LinkType()); err != nil {
		return fmt.Errorf("%s: %w", r.Interface, err)
	}

	slog.Info("Live capture started", "interface", r.Interface)
	err = r.d.pump(ctx, src)
	slog.Info("Live capture stopped", "interface", r.Interface,
		"delivered", r.d.delivered.Load(), "skipped", r.d.skipped.Load())
	return err
}
