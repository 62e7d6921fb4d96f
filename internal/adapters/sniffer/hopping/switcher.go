package hopping

import (
	"fmt"
	"os/exec"

	"github.com/lcalzada-xor/dgramsniff/internal/core/domain"
)

// ChannelSwitcher abstracts the mechanism for changing WiFi channels.
type ChannelSwitcher interface {
	SetChannel(channel int) error
}

// LinuxChannelSwitcher implements ChannelSwitcher using the 'iw' command.
type LinuxChannelSwitcher struct {
	Interface string
	run       func(name string, args ...string) error
}

// NewLinuxChannelSwitcher creates a new LinuxChannelSwitcher.
func NewLinuxChannelSwitcher(iface string) *LinuxChannelSwitcher {
	return &LinuxChannelSwitcher{Interface: iface, run: runCommand}
}

func runCommand(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}

// SetChannel executes the iw command to set the channel.
func (s *LinuxChannelSwitcher) SetChannel(channel int) error {
	if !domain.ValidChannel(channel) {
		return fmt.Errorf("set channel %d: %w", channel, domain.ErrInvalidChannel)
	}
	if !domain.IsValidInterface(s.Interface) {
		return fmt.Errorf("invalid interface name %q", s.Interface)
	}
	if err := s.run("iw", s.Interface, "set", "channel", fmt.Sprintf("%d", channel)); err != nil {
		return fmt.Errorf("failed to set channel %d on %s: %w", channel, s.Interface, err)
	}
	return nil
}
