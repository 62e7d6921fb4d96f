package driver

import (
	"bufio"
	"bytes"
	"fmt"
	"log/slog"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/lcalzada-xor/dgramsniff/internal/core/domain"
)

// Runner executes an external command and returns its combined output.
// Tests replace it.
var Runner = func(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).CombinedOutput()
}

// reChannel captures the channel number in "* 2412 MHz [1] (20.0 dBm)".
var reChannel = regexp.MustCompile(`\[([0-9]+)\]`)

// GetInterfaceChannels returns the enabled channels of the phy behind iface.
func GetInterfaceChannels(iface string) ([]int, error) {
	phy, err := getPhyForInterface(iface)
	if err != nil {
		return nil, err
	}
	out, err := Runner("iw", "phy", phy, "info")
	if err != nil {
		return nil, fmt.Errorf("iw phy %s info: %w", phy, err)
	}
	return parsePhyChannels(out), nil
}

// MissingScanChannels lists the channels 1..14 that the interface cannot tune.
func MissingScanChannels(supported []int) []int {
	have := make(map[int]bool, len(supported))
	for _, ch := range supported {
		have[ch] = true
	}
	var missing []int
	for ch := 1; ch <= domain.MaxChannel; ch++ {
		if !have[ch] {
			missing = append(missing, ch)
		}
	}
	return missing
}

func getPhyForInterface(iface string) (string, error) {
	out, err := Runner("iw", "dev")
	if err != nil {
		return "", err
	}

	// phy#0
	// 		Interface wlan0
	scanner := bufio.NewScanner(bytes.NewReader(out))
	currentPhy := ""
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "phy#") {
			currentPhy = line
		} else if line == "Interface "+iface {
			// "phy#0" -> "phy0"
			return strings.Replace(currentPhy, "#", "", 1), nil
		}
	}
	return "", fmt.Errorf("interface %s not found in iw dev output", iface)
}

func parsePhyChannels(out []byte) []int {
	var channels []int

	scanner := bufio.NewScanner(bytes.NewReader(out))
	inFrequencies := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "Frequencies:" {
			inFrequencies = true
			continue
		}
		if !inFrequencies {
			continue
		}
		// "Bitrates:" also lists lines with "*", the block ends at the first other line
		if !strings.HasPrefix(line, "*") {
			inFrequencies = false
			continue
		}
		if strings.Contains(line, "(disabled)") {
			continue
		}
		if m := reChannel.FindStringSubmatch(line); len(m) > 1 {
			ch, _ := strconv.Atoi(m[1])
			channels = append(channels, ch)
		}
	}
	return channels
}

// EnableMonitorMode puts the interface into monitor mode
func EnableMonitorMode(iface string) error {
	if !domain.IsValidInterface(iface) {
		return fmt.Errorf("invalid interface name %q", iface)
	}
	slog.Info("Enabling monitor mode", "interface", iface)
	if err := runCmd("ip", "link", "set", iface, "down"); err != nil {
		return err
	}
	if err := runCmd("iw", iface, "set", "type", "monitor"); err != nil {
		slog.Error("Error setting monitor mode. If you see 'Device or resource busy', stop NetworkManager/wpa_supplicant and retry", "interface", iface)
		return err
	}
	return runCmd("ip", "link", "set", iface, "up")
}

// DisableMonitorMode puts the interface back into managed mode
func DisableMonitorMode(iface string) error {
	if !domain.IsValidInterface(iface) {
		return fmt.Errorf("invalid interface name %q", iface)
	}
	slog.Info("Restoring managed mode", "interface", iface)
	// Keep going so the interface comes back up even if the type change fails
	errDown := runCmd("ip", "link", "set", iface, "down")
	errType := runCmd("iw", iface, "set", "type", "managed")
	errUp := runCmd("ip", "link", "set", iface, "up")
	for _, err := range []error{errDown, errType, errUp} {
		if err != nil {
			return err
		}
	}
	return nil
}

func runCmd(name string, args ...string) error {
	output, err := Runner(name, args...)
	if err != nil {
		slog.Warn("Command failed", "cmd", name, "args", args, "output", string(output), "error", err)
		return fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return nil
}
