package config

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/lcalzada-xor/dgramsniff/internal/core/domain"
)

// Capture sources
const (
	SourceLive   = "live"
	SourceReplay = "replay"
	SourceMock   = "mock"
)

// Config holds all application configuration.
type Config struct {
	Interface    string
	Source       string
	PcapPath     string
	Realtime     bool
	MockScenario string
	MockRate     int
	Addr         string
	Origins      []string
	DBPath       string
	Debug        bool

	Dwell           time.Duration
	ReportThreshold int
	DecodeFrames    bool
	QueueSize       int
	PollInterval    time.Duration
	StartChannel    int
	MaxSSIDs        int
	Console         bool
}

// Core is the configuration the capture core consumes.
type Core struct {
	ReportThreshold uint64
	Dwell           time.Duration
	// DecodeFrames false is the record-only mode: only length buckets and
	// totals advance.
	DecodeFrames bool
}

// Load parses command line flags and environment variables to populate Config.
// Flags take precedence over environment variables.
func Load() (*Config, error) {
	return LoadFrom(os.Args[1:], os.LookupEnv)
}

// LoadFrom is Load over explicit arguments and environment.
func LoadFrom(args []string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := &Config{}
	env := envReader{lookup: lookup}

	// Defaults and Environment Variables
	cfg.Interface = env.str("DGS_INTERFACE", "wlan0")
	cfg.Source = env.str("DGS_SOURCE", SourceLive)
	cfg.PcapPath = env.str("DGS_PCAP", "")
	cfg.Realtime = env.boolean("DGS_REALTIME", false)
	cfg.MockScenario = env.str("DGS_MOCK_SCENARIO", "basic")
	cfg.MockRate = env.integer("DGS_MOCK_RATE", 200)
	cfg.Addr = env.str("DGS_ADDR", ":8080")
	origins := env.str("DGS_ORIGINS", "")
	cfg.DBPath = env.str("DGS_DB", "")
	if _, set := lookup("DGS_DB"); !set {
		cfg.DBPath = getDefaultDBPath()
	}
	cfg.Debug = env.boolean("DGS_DEBUG", false)
	cfg.Dwell = env.duration("DGS_DWELL", 60*time.Second)
	cfg.ReportThreshold = env.integer("DGS_REPORT_THRESHOLD", 100)
	cfg.DecodeFrames = env.boolean("DGS_DECODE", true)
	cfg.QueueSize = env.integer("DGS_QUEUE", 4096)
	cfg.PollInterval = env.duration("DGS_POLL", 100*time.Millisecond)
	cfg.StartChannel = env.integer("DGS_START_CHANNEL", 1)
	cfg.MaxSSIDs = env.integer("DGS_MAX_SSIDS", 64)
	cfg.Console = env.boolean("DGS_CONSOLE", true)

	// Command Line Flags (Override Env)
	fs := flag.NewFlagSet("dgramsniff", flag.ContinueOnError)
	fs.StringVar(&cfg.Interface, "i", cfg.Interface, "Network interface in monitor mode")
	fs.StringVar(&cfg.Source, "source", cfg.Source, "Capture source: live, replay or mock")
	fs.StringVar(&cfg.PcapPath, "pcap", cfg.PcapPath, "Radiotap pcap/pcapng file to replay")
	fs.BoolVar(&cfg.Realtime, "realtime", cfg.Realtime, "Replay at capture speed")
	fs.StringVar(&cfg.MockScenario, "scenario", cfg.MockScenario, "Mock scenario: basic, crowded or quiet")
	fs.IntVar(&cfg.MockRate, "mock-rate", cfg.MockRate, "Mock frames per second")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP server address (empty to disable)")
	fs.StringVar(&origins, "origins", origins, "Extra WebSocket origins (comma separated)")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to SQLite report archive (empty to disable)")
	fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "Enable verbose debug logging")
	fs.DurationVar(&cfg.Dwell, "dwell", cfg.Dwell, "Channel dwell time")
	fs.IntVar(&cfg.ReportThreshold, "threshold", cfg.ReportThreshold, "Captures between automatic summaries")
	fs.BoolVar(&cfg.DecodeFrames, "decode", cfg.DecodeFrames, "Decode headers and classify frames (false: record lengths only)")
	fs.IntVar(&cfg.QueueSize, "queue", cfg.QueueSize, "Telemetry queue capacity")
	fs.DurationVar(&cfg.PollInterval, "poll", cfg.PollInterval, "Main loop poll interval")
	fs.IntVar(&cfg.StartChannel, "channel", cfg.StartChannel, "First channel to listen on")
	fs.IntVar(&cfg.MaxSSIDs, "max-ssids", cfg.MaxSSIDs, "SSIDs remembered per channel")
	fs.BoolVar(&cfg.Console, "console", cfg.Console, "Read operator commands from stdin and print reports")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg.Origins = splitList(origins)

	return cfg, nil
}

// Validate rejects configurations the core cannot run with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Source {
	case SourceLive:
		if !domain.IsValidInterface(c.Interface) {
			errs = append(errs, fmt.Errorf("invalid interface name %q", c.Interface))
		}
	case SourceReplay:
		if c.PcapPath == "" {
			errs = append(errs, errors.New("replay needs a pcap file"))
		}
	case SourceMock:
		if c.MockRate <= 0 {
			errs = append(errs, errors.New("mock rate must be positive"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown source %q", c.Source))
	}
	if c.Dwell <= 0 {
		errs = append(errs, errors.New("dwell must be positive"))
	}
	if c.ReportThreshold <= 0 {
		errs = append(errs, errors.New("report threshold must be positive"))
	}
	if c.QueueSize <= 0 {
		errs = append(errs, errors.New("queue size must be positive"))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, errors.New("poll interval must be positive"))
	}
	if c.MaxSSIDs <= 0 {
		errs = append(errs, errors.New("max ssids must be positive"))
	}
	if !domain.ValidChannel(c.StartChannel) {
		errs = append(errs, fmt.Errorf("start channel %d: %w", c.StartChannel, domain.ErrInvalidChannel))
	}
	return errors.Join(errs...)
}

// Core returns the consolidated core settings.
func (c *Config) Core() Core {
	threshold := uint64(0)
	if c.ReportThreshold > 0 {
		threshold = uint64(c.ReportThreshold)
	}
	return Core{
		ReportThreshold: threshold,
		Dwell:           c.Dwell,
		DecodeFrames:    c.DecodeFrames,
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

type envReader struct {
	lookup func(string) (string, bool)
}

func (e envReader) str(key, fallback string) string {
	if value, ok := e.lookup(key); ok {
		return value
	}
	return fallback
}

func (e envReader) integer(key string, fallback int) int {
	if value, ok := e.lookup(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		slog.Warn("Ignoring malformed integer", "env", key, "value", value)
	}
	return fallback
}

func (e envReader) boolean(key string, fallback bool) bool {
	if value, ok := e.lookup(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
		slog.Warn("Ignoring malformed boolean", "env", key, "value", value)
	}
	return fallback
}

func (e envReader) duration(key string, fallback time.Duration) time.Duration {
	if value, ok := e.lookup(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		// Bare numbers are seconds
		if n, err := strconv.Atoi(value); err == nil {
			return time.Duration(n) * time.Second
		}
		slog.Warn("Ignoring malformed duration", "env", key, "value", value)
	}
	return fallback
}

// getDefaultDBPath returns the default archive path in the user's home
// directory, creating the directory if needed.
func getDefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		slog.Warn("Could not get user home directory, using current dir", "error", err)
		return "dgramsniff.db"
	}

	dir := filepath.Join(home, ".dgramsniff")
	if err := os.MkdirAll(dir, 0755); err != nil {
		slog.Warn("Could not create .dgramsniff directory, using current dir", "error", err)
		return "dgramsniff.db"
	}

	return filepath.Join(dir, "reports.db")
}
