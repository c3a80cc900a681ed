package manager

import (
	"fmt"
	"os"
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config holds the manager's timing knobs and policies. Zero values are
// filled from the default tags; YAML overrides are optional.
type Config struct {
	LogLevel string `yaml:"log_level" default:"info"`

	// ScanPeriod is how often the scanner loop refreshes while active;
	// ScannerTick keeps the loop responsive to activation and shutdown
	// between refreshes.
	ScanPeriod  time.Duration `yaml:"scan_period" default:"5s"`
	ScannerTick time.Duration `yaml:"scanner_tick" default:"500ms"`

	// DiscoveryRetryInterval paces adapter discovery attempts. No radio
	// hardware is a normal operating mode, so this loop never gives up.
	DiscoveryRetryInterval time.Duration `yaml:"discovery_retry_interval" default:"1s"`

	// SignalWait bounds each wait on the property-change subscription;
	// InactivePoll is the monitor's sleep while the manager is inactive.
	SignalWait      time.Duration `yaml:"signal_wait" default:"1s"`
	InactivePoll    time.Duration `yaml:"inactive_poll" default:"1s"`
	SignalQueueSize int           `yaml:"signal_queue_size" default:"10"`

	// CallTimeout bounds every blocking bus call; no in-flight call is
	// otherwise cancellable.
	CallTimeout time.Duration `yaml:"call_timeout" default:"10s"`

	// StopJoinTimeout bounds each loop join during Stop; shutdown
	// proceeds regardless of the join outcome.
	StopJoinTimeout time.Duration `yaml:"stop_join_timeout" default:"2s"`

	// DeduplicateAddresses collapses snapshot entries sharing one
	// hardware address to the highest-priority one. Off by default: the
	// registry historically shows one entry per object path.
	DeduplicateAddresses bool `yaml:"deduplicate_addresses" default:"false"`
}

// DefaultConfig returns a Config with every field set from its default tag.
func DefaultConfig() *Config {
	cfg := &Config{}
	defaults.SetDefaults(cfg)
	return cfg
}

// LoadConfig reads a YAML file over the defaults. An empty path returns
// the defaults unchanged.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// NewLogger creates a logger configured from the LogLevel field.
func (c *Config) NewLogger() (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}

	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	return logger, nil
}
