package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the top-level configuration structure.
type Config struct {
	Harvest HarvestConfig `yaml:"harvest"`
	Targets TargetsConfig `yaml:"targets"`
	Output  OutputConfig  `yaml:"output"`
}

// HarvestConfig holds the settings for each harvest run.
type HarvestConfig struct {
	Rate             int      `yaml:"rate"`              // Queries per second
	GiveUp           Duration `yaml:"giveup"`            // Idle time before a batch ends
	OldPassword      bool     `yaml:"old_password"`      // Request hashes of the previous password
	SourcePort       int      `yaml:"source_port"`       // Local UDP port (0 = ephemeral)
	Port             int      `yaml:"port"`              // Remote NTP port
	Template         string   `yaml:"template"`          // Hex request prefix override
	Preflight        bool     `yaml:"preflight"`         // Plain NTP query before each host
	PreflightTimeout Duration `yaml:"preflight_timeout"` // Timeout for that query
}

// TargetsConfig defines which hosts and RIDs to harvest.
type TargetsConfig struct {
	Hosts     []string `yaml:"hosts"`      // DC names or addresses
	HostsFile string   `yaml:"hosts_file"` // One host per line
	RIDs      string   `yaml:"rids"`       // e.g. "500-1000,1103"
	BatchSize int      `yaml:"batch_size"` // RIDs per harvest run
	Shuffle   bool     `yaml:"shuffle"`    // Randomise order within a batch
}

// OutputConfig controls how results are reported.
type OutputConfig struct {
	File    string         `yaml:"file"`    // Hash file ("-" for stdout)
	Format  string         `yaml:"format"`  // "hashcat" or "jsonl"
	Pcap    string         `yaml:"pcap"`    // Capture received datagrams
	Webhook *WebhookOutput `yaml:"webhook"` // Webhook HTTP POST sink
	Verbose bool           `yaml:"verbose"` // Info-level logging
	Debug   bool           `yaml:"debug"`   // Packet-level diagnostics
	Quiet   bool           `yaml:"quiet"`   // Silent mode
	NoTUI   bool           `yaml:"no_tui"`  // Disable TUI
}

// WebhookOutput configures the webhook output sink.
type WebhookOutput struct {
	URL        string            `yaml:"url"`
	BatchSize  int               `yaml:"batch_size"` // hashes per POST
	Timeout    Duration          `yaml:"timeout"`
	MaxRetries int               `yaml:"max_retries"`
	Headers    map[string]string `yaml:"headers"`
}

// Duration wraps time.Duration for YAML unmarshalling from strings like "5s", "10m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = dur
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// LoadConfig reads a YAML configuration file from the specified path.
// Unknown keys are rejected so that a misspelt option is not silently ignored.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return &cfg, nil
}
