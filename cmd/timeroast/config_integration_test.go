package main

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"timeroast/internal/config"
)

// helper: full config for testing
func fullTestConfig() *config.Config {
	return &config.Config{
		Harvest: config.HarvestConfig{
			Rate:             90,
			GiveUp:           config.Duration{Duration: 30 * time.Second},
			OldPassword:      true,
			SourcePort:       123,
			Port:             1123,
			Preflight:        true,
			PreflightTimeout: config.Duration{Duration: 5 * time.Second},
		},
		Targets: config.TargetsConfig{
			Hosts:     []string{"dc01.corp.local"},
			HostsFile: "dcs.txt",
			RIDs:      "500-1000",
			BatchSize: 250,
			Shuffle:   true,
		},
		Output: config.OutputConfig{
			File:    "hashes.txt",
			Format:  "jsonl",
			Pcap:    "replies.pcap",
			Webhook: &config.WebhookOutput{URL: "https://crack.example/ingest"},
			Verbose: true,
			Debug:   true,
			Quiet:   true,
			NoTUI:   true,
		},
	}
}

func parsedOptions(t *testing.T, args ...string) (*options, *pflag.FlagSet) {
	t.Helper()
	o := &options{}
	flags := newRootCommand(o).Flags()
	if err := flags.Parse(args); err != nil {
		t.Fatalf("parse %v: %v", args, err)
	}
	return o, flags
}

func TestApplyConfig_AllFieldsApplied(t *testing.T) {
	o := &options{}
	cmd := newRootCommand(o)
	applyConfig(fullTestConfig(), cmd.Flags(), o)

	if o.rate != 90 {
		t.Errorf("rate: got %d, want 90", o.rate)
	}
	if o.giveUp != 30*time.Second {
		t.Errorf("giveup: got %v, want 30s", o.giveUp)
	}
	if !o.oldPassword || o.sourcePort != 123 || o.port != 1123 {
		t.Errorf("old/src-port/port not applied: %v %d %d", o.oldPassword, o.sourcePort, o.port)
	}
	if !o.preflight || o.preflightTimeout != 5*time.Second {
		t.Errorf("preflight not applied: %v %v", o.preflight, o.preflightTimeout)
	}
	if o.hostsFile != "dcs.txt" || o.rids != "500-1000" || o.batchSize != 250 || !o.shuffle {
		t.Errorf("targets not applied: %+v", o)
	}
	if o.outputFile != "hashes.txt" || o.format != "jsonl" || o.pcap != "replies.pcap" {
		t.Errorf("output not applied: %q %q %q", o.outputFile, o.format, o.pcap)
	}
	if o.webhookURL != "https://crack.example/ingest" {
		t.Errorf("webhook: got %q", o.webhookURL)
	}
	if !o.verbose || !o.debug || !o.quiet || !o.noTUI {
		t.Errorf("ui flags not applied: %+v", o)
	}
}

func TestApplyConfig_CLIOverridesConfig(t *testing.T) {
	o := &options{}
	cmd := newRootCommand(o)
	if err := cmd.Flags().Parse([]string{"--rate", "20", "--rids", "1-10", "-o", "cli.txt", "--giveup", "3s"}); err != nil {
		t.Fatal(err)
	}
	applyConfig(fullTestConfig(), cmd.Flags(), o)

	if o.rate != 20 {
		t.Errorf("rate: CLI value lost, got %d", o.rate)
	}
	if o.rids != "1-10" {
		t.Errorf("rids: CLI value lost, got %q", o.rids)
	}
	if o.outputFile != "cli.txt" {
		t.Errorf("output: CLI value lost, got %q", o.outputFile)
	}
	if o.giveUp != 3*time.Second {
		t.Errorf("giveup: CLI value lost, got %v", o.giveUp)
	}
	// Unset flags still come from the config.
	if o.batchSize != 250 {
		t.Errorf("batch-size: got %d, want 250 from config", o.batchSize)
	}
}

func TestApplyConfig_EmptyConfigKeepsDefaults(t *testing.T) {
	o, flags := parsedOptions(t)
	applyConfig(&config.Config{}, flags, o)

	if o.rate != 180 || o.giveUp != 24*time.Second || o.batchSize != 30000 {
		t.Errorf("defaults changed: rate=%d giveup=%v batch=%d", o.rate, o.giveUp, o.batchSize)
	}
	if o.rids != "0-299999" || o.outputFile != "-" || o.port != 123 {
		t.Errorf("defaults changed: rids=%q output=%q port=%d", o.rids, o.outputFile, o.port)
	}
}

func TestCollectHosts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dcs.txt")
	if err := os.WriteFile(path, []byte("# lab\ndc02\n\ndc03\ndc01\n"), 0600); err != nil {
		t.Fatal(err)
	}
	o, _ := parsedOptions(t, "-f", path, "-t", "dc04,dc05", "-t", "dc02")
	cfg := &config.Config{Targets: config.TargetsConfig{Hosts: []string{"dc01"}}}

	hosts, err := collectHosts(o, cfg, []string{"dc06", "dc01"})
	if err != nil {
		t.Fatalf("collectHosts: %v", err)
	}
	want := []string{"dc01", "dc02", "dc03", "dc04", "dc05", "dc06"}
	if len(hosts) != len(want) {
		t.Fatalf("got %v, want %v", hosts, want)
	}
	for i := range want {
		if hosts[i] != want[i] {
			t.Errorf("host %d: got %q, want %q", i, hosts[i], want[i])
		}
	}
}

func TestCollectHostsMissingFile(t *testing.T) {
	o := &options{hostsFile: filepath.Join(t.TempDir(), "missing.txt")}
	if _, err := collectHosts(o, nil, nil); err == nil {
		t.Fatal("expected error for missing host file")
	}
}

func TestRunRequiresHosts(t *testing.T) {
	o, flags := parsedOptions(t, "-q")
	if err := run(flags, o, nil); err == nil {
		t.Fatal("expected error without hosts")
	}
}

func TestRunRejectsBadRIDs(t *testing.T) {
	o, flags := parsedOptions(t, "-q", "--rids", "10-1")
	if err := run(flags, o, []string{"127.0.0.1"}); err == nil {
		t.Fatal("expected error for inverted RID range")
	}
}

func TestRunRejectsBatchSizeOutOfRange(t *testing.T) {
	sizes := []string{"0", "-5"}
	if strconv.IntSize == 64 {
		// Must not wrap to 0 and fall back to the default batch size.
		sizes = append(sizes, "4294967296")
	}
	for _, size := range sizes {
		o, flags := parsedOptions(t, "-q", "--batch-size="+size)
		err := run(flags, o, []string{"127.0.0.1"})
		if err == nil || !strings.Contains(err.Error(), "invalid batch size") {
			t.Errorf("--batch-size %s: expected invalid batch size error, got %v", size, err)
		}
	}
}
