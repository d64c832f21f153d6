// Package campaign runs a harvest over every host and RID batch in turn.
package campaign

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"timeroast/internal/harvest"
	"timeroast/internal/output"
	"timeroast/internal/preflight"
	"timeroast/internal/targets"
	"timeroast/internal/ui"
)

// CheckFunc is a preflight probe; preflight.Check in production.
type CheckFunc func(host string, port int, timeout time.Duration) (preflight.Result, error)

// Config describes one campaign.
type Config struct {
	Hosts     []string
	RIDs      targets.Ranges // default targets.DefaultSpace
	BatchSize uint32         // default targets.DefaultBatchSize
	Shuffle   bool           // permute RIDs within each batch

	Preflight        bool
	PreflightTimeout time.Duration
	Check            CheckFunc

	Log *log.Entry
}

// Summary totals a finished campaign.
type Summary struct {
	Hosts   int // hosts harvested
	Skipped int // hosts that failed preflight
	Batches int
	Hashes  int
}

// Driver feeds batches to a Harvester and results to a sink. Runs are
// sequential: one socket is open at a time.
type Driver struct {
	cfg     Config
	h       *harvest.Harvester
	sink    output.ResultWriter
	events  chan<- ui.Event
	batches []targets.Ranges
	now     func() time.Time
	summary Summary
}

// New prepares a campaign. events may be nil; sends on it never block.
func New(cfg Config, h *harvest.Harvester, sink output.ResultWriter, events chan<- ui.Event) (*Driver, error) {
	if len(cfg.Hosts) == 0 {
		return nil, fmt.Errorf("no hosts")
	}
	if cfg.RIDs == nil {
		rs, err := targets.ParseRIDs(targets.DefaultSpace)
		if err != nil {
			return nil, err
		}
		cfg.RIDs = rs
	}
	if cfg.RIDs.Len() == 0 {
		return nil, fmt.Errorf("empty RID set")
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = targets.DefaultBatchSize
	}
	if cfg.Check == nil {
		cfg.Check = preflight.Check
	}
	if cfg.Log == nil {
		cfg.Log = log.NewEntry(log.StandardLogger())
	}
	return &Driver{
		cfg:     cfg,
		h:       h,
		sink:    sink,
		events:  events,
		batches: cfg.RIDs.Batches(cfg.BatchSize),
		now:     time.Now,
	}, nil
}

// Batches returns the RID batches every host is taken through.
func (d *Driver) Batches() []targets.Ranges { return d.batches }

// Summary returns the totals so far.
func (d *Driver) Summary() Summary { return d.summary }

// Run harvests every host in order. Setup, transport and sink errors abort
// the campaign; a host that answers nothing simply yields no hashes.
func (d *Driver) Run(ctx context.Context) error {
	for i, host := range d.cfg.Hosts {
		if err := ctx.Err(); err != nil {
			return err
		}
		hl := d.cfg.Log.WithField("host", host)

		if d.cfg.Preflight {
			res, err := d.cfg.Check(host, d.h.Options().Port, d.cfg.PreflightTimeout)
			if err != nil {
				hl.Warnf("preflight failed, skipping host: %v", err)
				d.summary.Skipped++
				d.emit(ui.Event{Type: ui.EvtHostSkipped, Host: host, HostIndex: i, HostCount: len(d.cfg.Hosts), Msg: err.Error()})
				continue
			}
			hl.Infof("preflight ok: %s", res)
		}

		found, err := d.harvestHost(ctx, i, host, hl)
		if err != nil {
			return fmt.Errorf("host %s: %w", host, err)
		}
		d.summary.Hosts++
		d.emit(ui.Event{Type: ui.EvtHostDone, Host: host, HostIndex: i, HostCount: len(d.cfg.Hosts), Found: found})
	}
	return nil
}

func (d *Driver) harvestHost(ctx context.Context, idx int, host string, hl *log.Entry) (int, error) {
	d.emit(ui.Event{Type: ui.EvtHostStart, Host: host, HostIndex: idx, HostCount: len(d.cfg.Hosts), BatchCount: len(d.batches)})
	hl.Infof("processing host %d/%d", idx+1, len(d.cfg.Hosts))

	found := 0
	for j, b := range d.batches {
		ev := ui.Event{
			Host: host, HostIndex: idx, HostCount: len(d.cfg.Hosts),
			First: b.First(), Last: b.Last(), BatchIndex: j, BatchCount: len(d.batches),
		}
		ev.Type = ui.EvtBatchStart
		d.emit(ev)

		bl := hl.WithField("batch", b.String())
		bl.Debugf("batch %d/%d", j+1, len(d.batches))

		it, err := d.iterator(b)
		if err != nil {
			return found, err
		}
		run, err := d.h.Start(ctx, host, it)
		if err != nil {
			return found, err
		}
		n, err := d.drain(run, host, ev)
		found += n
		d.summary.Batches++

		ev.Type = ui.EvtBatchDone
		ev.Found = n
		d.emit(ev)
		if err != nil {
			return found, err
		}
		if n > 0 {
			bl.Infof("%d hashes", n)
		}
	}
	return found, nil
}

func (d *Driver) drain(run *harvest.Run, host string, ev ui.Event) (int, error) {
	defer run.Close()
	n := 0
	for run.Next() {
		res := run.Result()
		out := output.NewResult(host, res.RID, res.Hash[:], res.Salt[:], d.now())
		if err := d.sink.Write(out); err != nil {
			return n, fmt.Errorf("write result: %w", err)
		}
		n++
		d.summary.Hashes++

		ev.Type = ui.EvtHash
		ev.RID = res.RID
		ev.Hashcat = out.Hashcat
		d.emit(ev)
	}
	return n, run.Err()
}

func (d *Driver) iterator(b targets.Ranges) (targets.Iterator, error) {
	if d.cfg.Shuffle {
		return targets.NewShuffledIterator(b)
	}
	return b.Iterator(), nil
}

// emit drops the event if the UI is behind.
func (d *Driver) emit(ev ui.Event) {
	if d.events == nil {
		return
	}
	select {
	case d.events <- ev:
	default:
	}
}
