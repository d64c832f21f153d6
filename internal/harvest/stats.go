package harvest

import "sync/atomic"

// Stats counts harvest activity. Safe to read while a run is in progress,
// and may be shared across runs to keep campaign-wide totals.
type Stats struct {
	Sent       atomic.Uint64 // probes written
	Received   atomic.Uint64 // datagrams read, valid or not
	Harvested  atomic.Uint64 // distinct RIDs yielded
	Duplicates atomic.Uint64 // valid replies for an RID already yielded
	Malformed  atomic.Uint64 // datagrams of the wrong length
}

// Snapshot is a point-in-time copy of Stats.
type Snapshot struct {
	Sent       uint64
	Received   uint64
	Harvested  uint64
	Duplicates uint64
	Malformed  uint64
}

func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Sent:       s.Sent.Load(),
		Received:   s.Received.Load(),
		Harvested:  s.Harvested.Load(),
		Duplicates: s.Duplicates.Load(),
		Malformed:  s.Malformed.Load(),
	}
}

// Sub returns the activity between an earlier snapshot and s.
func (s Snapshot) Sub(earlier Snapshot) Snapshot {
	return Snapshot{
		Sent:       s.Sent - earlier.Sent,
		Received:   s.Received - earlier.Received,
		Harvested:  s.Harvested - earlier.Harvested,
		Duplicates: s.Duplicates - earlier.Duplicates,
		Malformed:  s.Malformed - earlier.Malformed,
	}
}
