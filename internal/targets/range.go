package targets

import "fmt"

// Range is an inclusive span of RIDs. Inclusive bounds let a range end at
// 0xffffffff without overflow.
type Range struct {
	First uint32
	Last  uint32
}

// Len returns the number of RIDs in r.
func (r Range) Len() uint64 {
	if r.Last < r.First {
		return 0
	}
	return uint64(r.Last-r.First) + 1
}

func (r Range) String() string {
	if r.First == r.Last {
		return fmt.Sprintf("%d", r.First)
	}
	return fmt.Sprintf("%d-%d", r.First, r.Last)
}

// RangeIterator walks a Range in ascending order.
type RangeIterator struct {
	r    Range
	next uint32
	done bool
}

func NewRangeIterator(r Range) *RangeIterator {
	return &RangeIterator{r: r, next: r.First, done: r.Len() == 0}
}

func (it *RangeIterator) Next() (uint32, bool) {
	if it.done {
		return 0, false
	}
	rid := it.next
	if rid == it.r.Last {
		it.done = true
	} else {
		it.next++
	}
	return rid, true
}

// Ranges is an ordered set of spans, typically parsed from a RID spec.
type Ranges []Range

// Len is the total number of RIDs across all spans.
func (rs Ranges) Len() uint64 {
	var n uint64
	for _, r := range rs {
		n += r.Len()
	}
	return n
}

// Batches cuts the set into consecutive batches of at most size RIDs, in
// order. A batch may end in one span and continue in the next, so small
// trailing spans share a batch instead of each waiting out a give-up.
func (rs Ranges) Batches(size uint32) []Ranges {
	if size == 0 {
		return []Ranges{rs}
	}
	var (
		out  []Ranges
		cur  Ranges
		room = uint64(size)
	)
	for _, r := range rs {
		for r.Len() > 0 {
			part := r
			if r.Len() > room {
				part.Last = r.First + uint32(room) - 1
			}
			cur = append(cur, part)
			room -= part.Len()
			if room == 0 {
				out = append(out, cur)
				cur, room = nil, uint64(size)
			}
			if part.Last == r.Last {
				break
			}
			r.First = part.Last + 1
		}
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

// First and Last are the lowest and highest RIDs of an ordered set.
func (rs Ranges) First() uint32 { return rs[0].First }
func (rs Ranges) Last() uint32  { return rs[len(rs)-1].Last }

// At returns the i-th RID of the set, counting from 0. i must be below Len.
func (rs Ranges) At(i uint64) uint32 {
	for _, r := range rs {
		if n := r.Len(); i >= n {
			i -= n
			continue
		}
		return r.First + uint32(i)
	}
	panic(fmt.Sprintf("targets: index %d out of range %s", i, rs))
}

// Iterator walks every span in order.
func (rs Ranges) Iterator() Iterator {
	its := make([]Iterator, len(rs))
	for i, r := range rs {
		its[i] = NewRangeIterator(r)
	}
	return Chain(its...)
}

func (rs Ranges) String() string {
	s := ""
	for i, r := range rs {
		if i > 0 {
			s += ","
		}
		s += r.String()
	}
	return s
}
