package targets

// Iterator is the interface for generating a sequence of RIDs.
// Implementations are lazy: the RID space is never materialised.
type Iterator interface {
	// Next returns the next RID in the sequence and true.
	// If the sequence is exhausted, it returns 0 and false.
	Next() (uint32, bool)
}

// chainIterator drains each iterator in turn.
type chainIterator struct {
	its []Iterator
}

// Chain concatenates iterators.
func Chain(its ...Iterator) Iterator {
	return &chainIterator{its: its}
}

func (c *chainIterator) Next() (uint32, bool) {
	for len(c.its) > 0 {
		if rid, ok := c.its[0].Next(); ok {
			return rid, true
		}
		c.its = c.its[1:]
	}
	return 0, false
}
