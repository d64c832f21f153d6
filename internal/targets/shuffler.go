package targets

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
)

const feistelRounds = 6

// randRead is crypto/rand.Read; tests replace it.
var randRead = rand.Read

// FeistelPermutation is format-preserving encryption on a 64-bit domain.
// Maps indices [0, size) to a random 1-to-1 permutation via cycle-walking.
type FeistelPermutation struct {
	keys      [feistelRounds]uint64
	size      uint64
	halfWidth uint   // bits per half-block
	lowerMask uint64 // (1 << halfWidth) - 1
}

// NewFeistelPermutation creates a permutation for a domain of the given
// size, keyed from crypto/rand.
func NewFeistelPermutation(size uint64) (*FeistelPermutation, error) {
	// Smallest even bit-width that covers size
	bits := uint(2)
	for (uint64(1) << bits) < size {
		bits++
	}
	if bits%2 != 0 {
		bits++
	}

	var keys [feistelRounds]uint64
	b := make([]byte, feistelRounds*8)
	if _, err := randRead(b); err != nil {
		return nil, fmt.Errorf("feistel keys: %w", err)
	}
	for i := range keys {
		keys[i] = binary.LittleEndian.Uint64(b[i*8 : (i+1)*8])
	}

	return &FeistelPermutation{
		keys:      keys,
		size:      size,
		halfWidth: bits / 2,
		lowerMask: uint64(1)<<(bits/2) - 1,
	}, nil
}

// Permute maps index to a unique output in [0, size).
// Re-encrypts until the result falls within the domain.
func (f *FeistelPermutation) Permute(index uint64) uint64 {
	x := index
	for {
		x = f.encrypt(x)
		if x < f.size {
			return x
		}
	}
}

func (f *FeistelPermutation) encrypt(block uint64) uint64 {
	left := (block >> f.halfWidth) & f.lowerMask
	right := block & f.lowerMask

	for i := 0; i < feistelRounds; i++ {
		roundVal := roundFunc(right, f.keys[i]) & f.lowerMask
		left, right = right, left^roundVal
	}

	return (left << f.halfWidth) | right
}

// roundFunc is the murmur3 64-bit finalizer keyed by xor.
func roundFunc(val, key uint64) uint64 {
	v := val ^ key
	v ^= v >> 33
	v *= 0xff51afd7ed558ccd
	v ^= v >> 33
	v *= 0xc4ceb9fe1a85ec53
	v ^= v >> 33
	return v
}

// ShuffledIterator visits every RID of a set exactly once in a random
// order, without materialising the set.
type ShuffledIterator struct {
	rs   Ranges
	n    uint64
	perm *FeistelPermutation
	idx  uint64
}

func NewShuffledIterator(rs Ranges) (*ShuffledIterator, error) {
	n := rs.Len()
	perm, err := NewFeistelPermutation(n)
	if err != nil {
		return nil, err
	}
	return &ShuffledIterator{rs: rs, n: n, perm: perm}, nil
}

func (it *ShuffledIterator) Next() (uint32, bool) {
	if it.idx >= it.n {
		return 0, false
	}
	off := it.perm.Permute(it.idx)
	it.idx++
	return it.rs.At(off), true
}
