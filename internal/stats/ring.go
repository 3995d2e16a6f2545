// Package stats holds the fixed-capacity rolling statistics used by the detectors.
package stats

import "market_guard/pkg/quant"

// MaxDepth bounds every ring.
const MaxDepth = 8

// Baseline seeds price and volume histories at reset.
const Baseline = 100

// Ring is a fixed-capacity circular buffer with an incrementally maintained sum.
// It is always full: slots are seeded at construction.
// OPTIMIZED: no allocation, the sum is never recomputed from scratch.
type Ring struct {
	buf   [MaxDepth]uint16
	depth int
	shift uint
	head  int    // Oldest slot, next write position
	sum   uint32 // Running sum of buf[:depth]
}

// NewRing creates a ring of depth 4 or 8 with every slot set to seed.
func NewRing(depth int, seed uint16) Ring {
	if depth != 4 && depth != 8 {
		panic("stats.NewRing: depth must be 4 or 8")
	}
	r := Ring{depth: depth, shift: quant.Log2(uint32(depth))}
	for i := 0; i < depth; i++ {
		r.buf[i] = seed
	}
	r.sum = uint32(seed) * uint32(depth)
	return r
}

// Push overwrites the oldest slot and returns the evicted value.
func (r *Ring) Push(v uint16) uint16 {
	evicted := r.buf[r.head]
	r.sum -= uint32(evicted)
	r.buf[r.head] = v
	r.sum += uint32(v)
	r.head++
	if r.head == r.depth {
		r.head = 0
	}
	return evicted
}

// Oldest returns the slot that the next Push evicts.
func (r *Ring) Oldest() uint16 {
	return r.buf[r.head]
}

// Newest returns the most recently pushed value.
func (r *Ring) Newest() uint16 {
	idx := r.head - 1
	if idx < 0 {
		idx = r.depth - 1
	}
	return r.buf[idx]
}

// Sum returns the running sum.
func (r *Ring) Sum() uint32 {
	return r.sum
}

// Mean returns sum/depth by shift.
func (r *Ring) Mean() uint16 {
	return uint16(r.sum >> r.shift)
}

// Depth returns the ring capacity.
func (r *Ring) Depth() int {
	return r.depth
}

// Recount sums the live slots. Used only to check the running sum.
func (r *Ring) Recount() uint32 {
	var s uint32
	for i := 0; i < r.depth; i++ {
		s += uint32(r.buf[i])
	}
	return s
}
