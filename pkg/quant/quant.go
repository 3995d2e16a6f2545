// Package quant holds the fixed-width integer types shared by the pipeline.
package quant

import (
	"sync/atomic"

	"market_guard/pkg/safe"
)

// MaxTick is the largest value a 12-bit event field can carry.
const MaxTick = 4095

// Tick is a 12-bit event value (price in ticks or volume in lots).
type Tick uint16

// NewTick saturates v into the 12-bit range.
func NewTick(v int) Tick {
	return Tick(safe.Sat12(v))
}

// TimeStamp is a unix timestamp in milliseconds.
type TimeStamp int64

// Log2 returns floor(log2(v)) for v > 0 and 0 otherwise.
func Log2(v uint32) uint {
	var n uint
	for v > 1 {
		v >>= 1
		n++
	}
	return n
}

// CeilLog2 returns the smallest k with 1<<k >= v, and 0 for v <= 1.
func CeilLog2(v uint32) uint {
	if v <= 1 {
		return 0
	}
	return Log2(v-1) + 1
}

// ShiftRatio approximates (num << scale) / den using the next power of two
// at or above den, so num == den never exceeds 1 << scale.
// def is returned when den is zero.
func ShiftRatio(num, den uint32, scale uint, def int) int {
	if den == 0 {
		return def
	}
	return int((uint64(num) << scale) >> CeilLog2(den))
}

// NextSeq atomically advances a shared sequence counter and returns the new value.
func NextSeq(seq *uint64) uint64 {
	return atomic.AddUint64(seq, 1)
}
