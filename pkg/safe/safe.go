// Package safe provides saturating integer arithmetic.
// Values are clamped to the representable range, never wrapped.
package safe

import "math"

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Sat8 clamps v to a byte.
func Sat8(v int) uint8 {
	return uint8(Clamp(v, 0, math.MaxUint8))
}

// Sat12 clamps v to the 12-bit range 0..4095.
func Sat12(v int) uint16 {
	return uint16(Clamp(v, 0, 4095))
}

// AbsDiff returns |a-b|.
func AbsDiff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}

// SatInc16 returns v+1 capped at 0xFFFF.
func SatInc16(v uint16) uint16 {
	if v == math.MaxUint16 {
		return v
	}
	return v + 1
}
