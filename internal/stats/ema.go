package stats

// EMA is an exponential accumulator with alpha 1/8, kept in x8 fixed point:
// acc = acc - acc/8 + sample, value = acc/8.
type EMA struct {
	acc uint32
}

// NewEMA seeds the accumulator so that Value() == seed.
func NewEMA(seed uint16) EMA {
	return EMA{acc: uint32(seed) << 3}
}

// Update folds in one sample and returns the new value.
func (e *EMA) Update(sample uint16) uint16 {
	e.acc = e.acc - e.acc>>3 + uint32(sample)
	return e.Value()
}

// Value returns the current estimate.
func (e *EMA) Value() uint16 {
	return uint16(e.acc >> 3)
}

// ValueFloor returns the estimate, raised to floor.
func (e *EMA) ValueFloor(floor uint16) uint16 {
	if v := e.Value(); v > floor {
		return v
	}
	return floor
}
