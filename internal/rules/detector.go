// Package rules evaluates eight fixed predicates every step and reports the
// highest ranked one.
package rules

import (
	"market_guard/internal/domain"
	"market_guard/internal/stats"
	"market_guard/pkg/safe"
)

const (
	// WindowSteps is the decay period of the velocity and pressure counters.
	WindowSteps = 256

	velocityLimit   = 30 // matches per window
	madFloor        = 2
	volatilityShift = 2 // deviation > mad << 2
	dryMinAverage   = 10
	flashMinAverage = 20
	spreadMinDepth  = 2
	imbalanceShift  = 2 // one side > other << 2
)

// Input is everything the detector sees in one step.
type Input struct {
	Event    domain.MarketEvent
	Matched  bool
	BidDepth uint8
	AskDepth uint8
}

// Detector holds its own rolling stats, independent of the feature stage.
type Detector struct {
	preset domain.Preset

	prices    stats.Ring
	volumes   stats.Ring
	mad       stats.EMA
	prevPrice uint16

	matches   uint16
	buyPress  uint16
	sellPress uint16
	step      int
}

// NewDetector builds a detector using the given threshold preset.
func NewDetector(preset domain.Preset) *Detector {
	d := &Detector{preset: preset}
	d.Reset()
	return d
}

// Reset restores the seeded cold-start state. The preset is kept.
func (d *Detector) Reset() {
	*d = Detector{
		preset:    d.preset,
		prices:    stats.NewRing(8, stats.Baseline),
		volumes:   stats.NewRing(8, stats.Baseline),
		mad:       stats.NewEMA(0),
		prevPrice: stats.Baseline,
	}
}

// SetPreset switches the (spike, flash) thresholds.
func (d *Detector) SetPreset(p domain.Preset) {
	d.preset = p
}

// Preset returns the active threshold preset.
func (d *Detector) Preset() domain.Preset {
	return d.preset
}

// Step evaluates all predicates against the stats as they stood before this
// event, then folds the event into the stats.
func (d *Detector) Step(in Input) domain.AnomalyVerdict {
	var bitmap uint8
	set := func(r domain.RuleType, cond bool) {
		if cond {
			bitmap |= 1 << r.Priority()
		}
	}

	v := int(in.Event.Value)

	// 1. Order flow counters
	switch in.Event.Kind {
	case domain.EventBuy:
		d.buyPress = safe.SatInc16(d.buyPress)
	case domain.EventSell:
		d.sellPress = safe.SatInc16(d.sellPress)
	}
	if in.Matched {
		d.matches = safe.SatInc16(d.matches)
	}

	// 2. Price predicates
	if in.Event.Kind == domain.EventPrice {
		avg := int(d.prices.Mean())
		prev := int(d.prevPrice)
		dev := safe.AbsDiff(v, avg)
		mad := int(d.mad.ValueFloor(madFloor))

		set(domain.RulePriceSpike, safe.AbsDiff(v, prev) > int(d.preset.Spike()))
		set(domain.RuleVolatility, dev > mad<<volatilityShift)
		set(domain.RuleFlashCrash, avg > flashMinAverage && prev-v > int(d.preset.Flash()))

		d.mad.Update(uint16(dev))
		d.prices.Push(uint16(v))
		d.prevPrice = uint16(v)
	}

	// 3. Volume predicates
	if in.Event.Kind == domain.EventVolume {
		avg := int(d.volumes.Mean())
		set(domain.RuleVolumeSurge, v > avg<<1)
		set(domain.RuleVolumeDry, avg >= dryMinAverage && v < avg>>2)
		d.volumes.Push(uint16(v))
	}

	// 4. Flow and book predicates
	set(domain.RuleTradeVelocity, d.matches > velocityLimit)
	set(domain.RuleSpreadWidening,
		(in.BidDepth == 0 && in.AskDepth > spreadMinDepth) ||
			(in.AskDepth == 0 && in.BidDepth > spreadMinDepth))
	set(domain.RuleOrderImbalance, d.buyPress > 0 && d.sellPress > 0 &&
		(uint32(d.buyPress) > uint32(d.sellPress)<<imbalanceShift ||
			uint32(d.sellPress) > uint32(d.buyPress)<<imbalanceShift))

	// 5. Window decay
	d.step++
	if d.step == WindowSteps {
		d.step = 0
		d.matches >>= 1
		d.buyPress >>= 1
		d.sellPress >>= 1
	}

	return Rank(bitmap)
}

// Rank picks the single winner from a predicate bitmap. The highest set bit
// wins, so the selection is total and tie-free.
func Rank(bitmap uint8) domain.AnomalyVerdict {
	if bitmap == 0 {
		return domain.AnomalyVerdict{}
	}
	top := domain.RuleFlashCrash
	for bitmap&(1<<top) == 0 {
		top--
	}
	return domain.AnomalyVerdict{
		Active:   true,
		Priority: top.Priority(),
		Type:     top,
		Bitmap:   bitmap,
	}
}
