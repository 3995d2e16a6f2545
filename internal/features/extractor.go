// Package features accumulates rolling market statistics and emits a
// FeatureVector once per window.
package features

import (
	"market_guard/internal/domain"
	"market_guard/internal/stats"
	"market_guard/pkg/quant"
	"market_guard/pkg/safe"
)

// WindowSteps is the emission period.
const WindowSteps = 256

// neutral is the fallback for ratio fields and the zero point of Trend.
const neutral = 128

// Extractor is the mutable context of the feature stage.
type Extractor struct {
	prices  stats.Ring // 4-entry last-change estimator
	volumes stats.Ring
	longEMA stats.EMA // Long-window price level
	mad     stats.EMA // Mean absolute deviation from the short mean

	lastPrice  uint16
	lastVolume uint16
	lowPrice   uint16
	highPrice  uint16

	buys, sells  uint16 // Decayed by half per window
	priceEvents  uint16
	volumeEvents uint16

	step int
}

// NewExtractor returns an extractor seeded at the neutral baseline.
func NewExtractor() *Extractor {
	e := &Extractor{}
	e.Reset()
	return e
}

// Reset restores the cold-start state.
func (e *Extractor) Reset() {
	*e = Extractor{
		prices:     stats.NewRing(4, stats.Baseline),
		volumes:    stats.NewRing(8, stats.Baseline),
		longEMA:    stats.NewEMA(stats.Baseline),
		mad:        stats.NewEMA(0),
		lastPrice:  stats.Baseline,
		lastVolume: stats.Baseline,
		lowPrice:   stats.Baseline,
		highPrice:  stats.Baseline,
	}
}

// Step consumes one event. On every WindowSteps-th call it also returns the
// vector for the window just closed.
func (e *Extractor) Step(ev domain.MarketEvent) (FeatureVector, bool) {
	v := uint16(ev.Value)

	switch ev.Kind {
	case domain.EventPrice:
		mean := e.prices.Mean()
		e.mad.Update(uint16(safe.AbsDiff(int(v), int(mean))))
		e.prices.Push(v)
		e.longEMA.Update(v)
		e.lastPrice = v
		if v < e.lowPrice {
			e.lowPrice = v
		}
		if v > e.highPrice {
			e.highPrice = v
		}
		e.priceEvents = safe.SatInc16(e.priceEvents)
	case domain.EventVolume:
		e.volumes.Push(v)
		e.lastVolume = v
		e.volumeEvents = safe.SatInc16(e.volumeEvents)
	case domain.EventBuy:
		e.buys = safe.SatInc16(e.buys)
	case domain.EventSell:
		e.sells = safe.SatInc16(e.sells)
	}

	e.step++
	if e.step < WindowSteps {
		return FeatureVector{}, false
	}

	fv := e.vector()
	e.rollWindow()
	return fv, true
}

// Peek returns the vector the current window would emit, without side effects.
func (e *Extractor) Peek() FeatureVector {
	return e.vector()
}

func (e *Extractor) vector() FeatureVector {
	var fv FeatureVector
	p := int(e.lastPrice)
	long := int(e.longEMA.Value())

	fv[PriceChange1s] = safe.Sat8(safe.AbsDiff(p, int(e.prices.Oldest())) << 2)
	fv[PriceChange10s] = safe.Sat8(safe.AbsDiff(p, long) << 1)
	fv[VolumeRatio] = safe.Sat8(quant.ShiftRatio(uint32(e.lastVolume), uint32(e.volumes.Mean()), 7, neutral))
	fv[Imbalance] = imbalanceBucket(e.buys, e.sells)
	fv[Volatility] = safe.Sat8(int(e.mad.Value()) << 2)
	fv[ArrivalRate] = safe.Sat8(int(e.buys) + int(e.sells))
	fv[LastPrice] = safe.Sat8(p >> 4)
	fv[MeanPrice] = safe.Sat8(int(e.prices.Mean()) >> 4)
	fv[LastVolume] = safe.Sat8(int(e.lastVolume) >> 4)
	fv[MeanVolume] = safe.Sat8(int(e.volumes.Mean()) >> 4)
	fv[BuyCount] = safe.Sat8(int(e.buys))
	fv[SellCount] = safe.Sat8(int(e.sells))
	fv[PriceRange] = safe.Sat8(int(e.highPrice) - int(e.lowPrice))
	fv[PriceEvents] = safe.Sat8(int(e.priceEvents))
	fv[VolumeEvents] = safe.Sat8(int(e.volumeEvents))
	fv[Trend] = safe.Sat8(neutral + p - long)
	return fv
}

func (e *Extractor) rollWindow() {
	e.step = 0
	e.buys >>= 1
	e.sells >>= 1
	e.priceEvents = 0
	e.volumeEvents = 0
	e.lowPrice = e.lastPrice
	e.highPrice = e.lastPrice
}

// imbalanceBucket maps buy/sell pressure to five levels using shift comparisons.
func imbalanceBucket(buys, sells uint16) uint8 {
	b, s := uint32(buys), uint32(sells)
	switch {
	case b == 0 && s == 0:
		return ImbalanceNeutral
	case b >= s<<2:
		return ImbalanceBuyHeavy
	case b >= s<<1:
		return ImbalanceBuyLean
	case s >= b<<2:
		return ImbalanceSellHeavy
	case s >= b<<1:
		return ImbalanceSellLean
	default:
		return ImbalanceNeutral
	}
}
