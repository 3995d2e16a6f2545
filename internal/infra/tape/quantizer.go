package tape

import (
	"errors"

	"market_guard/internal/domain"
	"market_guard/pkg/quant"

	"github.com/shopspring/decimal"
)

var (
	half    = decimal.NewFromFloat(0.5)
	maxTick = decimal.NewFromInt(quant.MaxTick)
)

// Quantizer maps decimal market values onto the pipeline's 12-bit tick grid.
type Quantizer struct {
	TickSize    decimal.Decimal
	PriceOffset decimal.Decimal
	LotSize     decimal.Decimal
}

// NewQuantizer validates the scale. Tick and lot sizes must be positive.
func NewQuantizer(tickSize, priceOffset, lotSize decimal.Decimal) (Quantizer, error) {
	if !tickSize.IsPositive() {
		return Quantizer{}, &domain.ConfigError{Field: "feed.tick_size", Err: errors.New("must be positive")}
	}
	if !lotSize.IsPositive() {
		return Quantizer{}, &domain.ConfigError{Field: "feed.lot_size", Err: errors.New("must be positive")}
	}
	return Quantizer{TickSize: tickSize, PriceOffset: priceOffset, LotSize: lotSize}, nil
}

// Identity treats tape values as ticks already.
func Identity() Quantizer {
	return Quantizer{TickSize: decimal.NewFromInt(1), PriceOffset: decimal.Zero, LotSize: decimal.NewFromInt(1)}
}

// Event quantizes v according to kind. Prices and order limits use the tick
// grid above the offset, volumes use the lot size.
func (q Quantizer) Event(kind domain.EventKind, v decimal.Decimal) domain.MarketEvent {
	var scaled decimal.Decimal
	if kind == domain.EventVolume {
		scaled = v.Div(q.LotSize)
	} else {
		scaled = v.Sub(q.PriceOffset).Div(q.TickSize)
	}
	return domain.NewMarketEvent(kind, toTicks(scaled))
}

// toTicks rounds half-down and saturates to the tick range.
func toTicks(d decimal.Decimal) int {
	d = d.Sub(half).RoundCeil(0)
	switch {
	case d.IsNegative():
		return 0
	case d.GreaterThan(maxTick):
		return quant.MaxTick
	}
	return int(d.IntPart())
}
