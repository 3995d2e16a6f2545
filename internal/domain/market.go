package domain

import (
	"fmt"
	"strings"

	"market_guard/pkg/quant"
)

// EventKind tags the single market event consumed per step.
type EventKind uint8

const (
	EventPrice EventKind = iota
	EventVolume
	EventBuy
	EventSell
)

func (k EventKind) String() string {
	switch k {
	case EventPrice:
		return "price"
	case EventVolume:
		return "volume"
	case EventBuy:
		return "buy"
	case EventSell:
		return "sell"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ParseEventKind accepts the lower-case names used on tapes.
func ParseEventKind(s string) (EventKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "price", "p":
		return EventPrice, nil
	case "volume", "vol", "v":
		return EventVolume, nil
	case "buy", "b":
		return EventBuy, nil
	case "sell", "s":
		return EventSell, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownEventKind, s)
}

// MarketEvent is one tagged 12-bit sample.
// For Buy/Sell the value is the order's limit price in ticks.
type MarketEvent struct {
	Kind  EventKind  `json:"kind"`
	Value quant.Tick `json:"value"`
}

// NewMarketEvent saturates value into 12 bits.
func NewMarketEvent(kind EventKind, value int) MarketEvent {
	return MarketEvent{Kind: kind, Value: quant.NewTick(value)}
}

func Price(v int) MarketEvent  { return NewMarketEvent(EventPrice, v) }
func Volume(v int) MarketEvent { return NewMarketEvent(EventVolume, v) }
func Buy(v int) MarketEvent    { return NewMarketEvent(EventBuy, v) }
func Sell(v int) MarketEvent   { return NewMarketEvent(EventSell, v) }

// Preset selects one of four (spike, flash) threshold pairs.
// Only the low two bits are significant.
type Preset uint8

// DefaultPreset is used when nothing else is configured.
const DefaultPreset Preset = 1

var presetThresholds = [4][2]uint16{
	{10, 20},
	{20, 40},
	{40, 80},
	{80, 160},
}

// Index returns the masked 2-bit selector.
func (p Preset) Index() int {
	return int(p & 0x3)
}

// Spike returns the PriceSpike threshold for the preset.
func (p Preset) Spike() uint16 {
	return presetThresholds[p.Index()][0]
}

// Flash returns the FlashCrash drop threshold for the preset.
func (p Preset) Flash() uint16 {
	return presetThresholds[p.Index()][1]
}
