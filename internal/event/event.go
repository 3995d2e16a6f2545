package event

import (
	"market_guard/internal/domain"
	"market_guard/pkg/quant"
)

// Type discriminates sequenced events.
type Type uint8

const (
	TypeTick   Type = iota // One market event, advances the pipeline by one step
	TypePreset             // Threshold preset change, takes effect on the next tick
)

func (t Type) String() string {
	switch t {
	case TypeTick:
		return "tick"
	case TypePreset:
		return "preset"
	default:
		return "unknown"
	}
}

// Event is anything the Sequencer accepts.
type Event interface {
	GetSeq() uint64
	GetTs() quant.TimeStamp
	GetType() Type
}

// BaseEvent carries the sequence number and wall-clock stamp.
type BaseEvent struct {
	Seq uint64          `json:"seq"`
	Ts  quant.TimeStamp `json:"ts"`
}

func (b *BaseEvent) GetSeq() uint64         { return b.Seq }
func (b *BaseEvent) GetTs() quant.TimeStamp { return b.Ts }

// TickEvent wraps one market event.
type TickEvent struct {
	BaseEvent
	Market domain.MarketEvent `json:"market"`
}

func (e *TickEvent) GetType() Type { return TypeTick }

// PresetEvent switches the rule thresholds.
type PresetEvent struct {
	BaseEvent
	Preset domain.Preset `json:"preset"`
}

func (e *PresetEvent) GetType() Type { return TypePreset }
