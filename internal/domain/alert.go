package domain

import "fmt"

// EventCode is the shared vocabulary of the cascade history.
// Classifier classes occupy 0..5, rule-only kinds follow.
type EventCode uint8

const (
	CodeNormal EventCode = iota
	CodePriceSpike
	CodeVolumeSurge
	CodeFlashCrash
	CodeOrderImbalance
	CodeQuoteStuffing
	CodeTradeVelocity
	CodeVolatility
	CodeSpreadWidening
	CodeVolumeDry

	// CodeNone marks an empty history slot. It never equals an observed code.
	CodeNone EventCode = 0xFF
)

var codeNames = map[EventCode]string{
	CodeNormal:         "normal",
	CodePriceSpike:     "price_spike",
	CodeVolumeSurge:    "volume_surge",
	CodeFlashCrash:     "flash_crash",
	CodeOrderImbalance: "order_imbalance",
	CodeQuoteStuffing:  "quote_stuffing",
	CodeTradeVelocity:  "trade_velocity",
	CodeVolatility:     "volatility",
	CodeSpreadWidening: "spread_widening",
	CodeVolumeDry:      "volume_dry",
	CodeNone:           "none",
}

func (c EventCode) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return fmt.Sprintf("code(%d)", uint8(c))
}

// MLClass is the classifier output class.
type MLClass uint8

const (
	ClassNormal MLClass = iota
	ClassPriceSpike
	ClassVolumeSurge
	ClassFlashCrash
	ClassOrderImbalance
	ClassQuoteStuffing

	NumClasses = 6
)

func (c MLClass) Code() EventCode { return EventCode(c) }

func (c MLClass) String() string { return c.Code().String() }

// Priority ranks a held classifier verdict against rule priorities in fusion.
func (c MLClass) Priority() uint8 {
	switch c {
	case ClassFlashCrash:
		return 7
	case ClassQuoteStuffing:
		return 5
	case ClassOrderImbalance:
		return 4
	case ClassVolumeSurge:
		return 2
	case ClassPriceSpike:
		return 1
	default:
		return 0
	}
}

// RuleType identifies a rule predicate. Its numeric value is also its priority
// and its bit position in AnomalyVerdict.Bitmap.
type RuleType uint8

const (
	RulePriceSpike RuleType = iota
	RuleVolumeDry
	RuleVolumeSurge
	RuleTradeVelocity
	RuleOrderImbalance
	RuleSpreadWidening
	RuleVolatility
	RuleFlashCrash
)

var ruleCodes = [8]EventCode{
	RulePriceSpike:     CodePriceSpike,
	RuleVolumeDry:      CodeVolumeDry,
	RuleVolumeSurge:    CodeVolumeSurge,
	RuleTradeVelocity:  CodeTradeVelocity,
	RuleOrderImbalance: CodeOrderImbalance,
	RuleSpreadWidening: CodeSpreadWidening,
	RuleVolatility:     CodeVolatility,
	RuleFlashCrash:     CodeFlashCrash,
}

func (r RuleType) Priority() uint8 { return uint8(r) & 0x7 }

func (r RuleType) Code() EventCode { return ruleCodes[r&0x7] }

func (r RuleType) String() string { return r.Code().String() }

// AnomalyVerdict is the rule detector output, recomputed every step.
type AnomalyVerdict struct {
	Active   bool     `json:"active"`
	Priority uint8    `json:"priority"`
	Type     RuleType `json:"type"`
	Bitmap   uint8    `json:"bitmap"`
}

// Has reports whether predicate r fired this step.
func (v AnomalyVerdict) Has(r RuleType) bool {
	return v.Bitmap&(1<<r.Priority()) != 0
}

// MLVerdict is valid only on the step after a feature tick.
type MLVerdict struct {
	Valid      bool    `json:"valid"`
	Class      MLClass `json:"class"`
	Confidence uint8   `json:"confidence"`
}

// CascadeKind names a temporal signature ending in a flash crash.
type CascadeKind uint8

const (
	CascadeVolCrash CascadeKind = iota
	CascadeSpikeCrash
	CascadeStuffCrash
	CascadeTriple
)

func (k CascadeKind) String() string {
	switch k {
	case CascadeVolCrash:
		return "VOL_CRASH"
	case CascadeSpikeCrash:
		return "SPIKE_CRASH"
	case CascadeStuffCrash:
		return "STUFF_CRASH"
	case CascadeTriple:
		return "TRIPLE"
	default:
		return fmt.Sprintf("cascade(%d)", uint8(k))
	}
}

// CascadeVerdict reports a fire and the hold that follows it.
// Kind is the most recently fired signature and stays set while Held.
type CascadeVerdict struct {
	Fired         bool        `json:"fired"`
	Held          bool        `json:"held"`
	Kind          CascadeKind `json:"kind"`
	OverrideParam uint8       `json:"override_param"`
}

// FusedTypeCascade is the type reported while a cascade is held.
const FusedTypeCascade = 7

// FusedAlert is the single per-step alert.
type FusedAlert struct {
	Active   bool  `json:"active"`
	Priority uint8 `json:"priority"`
	Type     uint8 `json:"type"`

	Cascade        bool `json:"cascade"`
	CascadeKindBit bool `json:"cascade_kind_bit"`
	Rising         bool `json:"rising"`
	Falling        bool `json:"falling"`
}
