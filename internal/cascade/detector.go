// Package cascade recognises multi-event signatures that end in a flash crash.
package cascade

import (
	"market_guard/internal/domain"
	"market_guard/pkg/safe"
)

const (
	// Window is the number of idle steps after which history is forgotten.
	// It is shorter than the classifier period, so a classifier precursor
	// reaches the next tick only when rule verdicts recur in between.
	Window = 64
	// Hold is the number of steps a fire stays asserted after the firing step.
	Hold = 32

	historySize = 3
)

// Detector keeps a shift register of the most recent distinct event codes.
type Detector struct {
	history [historySize]domain.EventCode
	idle    int
	hold    int
	kind    domain.CascadeKind
	param   uint8
	fires   uint64
}

// NewDetector returns a detector with an empty history.
func NewDetector() *Detector {
	d := &Detector{}
	d.Reset()
	return d
}

// Reset clears history and any hold in progress.
func (d *Detector) Reset() {
	*d = Detector{}
	d.clear()
}

func (d *Detector) clear() {
	for i := range d.history {
		d.history[i] = domain.CodeNone
	}
	d.idle = 0
}

// History returns a copy of the shift register, newest first.
func (d *Detector) History() [historySize]domain.EventCode {
	return d.history
}

// Fires counts signatures recognised since reset.
func (d *Detector) Fires() uint64 {
	return d.fires
}

// Step consumes this step's classifier and rule verdicts.
func (d *Detector) Step(ml domain.MLVerdict, rule domain.AnomalyVerdict) domain.CascadeVerdict {
	code, conf, ok := selectEvent(ml, rule)

	fired := false
	if !ok {
		d.idle++
		if d.idle >= Window {
			d.clear()
		}
	} else {
		d.idle = 0
		if code != d.history[0] {
			d.history[2] = d.history[1]
			d.history[1] = d.history[0]
			d.history[0] = code
			fired = d.evaluate()
		}
	}

	v := domain.CascadeVerdict{Fired: fired}
	if fired {
		d.fires++
		d.hold = Hold
		d.param = safe.Sat8(int(conf) << 1)
		v.Held = true
		v.OverrideParam = d.param
	} else if d.hold > 0 {
		d.hold--
		v.Held = true
	}
	v.Kind = d.kind
	return v
}

// evaluate checks the just-recorded history for a signature.
func (d *Detector) evaluate() bool {
	if d.history[0] != domain.CodeFlashCrash {
		return false
	}
	h1, h2 := d.history[1], d.history[2]
	switch h1 {
	case domain.CodeVolumeSurge:
		d.kind = domain.CascadeVolCrash
	case domain.CodePriceSpike:
		d.kind = domain.CascadeSpikeCrash
	case domain.CodeQuoteStuffing:
		d.kind = domain.CascadeStuffCrash
	default:
		if !precursor(h1) || !precursor(h2) || h1 == h2 {
			return false
		}
		d.kind = domain.CascadeTriple
	}
	return true
}

func precursor(c domain.EventCode) bool {
	return c != domain.CodeNone && c != domain.CodeFlashCrash
}

// selectEvent prefers a valid non-Normal classifier verdict over an active rule.
// Rule confidence scales with priority so that a rule FlashCrash reads 255.
func selectEvent(ml domain.MLVerdict, rule domain.AnomalyVerdict) (domain.EventCode, uint8, bool) {
	if ml.Valid && ml.Class != domain.ClassNormal {
		return ml.Class.Code(), ml.Confidence, true
	}
	if rule.Active {
		return rule.Type.Code(), uint8((int(rule.Priority)+1)*32 - 1), true
	}
	return domain.CodeNone, 0, false
}
