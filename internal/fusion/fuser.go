// Package fusion merges the rule, classifier and cascade streams into one alert.
package fusion

import "market_guard/internal/domain"

// Fuser holds the latched classifier verdict and the previous active flag.
type Fuser struct {
	mlHeld     domain.MLVerdict
	prevActive bool
}

// NewFuser returns a fuser with nothing latched.
func NewFuser() *Fuser {
	return &Fuser{}
}

// Held returns the classifier verdict currently latched.
func (f *Fuser) Held() domain.MLVerdict {
	return f.mlHeld
}

// Step fuses one step. An inactive source takes no part in the priority
// comparison; a cascade hold overrides everything.
func (f *Fuser) Step(rule domain.AnomalyVerdict, ml domain.MLVerdict, cas domain.CascadeVerdict) domain.FusedAlert {
	if ml.Valid {
		f.mlHeld = ml
	}
	mlActive := f.mlHeld.Class != domain.ClassNormal

	var a domain.FusedAlert
	a.Active = rule.Active || mlActive || cas.Held

	switch {
	case cas.Held:
		a.Priority = 7
		a.Type = domain.FusedTypeCascade
		a.Cascade = true
		a.CascadeKindBit = cas.Kind == domain.CascadeTriple
	case rule.Active && (!mlActive || rule.Priority >= f.mlHeld.Class.Priority()):
		a.Priority = rule.Priority
		a.Type = uint8(rule.Type)
	case mlActive:
		a.Priority = f.mlHeld.Class.Priority()
		a.Type = uint8(f.mlHeld.Class)
	}

	a.Rising = a.Active && !f.prevActive
	a.Falling = !a.Active && f.prevActive
	f.prevActive = a.Active
	return a
}
