package breaker

import "market_guard/internal/domain"

// Translate maps a classifier verdict to a breaker command.
func Translate(v domain.MLVerdict) domain.Command {
	switch v.Class {
	case domain.ClassPriceSpike, domain.ClassOrderImbalance:
		return domain.Command{Mode: domain.ModeWiden, Param: v.Confidence}
	case domain.ClassVolumeSurge, domain.ClassQuoteStuffing:
		return domain.Command{Mode: domain.ModeThrottle, Param: v.Confidence}
	case domain.ClassFlashCrash:
		return domain.Command{Mode: domain.ModePause, Param: v.Confidence}
	}
	return domain.Command{Mode: domain.ModeNormal}
}

// Override is the command a cascade fire forces.
func Override(param uint8) domain.Command {
	return domain.Command{Mode: domain.ModePause, Param: param}
}

// Register holds the command for the next step. The cascade override is the
// higher-priority producer and displaces a classifier command set in the same step.
type Register struct {
	cmd      domain.Command
	set      bool
	override bool
}

// SetClassifier registers a translated classifier command unless an override is pending.
func (r *Register) SetClassifier(cmd domain.Command) {
	if r.override {
		return
	}
	r.cmd = cmd
	r.set = true
}

// SetOverride registers a cascade override.
func (r *Register) SetOverride(cmd domain.Command) {
	r.cmd = cmd
	r.set = true
	r.override = true
}

// Take returns the pending command, if any, and empties the register.
func (r *Register) Take() (domain.Command, bool) {
	cmd, ok := r.cmd, r.set
	*r = Register{}
	return cmd, ok
}
