// Package breaker implements the self-healing trading restriction state machine.
package breaker

import (
	"market_guard/internal/domain"
)

// MaxCountdown is the largest countdown a single command can load (PAUSE at 255).
const MaxCountdown = 2 * 255

// Controller is the only writer of BreakerState.
type Controller struct {
	st    domain.BreakerState
	loads [4]uint64
}

// NewController starts in NORMAL.
func NewController() *Controller {
	return &Controller{}
}

// State returns a copy of the current state.
func (c *Controller) State() domain.BreakerState {
	return c.st
}

// Loads returns how many commands were loaded per mode.
func (c *Controller) Loads() [4]uint64 {
	return c.loads
}

// Reset returns to NORMAL and forgets counters.
func (c *Controller) Reset() {
	*c = Controller{}
}

// Step advances one step. A non-nil command is loaded; otherwise the countdown
// runs down and the mode falls back to NORMAL when it is exhausted.
func (c *Controller) Step(cmd *domain.Command) {
	if cmd != nil {
		c.load(*cmd)
		return
	}

	if c.st.Mode == domain.ModeNormal {
		return
	}
	if c.st.Countdown <= 1 {
		c.st = domain.BreakerState{}
		return
	}
	c.st.Countdown--
	if c.st.Mode == domain.ModeThrottle {
		c.st.ThrottleSub++
		if c.st.ThrottleSub >= throttlePeriod(c.st.Param) {
			c.st.ThrottleSub = 0
		}
	}
}

func (c *Controller) load(cmd domain.Command) {
	c.loads[cmd.Mode&0x3]++

	var countdown uint16
	switch cmd.Mode {
	case domain.ModePause:
		countdown = uint16(cmd.Param) << 1
	case domain.ModeThrottle, domain.ModeWiden:
		countdown = uint16(cmd.Param)
	}
	if countdown == 0 {
		c.st = domain.BreakerState{}
		return
	}
	c.st = domain.BreakerState{
		Mode:      cmd.Mode,
		Countdown: countdown,
		Param:     cmd.Param,
	}
}

// Gate derives what the matcher may do this step.
func (c *Controller) Gate() domain.Gate {
	switch c.st.Mode {
	case domain.ModePause:
		return domain.Gate{Mode: domain.ModePause, Active: true}
	case domain.ModeThrottle:
		return domain.Gate{
			InsertAllowed: c.st.ThrottleSub == 0,
			MatchAllowed:  true,
			Mode:          domain.ModeThrottle,
			Active:        true,
		}
	case domain.ModeWiden:
		return domain.Gate{
			InsertAllowed: true,
			MatchAllowed:  true,
			Guard:         widenGuard(c.st.Param),
			Mode:          domain.ModeWiden,
			Active:        true,
		}
	}
	return domain.OpenGate
}

// throttlePeriod is one admission per (top nibble + 1) steps.
func throttlePeriod(param uint8) uint8 {
	return param>>4 + 1
}

// widenGuard is the top three bits of param, in ticks.
func widenGuard(param uint8) uint8 {
	return param >> 5
}
