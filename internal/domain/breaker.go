package domain

import "fmt"

// BreakerMode is the trading restriction currently in force.
type BreakerMode uint8

const (
	ModeNormal BreakerMode = iota
	ModeThrottle
	ModeWiden
	ModePause
)

func (m BreakerMode) String() string {
	switch m {
	case ModeNormal:
		return "NORMAL"
	case ModeThrottle:
		return "THROTTLE"
	case ModeWiden:
		return "WIDEN"
	case ModePause:
		return "PAUSE"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// Command is a mode load request for the breaker controller.
type Command struct {
	Mode  BreakerMode `json:"mode"`
	Param uint8       `json:"param"`
}

// BreakerState is owned by the controller. Countdown fits 9 bits, ThrottleSub 4 bits.
type BreakerState struct {
	Mode        BreakerMode `json:"mode"`
	Countdown   uint16      `json:"countdown"`
	Param       uint8       `json:"param"`
	ThrottleSub uint8       `json:"throttle_sub"`
}

// Gate is what the matching collaborator sees for the current step.
type Gate struct {
	InsertAllowed bool        `json:"insert_allowed"`
	MatchAllowed  bool        `json:"match_allowed"`
	Guard         uint8       `json:"guard"`
	Mode          BreakerMode `json:"mode"`
	Active        bool        `json:"active"`
}

// OpenGate lets everything through.
var OpenGate = Gate{InsertAllowed: true, MatchAllowed: true}
