package journal

import (
	"encoding/binary"
	"strconv"

	"market_guard/internal/domain"
	"market_guard/internal/pipeline"

	"github.com/cespare/xxhash/v2"
)

// Summary aggregates a run and fingerprints its fused alert and breaker trace.
// Two runs over the same events with the same options produce the same digest.
type Summary struct {
	Steps           uint64
	Matches         uint64
	Rejected        uint64
	Rises           uint64
	RisesByPriority [8]uint64
	CascadesByKind  [4]uint64
	StepsInMode     [4]uint64
	Transitions     uint64
	ClassifierVotes [domain.NumClasses]uint64
	lastMode        domain.BreakerMode
	digest          *xxhash.Digest
	buf             [8]byte
}

// NewSummary starts an empty summary.
func NewSummary() *Summary {
	return &Summary{digest: xxhash.New()}
}

// Observe folds one step result.
func (s *Summary) Observe(res pipeline.StepResult) {
	s.Steps++
	if res.Match.Matched {
		s.Matches++
	}
	if res.Match.Rejected {
		s.Rejected++
	}
	if res.Alert.Rising {
		s.Rises++
		s.RisesByPriority[res.Alert.Priority&0x7]++
	}
	if res.Cascade.Fired {
		s.CascadesByKind[res.Cascade.Kind&0x3]++
	}
	if res.ML.Valid && int(res.ML.Class) < domain.NumClasses {
		s.ClassifierVotes[res.ML.Class]++
	}
	mode := res.Breaker.Mode & 0x3
	s.StepsInMode[mode]++
	if mode != s.lastMode {
		s.Transitions++
		s.lastMode = mode
	}

	var flags byte
	for i, set := range []bool{res.Alert.Active, res.Alert.Cascade, res.Alert.CascadeKindBit, res.Alert.Rising, res.Alert.Falling, res.Match.Matched} {
		if set {
			flags |= 1 << i
		}
	}
	s.buf[0] = flags
	s.buf[1] = res.Alert.Priority
	s.buf[2] = res.Alert.Type
	s.buf[3] = uint8(res.Breaker.Mode)
	binary.LittleEndian.PutUint16(s.buf[4:6], res.Breaker.Countdown)
	s.buf[6] = res.Breaker.Param
	s.buf[7] = res.Breaker.ThrottleSub
	s.digest.Write(s.buf[:])
}

// Digest is the hex fingerprint of every step observed so far.
func (s *Summary) Digest() string {
	return strconv.FormatUint(s.digest.Sum64(), 16)
}

// Report is the printable form of a summary.
type Report struct {
	Steps           uint64            `json:"steps"`
	Matches         uint64            `json:"matches"`
	Rejected        uint64            `json:"rejected"`
	AlertRises      uint64            `json:"alert_rises"`
	RisesByPriority map[string]uint64 `json:"rises_by_priority,omitempty"`
	Cascades        map[string]uint64 `json:"cascades,omitempty"`
	StepsInMode     map[string]uint64 `json:"steps_in_mode"`
	Transitions     uint64            `json:"breaker_transitions"`
	ClassifierVotes map[string]uint64 `json:"classifier_votes,omitempty"`
	Digest          string            `json:"digest"`
}

// Report converts the counters into named maps. Zero entries are omitted.
func (s *Summary) Report() Report {
	r := Report{
		Steps:           s.Steps,
		Matches:         s.Matches,
		Rejected:        s.Rejected,
		AlertRises:      s.Rises,
		RisesByPriority: make(map[string]uint64),
		Cascades:        make(map[string]uint64),
		StepsInMode:     make(map[string]uint64),
		Transitions:     s.Transitions,
		ClassifierVotes: make(map[string]uint64),
		Digest:          s.Digest(),
	}
	for p, n := range s.RisesByPriority {
		if n > 0 {
			r.RisesByPriority[strconv.Itoa(p)] = n
		}
	}
	for k, n := range s.CascadesByKind {
		if n > 0 {
			r.Cascades[domain.CascadeKind(k).String()] = n
		}
	}
	for m, n := range s.StepsInMode {
		if n > 0 {
			r.StepsInMode[domain.BreakerMode(m).String()] = n
		}
	}
	for c, n := range s.ClassifierVotes {
		if n > 0 {
			r.ClassifierVotes[domain.MLClass(c).String()] = n
		}
	}
	return r
}
