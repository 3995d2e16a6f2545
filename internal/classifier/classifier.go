// Package classifier maps a FeatureVector to an MLVerdict.
package classifier

import (
	"market_guard/internal/domain"
	"market_guard/internal/features"
)

// Classifier is a pure function of one feature vector.
// Implementations must not keep state between calls.
type Classifier interface {
	Name() string
	Classify(fv features.FeatureVector) (domain.MLClass, uint8)
}

// Stage delays classification by exactly one step: a vector latched on step
// t produces a valid verdict on step t+1.
type Stage struct {
	impl    Classifier
	pending features.FeatureVector
	armed   bool
	ticks   uint64
}

// NewStage wraps a classifier. A nil classifier selects ThresholdCascade.
func NewStage(c Classifier) *Stage {
	if c == nil {
		c = ThresholdCascade{}
	}
	return &Stage{impl: c}
}

// Step returns the verdict for the vector latched on the previous step, if any.
func (s *Stage) Step() domain.MLVerdict {
	if !s.armed {
		return domain.MLVerdict{}
	}
	s.armed = false
	s.ticks++
	class, conf := s.impl.Classify(s.pending)
	return domain.MLVerdict{Valid: true, Class: class, Confidence: conf}
}

// Latch stores a freshly emitted vector for the next step.
func (s *Stage) Latch(fv features.FeatureVector) {
	s.pending = fv
	s.armed = true
}

// Name reports the wrapped implementation.
func (s *Stage) Name() string {
	return s.impl.Name()
}

// Ticks counts verdicts produced so far.
func (s *Stage) Ticks() uint64 {
	return s.ticks
}
