package classifier

import (
	"fmt"
	"os"

	"market_guard/internal/domain"
	"market_guard/internal/features"
	"market_guard/pkg/safe"

	"gopkg.in/yaml.v3"
)

const (
	InputSize  = 6
	HiddenSize = 8
)

// Weights of the two-layer network. Values are fixed at load time.
type Weights struct {
	Hidden     [HiddenSize][InputSize]int8         `yaml:"hidden"`
	HiddenBias [HiddenSize]int16                   `yaml:"hidden_bias"`
	Output     [domain.NumClasses][HiddenSize]int8 `yaml:"output"`
	OutputBias [domain.NumClasses]int16            `yaml:"output_bias"`
	Shift      uint8                               `yaml:"shift"` // Right shift after each layer
}

// LoadWeights reads network weights from a YAML file.
func LoadWeights(path string) (*Weights, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var w Weights
	if err := yaml.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("failed to parse weights %s: %w", path, err)
	}
	if w.Shift > 15 {
		return nil, &domain.ConfigError{Field: "qnet.shift", Err: fmt.Errorf("must be 0..15, got %d", w.Shift)}
	}
	return &w, nil
}

// QuantizedNet is an int8 network over the six load-bearing features:
// ReLU hidden layer, linear output layer, argmax.
type QuantizedNet struct {
	w Weights
}

// NewQuantizedNet copies the given weights.
func NewQuantizedNet(w Weights) *QuantizedNet {
	return &QuantizedNet{w: w}
}

func (n *QuantizedNet) Name() string { return "qnet" }

// Classify picks the strongest output. Ties go to the lower class, so an
// all-zero output is Normal. Confidence is the gap to the runner-up.
func (n *QuantizedNet) Classify(fv features.FeatureVector) (domain.MLClass, uint8) {
	var in [InputSize]int32
	for i := 0; i < InputSize; i++ {
		in[i] = int32(fv[i])
	}

	var hidden [HiddenSize]int32
	for j := 0; j < HiddenSize; j++ {
		acc := int32(n.w.HiddenBias[j])
		for i := 0; i < InputSize; i++ {
			acc += int32(n.w.Hidden[j][i]) * in[i]
		}
		if acc < 0 {
			acc = 0
		}
		hidden[j] = int32(safe.Sat8(int(acc >> n.w.Shift)))
	}

	best, second := int32(-1<<31), int32(-1<<31)
	class := 0
	for k := 0; k < domain.NumClasses; k++ {
		acc := int32(n.w.OutputBias[k])
		for j := 0; j < HiddenSize; j++ {
			acc += int32(n.w.Output[k][j]) * hidden[j]
		}
		switch {
		case acc > best:
			second = best
			best = acc
			class = k
		case acc > second:
			second = acc
		}
	}

	return domain.MLClass(class), safe.Sat8(int((best - second) >> n.w.Shift))
}
