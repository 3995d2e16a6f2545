// Package pipeline advances every detection and control stage by one event.
package pipeline

import (
	"market_guard/internal/breaker"
	"market_guard/internal/cascade"
	"market_guard/internal/classifier"
	"market_guard/internal/domain"
	"market_guard/internal/features"
	"market_guard/internal/fusion"
	"market_guard/internal/matching"
	"market_guard/internal/rules"
)

// Options configures a pipeline. Zero value means default preset and the
// threshold-cascade classifier.
type Options struct {
	Preset     domain.Preset
	Classifier classifier.Classifier
}

// DefaultOptions uses preset 1.
func DefaultOptions() Options {
	return Options{Preset: domain.DefaultPreset}
}

// StepResult is everything observable after one step.
type StepResult struct {
	Step    uint64                 `json:"step"`
	Event   domain.MarketEvent     `json:"event"`
	Gate    domain.Gate            `json:"gate"` // Gate the matcher saw this step
	Match   matching.Result        `json:"match"`
	Rule    domain.AnomalyVerdict  `json:"rule"`
	ML      domain.MLVerdict       `json:"ml"`
	Vector  features.FeatureVector `json:"vector"`
	Emitted bool                   `json:"emitted"` // Vector was produced this step
	Cascade domain.CascadeVerdict  `json:"cascade"`
	Loaded  bool                   `json:"loaded"` // Command was loaded into the breaker
	Command domain.Command         `json:"command"`
	Breaker domain.BreakerState    `json:"breaker"` // State after this step
	Alert   domain.FusedAlert      `json:"alert"`
}

// Pipeline owns one context object per stage and a single Step entry point.
type Pipeline struct {
	opts Options

	book      *matching.Book
	rules     *rules.Detector
	clf       *classifier.Stage
	extractor *features.Extractor
	cascade   *cascade.Detector
	breaker   *breaker.Controller
	register  breaker.Register
	fuser     *fusion.Fuser

	step       uint64
	lastVector features.FeatureVector
	last       StepResult
}

// New builds a pipeline at its reset state.
func New(opts Options) *Pipeline {
	p := &Pipeline{opts: opts}
	p.Reset()
	return p
}

// Reset restores every stage to its cold-start state. Options are kept.
func (p *Pipeline) Reset() {
	p.book = matching.NewBook()
	p.rules = rules.NewDetector(p.opts.Preset)
	p.clf = classifier.NewStage(p.opts.Classifier)
	p.extractor = features.NewExtractor()
	p.cascade = cascade.NewDetector()
	p.breaker = breaker.NewController()
	p.register = breaker.Register{}
	p.fuser = fusion.NewFuser()
	p.step = 0
	p.lastVector = features.FeatureVector{}
	p.last = StepResult{}
}

// Step consumes exactly one event.
func (p *Pipeline) Step(ev domain.MarketEvent) StepResult {
	p.step++
	res := StepResult{Step: p.step, Event: ev}

	// 1. Gate from the breaker state left by the previous step
	res.Gate = p.breaker.Gate()

	// 2. Matching collaborator
	res.Match = p.book.Step(ev, res.Gate)

	// 3. Zero-latency rules
	res.Rule = p.rules.Step(rules.Input{
		Event:    ev,
		Matched:  res.Match.Matched,
		BidDepth: p.book.BidDepth(),
		AskDepth: p.book.AskDepth(),
	})

	// 4. Classifier output for the vector latched last step
	res.ML = p.clf.Step()

	// 5. Feature accumulation; a fresh vector is classified next step
	if fv, ok := p.extractor.Step(ev); ok {
		p.clf.Latch(fv)
		p.lastVector = fv
		res.Vector = fv
		res.Emitted = true
	}

	// 6. Cascade against the just-updated history
	res.Cascade = p.cascade.Step(res.ML, res.Rule)

	// 7. Breaker applies last step's command, then this step's producers register
	if cmd, ok := p.register.Take(); ok {
		res.Loaded = true
		res.Command = cmd
		p.breaker.Step(&cmd)
	} else {
		p.breaker.Step(nil)
	}
	if res.ML.Valid {
		p.register.SetClassifier(breaker.Translate(res.ML))
	}
	if res.Cascade.Fired {
		p.register.SetOverride(breaker.Override(res.Cascade.OverrideParam))
	}
	res.Breaker = p.breaker.State()

	// 8. Fusion
	res.Alert = p.fuser.Step(res.Rule, res.ML, res.Cascade)

	p.last = res
	return res
}

// Run feeds a slice of events and returns every result.
func (p *Pipeline) Run(events []domain.MarketEvent) []StepResult {
	out := make([]StepResult, 0, len(events))
	for _, ev := range events {
		out = append(out, p.Step(ev))
	}
	return out
}

// SetPreset switches the rule thresholds from the next step on.
func (p *Pipeline) SetPreset(preset domain.Preset) {
	p.opts.Preset = preset
	p.rules.SetPreset(preset)
}

// Gate is the surface the matcher will see on the next step.
func (p *Pipeline) Gate() domain.Gate {
	return p.breaker.Gate()
}

// Snapshot is a point-in-time copy of pipeline state.
type Snapshot struct {
	Step           uint64              `json:"step"`
	Preset         uint8               `json:"preset"`
	Classifier     string              `json:"classifier"`
	Breaker        domain.BreakerState `json:"breaker"`
	Gate           domain.Gate         `json:"gate"`
	Alert          domain.FusedAlert   `json:"alert"`
	HeldML         domain.MLVerdict    `json:"held_ml"`
	CascadeHistory []string            `json:"cascade_history"`
	CascadeFires   uint64              `json:"cascade_fires"`
	LastVector     map[string]uint8    `json:"last_vector"`
	PendingVector  map[string]uint8    `json:"pending_vector"` // What the open window would emit now
	ClassifierRuns uint64              `json:"classifier_runs"`
	BreakerLoads   map[string]uint64   `json:"breaker_loads"`
	BidDepth       uint8               `json:"bid_depth"`
	AskDepth       uint8               `json:"ask_depth"`
	Last           StepResult          `json:"last"`
}

// Snapshot copies the observable state. Not for the hotpath.
func (p *Pipeline) Snapshot() Snapshot {
	hist := p.cascade.History()
	names := make([]string, len(hist))
	for i, c := range hist {
		names[i] = c.String()
	}
	loads := p.breaker.Loads()
	byMode := make(map[string]uint64, len(loads))
	for m, n := range loads {
		byMode[domain.BreakerMode(m).String()] = n
	}
	return Snapshot{
		Step:           p.step,
		Preset:         uint8(p.opts.Preset.Index()),
		Classifier:     p.clf.Name(),
		Breaker:        p.breaker.State(),
		Gate:           p.breaker.Gate(),
		Alert:          p.last.Alert,
		HeldML:         p.fuser.Held(),
		CascadeHistory: names,
		CascadeFires:   p.cascade.Fires(),
		LastVector:     p.lastVector.Map(),
		PendingVector:  p.extractor.Peek().Map(),
		ClassifierRuns: p.clf.Ticks(),
		BreakerLoads:   byMode,
		BidDepth:       p.book.BidDepth(),
		AskDepth:       p.book.AskDepth(),
		Last:           p.last,
	}
}
