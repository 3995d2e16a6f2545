package infra

import (
	"sync/atomic"
	"time"

	"market_guard/internal/domain"
	"market_guard/internal/pipeline"
)

// Metrics provides lightweight observability for the hotpath.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	eventsProcessed atomic.Uint64
	stepsProcessed  atomic.Uint64
	matches         atomic.Uint64
	rejected        atomic.Uint64
	ruleAlerts      atomic.Uint64
	classifierTicks atomic.Uint64
	cascadeFires    atomic.Uint64
	alertRises      atomic.Uint64
	breakerLoads    [4]atomic.Uint64
	journalDrops    atomic.Uint64
	errorsTotal     atomic.Uint64

	// Latency tracking
	latencySumNs atomic.Int64
	latencyCount atomic.Uint64

	// Gauges
	breakerMode atomic.Int32
	circuitOpen atomic.Int32 // Journal circuit: 1 = open, 0 = closed
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// RecordEvent records an event processing with latency.
func (m *Metrics) RecordEvent(latencyNs int64) {
	m.eventsProcessed.Add(1)
	m.latencySumNs.Add(latencyNs)
	m.latencyCount.Add(1)
}

// RecordStep folds one pipeline result into the counters.
func (m *Metrics) RecordStep(res pipeline.StepResult) {
	m.stepsProcessed.Add(1)
	if res.Match.Matched {
		m.matches.Add(1)
	}
	if res.Match.Rejected {
		m.rejected.Add(1)
	}
	if res.Rule.Active {
		m.ruleAlerts.Add(1)
	}
	if res.ML.Valid {
		m.classifierTicks.Add(1)
	}
	if res.Cascade.Fired {
		m.cascadeFires.Add(1)
	}
	if res.Alert.Rising {
		m.alertRises.Add(1)
	}
	if res.Loaded {
		m.breakerLoads[res.Command.Mode&0x3].Add(1)
	}
	m.breakerMode.Store(int32(res.Breaker.Mode))
}

// RecordError records an error occurrence.
func (m *Metrics) RecordError() {
	m.errorsTotal.Add(1)
}

// RecordJournalDrop records a journal write shed by the circuit breaker.
func (m *Metrics) RecordJournalDrop() {
	m.journalDrops.Add(1)
}

// SetCircuitState sets the journal circuit breaker state (true = open).
func (m *Metrics) SetCircuitState(open bool) {
	if open {
		m.circuitOpen.Store(1)
	} else {
		m.circuitOpen.Store(0)
	}
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	EventsProcessed uint64
	StepsProcessed  uint64
	Matches         uint64
	Rejected        uint64
	RuleAlerts      uint64
	ClassifierTicks uint64
	CascadeFires    uint64
	AlertRises      uint64
	BreakerLoads    map[domain.BreakerMode]uint64
	JournalDrops    uint64
	ErrorsTotal     uint64
	AvgLatencyNs    int64
	BreakerMode     domain.BreakerMode
	CircuitOpen     bool
	Timestamp       time.Time
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avgLatency int64
	count := m.latencyCount.Load()
	if count > 0 {
		avgLatency = m.latencySumNs.Load() / int64(count)
	}

	loads := make(map[domain.BreakerMode]uint64, len(m.breakerLoads))
	for i := range m.breakerLoads {
		loads[domain.BreakerMode(i)] = m.breakerLoads[i].Load()
	}

	return MetricsSnapshot{
		EventsProcessed: m.eventsProcessed.Load(),
		StepsProcessed:  m.stepsProcessed.Load(),
		Matches:         m.matches.Load(),
		Rejected:        m.rejected.Load(),
		RuleAlerts:      m.ruleAlerts.Load(),
		ClassifierTicks: m.classifierTicks.Load(),
		CascadeFires:    m.cascadeFires.Load(),
		AlertRises:      m.alertRises.Load(),
		BreakerLoads:    loads,
		JournalDrops:    m.journalDrops.Load(),
		ErrorsTotal:     m.errorsTotal.Load(),
		AvgLatencyNs:    avgLatency,
		BreakerMode:     domain.BreakerMode(m.breakerMode.Load()),
		CircuitOpen:     m.circuitOpen.Load() == 1,
		Timestamp:       time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.eventsProcessed.Store(0)
	m.stepsProcessed.Store(0)
	m.matches.Store(0)
	m.rejected.Store(0)
	m.ruleAlerts.Store(0)
	m.classifierTicks.Store(0)
	m.cascadeFires.Store(0)
	m.alertRises.Store(0)
	for i := range m.breakerLoads {
		m.breakerLoads[i].Store(0)
	}
	m.journalDrops.Store(0)
	m.errorsTotal.Store(0)
	m.latencySumNs.Store(0)
	m.latencyCount.Store(0)
	m.breakerMode.Store(0)
	m.circuitOpen.Store(0)
}
