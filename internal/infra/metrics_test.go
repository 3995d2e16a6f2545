package infra

import (
	"testing"

	"market_guard/internal/domain"
	"market_guard/internal/matching"
	"market_guard/internal/pipeline"
)

func TestMetrics_RecordEvent(t *testing.T) {
	m := &Metrics{}

	m.RecordEvent(1000)
	m.RecordEvent(2000)
	m.RecordEvent(3000)

	snap := m.Snapshot()

	if snap.EventsProcessed != 3 {
		t.Errorf("Expected 3 events, got %d", snap.EventsProcessed)
	}

	// Average latency: (1000 + 2000 + 3000) / 3 = 2000
	if snap.AvgLatencyNs != 2000 {
		t.Errorf("Expected avg latency 2000, got %d", snap.AvgLatencyNs)
	}
}

func TestMetrics_RecordStep(t *testing.T) {
	m := &Metrics{}

	m.RecordStep(pipeline.StepResult{
		Match: matching.Result{Matched: true},
		Rule:  domain.AnomalyVerdict{Active: true},
	})
	m.RecordStep(pipeline.StepResult{
		ML:      domain.MLVerdict{Valid: true},
		Cascade: domain.CascadeVerdict{Fired: true},
		Loaded:  true,
		Command: domain.Command{Mode: domain.ModePause, Param: 255},
		Breaker: domain.BreakerState{Mode: domain.ModePause, Countdown: 510},
		Alert:   domain.FusedAlert{Active: true, Rising: true},
	})
	m.RecordStep(pipeline.StepResult{
		Match:   matching.Result{Rejected: true},
		Breaker: domain.BreakerState{Mode: domain.ModePause, Countdown: 509},
	})

	snap := m.Snapshot()
	checks := []struct {
		name string
		got  uint64
		want uint64
	}{
		{"steps", snap.StepsProcessed, 3},
		{"matches", snap.Matches, 1},
		{"rejected", snap.Rejected, 1},
		{"rule alerts", snap.RuleAlerts, 1},
		{"classifier ticks", snap.ClassifierTicks, 1},
		{"cascade fires", snap.CascadeFires, 1},
		{"alert rises", snap.AlertRises, 1},
		{"pause loads", snap.BreakerLoads[domain.ModePause], 1},
		{"normal loads", snap.BreakerLoads[domain.ModeNormal], 0},
	}
	for _, c := range checks {
		t.Run(c.name, func(t *testing.T) {
			if c.got != c.want {
				t.Errorf("Expected %d, got %d", c.want, c.got)
			}
		})
	}

	if snap.BreakerMode != domain.ModePause {
		t.Errorf("Expected breaker mode PAUSE, got %s", snap.BreakerMode)
	}
}

func TestMetrics_CircuitState(t *testing.T) {
	m := &Metrics{}

	snap := m.Snapshot()
	if snap.CircuitOpen {
		t.Error("Expected circuit closed initially")
	}

	m.SetCircuitState(true)
	snap = m.Snapshot()
	if !snap.CircuitOpen {
		t.Error("Expected circuit open")
	}

	m.SetCircuitState(false)
	snap = m.Snapshot()
	if snap.CircuitOpen {
		t.Error("Expected circuit closed")
	}
}

func TestMetrics_Reset(t *testing.T) {
	m := &Metrics{}

	m.RecordEvent(1000)
	m.RecordError()
	m.RecordJournalDrop()
	m.RecordStep(pipeline.StepResult{Loaded: true, Command: domain.Command{Mode: domain.ModeWiden}})

	m.Reset()
	snap := m.Snapshot()

	if snap.EventsProcessed != 0 {
		t.Error("Expected 0 events after reset")
	}
	if snap.ErrorsTotal != 0 {
		t.Error("Expected 0 errors after reset")
	}
	if snap.JournalDrops != 0 {
		t.Error("Expected 0 journal drops after reset")
	}
	if snap.BreakerLoads[domain.ModeWiden] != 0 {
		t.Error("Expected 0 widen loads after reset")
	}
}
