package infra

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "mguard"

// Collector exposes a Metrics instance to Prometheus. Values are read from a
// fresh snapshot on every scrape.
type Collector struct {
	m *Metrics

	events       *prometheus.Desc
	steps        *prometheus.Desc
	matches      *prometheus.Desc
	rejected     *prometheus.Desc
	ruleAlerts   *prometheus.Desc
	mlTicks      *prometheus.Desc
	cascadeFires *prometheus.Desc
	alertRises   *prometheus.Desc
	loads        *prometheus.Desc
	drops        *prometheus.Desc
	errors       *prometheus.Desc
	latency      *prometheus.Desc
	mode         *prometheus.Desc
	circuitOpen  *prometheus.Desc
}

// NewCollector wraps m.
func NewCollector(m *Metrics) *Collector {
	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, labels, nil)
	}
	return &Collector{
		m:            m,
		events:       desc("events_processed_total", "Sequenced events processed"),
		steps:        desc("steps_total", "Pipeline steps executed"),
		matches:      desc("matches_total", "Crosses executed by the matcher"),
		rejected:     desc("orders_rejected_total", "Orders refused by the gate or a full book side"),
		ruleAlerts:   desc("rule_alerts_total", "Steps with an active rule verdict"),
		mlTicks:      desc("classifier_ticks_total", "Classifier verdicts produced"),
		cascadeFires: desc("cascade_fires_total", "Cascade signatures recognised"),
		alertRises:   desc("alert_rises_total", "Fused alert rising edges"),
		loads:        desc("breaker_loads_total", "Breaker commands loaded", "mode"),
		drops:        desc("journal_drops_total", "Journal writes shed while the journal circuit was open"),
		errors:       desc("errors_total", "Errors recorded"),
		latency:      desc("step_latency_avg_ns", "Average event processing latency"),
		mode:         desc("breaker_mode", "Current breaker mode (0 NORMAL, 1 THROTTLE, 2 WIDEN, 3 PAUSE)"),
		circuitOpen:  desc("journal_circuit_open", "1 when journal writes are being shed"),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.events, c.steps, c.matches, c.rejected, c.ruleAlerts, c.mlTicks, c.cascadeFires,
		c.alertRises, c.loads, c.drops, c.errors, c.latency, c.mode, c.circuitOpen,
	} {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.m.Snapshot()
	counter := func(d *prometheus.Desc, v uint64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), labels...)
	}
	gauge := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v)
	}

	counter(c.events, s.EventsProcessed)
	counter(c.steps, s.StepsProcessed)
	counter(c.matches, s.Matches)
	counter(c.rejected, s.Rejected)
	counter(c.ruleAlerts, s.RuleAlerts)
	counter(c.mlTicks, s.ClassifierTicks)
	counter(c.cascadeFires, s.CascadeFires)
	counter(c.alertRises, s.AlertRises)
	for mode, n := range s.BreakerLoads {
		counter(c.loads, n, mode.String())
	}
	counter(c.drops, s.JournalDrops)
	counter(c.errors, s.ErrorsTotal)
	gauge(c.latency, float64(s.AvgLatencyNs))
	gauge(c.mode, float64(s.BreakerMode))
	var open float64
	if s.CircuitOpen {
		open = 1
	}
	gauge(c.circuitOpen, open)
}

// WriteTextfile dumps m in the Prometheus text format for a node-exporter
// textfile collector. No listener is opened.
func WriteTextfile(path string, m *Metrics) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	reg := prometheus.NewRegistry()
	if err := reg.Register(NewCollector(m)); err != nil {
		return fmt.Errorf("failed to register collector: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
