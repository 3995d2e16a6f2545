// Package journal records alert and breaker history and replays journaled runs.
package journal

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"market_guard/internal/domain"
	"market_guard/internal/infra"
	"market_guard/internal/pipeline"

	"github.com/sony/gobreaker"
)

// Settings tunes the journal circuit breaker.
type Settings struct {
	MaxFailures  uint32        // Consecutive failed writes that open the circuit
	Cooldown     time.Duration // Time spent open before a probe write
	WriteTimeout time.Duration
}

// DefaultSettings returns conservative values for a local SQLite journal.
func DefaultSettings() Settings {
	return Settings{
		MaxFailures:  3,
		Cooldown:     5 * time.Second,
		WriteTimeout: 2 * time.Second,
	}
}

// Recorder turns step results into journal rows. It is called on the
// sequencer goroutine, so a failing store must never block it: once the
// circuit opens, rows are dropped and counted.
type Recorder struct {
	store    domain.JournalStore
	runID    string
	cb       *gobreaker.CircuitBreaker
	metrics  *infra.Metrics
	timeout  time.Duration
	prevMode domain.BreakerMode
	written  uint64
	dropped  uint64
}

// NewRecorder journals into store under runID. metrics may be nil.
func NewRecorder(store domain.JournalStore, runID string, settings Settings, metrics *infra.Metrics) *Recorder {
	r := &Recorder{
		store:   store,
		runID:   runID,
		metrics: metrics,
		timeout: settings.WriteTimeout,
	}
	r.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "journal",
		MaxRequests: 1,
		Timeout:     settings.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Journal circuit changed",
				slog.String("from", from.String()),
				slog.String("to", to.String()))
			if r.metrics != nil {
				r.metrics.SetCircuitState(to == gobreaker.StateOpen)
			}
		},
	})
	return r
}

// Observe journals the edges of one step.
func (r *Recorder) Observe(res pipeline.StepResult) {
	now := time.Now()

	if res.Alert.Rising {
		slog.Info("🚨 Alert raised",
			slog.Uint64("step", res.Step),
			slog.Int("priority", int(res.Alert.Priority)),
			slog.Int("type", int(res.Alert.Type)),
			slog.Bool("cascade", res.Alert.Cascade))
		r.saveAlert(&domain.AlertRecord{
			RunID:     r.runID,
			Seq:       res.Step,
			Edge:      domain.EdgeRise,
			Priority:  res.Alert.Priority,
			Type:      res.Alert.Type,
			CreatedAt: now,
		})
	}
	if res.Alert.Falling {
		slog.Debug("Alert cleared", slog.Uint64("step", res.Step))
		r.saveAlert(&domain.AlertRecord{
			RunID:     r.runID,
			Seq:       res.Step,
			Edge:      domain.EdgeFall,
			CreatedAt: now,
		})
	}
	if res.Cascade.Fired {
		slog.Warn("💥 Cascade fired",
			slog.Uint64("step", res.Step),
			slog.String("kind", res.Cascade.Kind.String()),
			slog.Int("override", int(res.Cascade.OverrideParam)))
		r.saveAlert(&domain.AlertRecord{
			RunID:       r.runID,
			Seq:         res.Step,
			Edge:        domain.EdgeCascade,
			Priority:    7,
			Type:        domain.FusedTypeCascade,
			CascadeKind: res.Cascade.Kind.String(),
			CreatedAt:   now,
		})
	}

	if mode := res.Breaker.Mode; mode != r.prevMode {
		slog.Info("Breaker transition",
			slog.Uint64("step", res.Step),
			slog.String("from", r.prevMode.String()),
			slog.String("to", mode.String()),
			slog.Int("countdown", int(res.Breaker.Countdown)))
		rec := &domain.BreakerRecord{
			RunID:     r.runID,
			Seq:       res.Step,
			From:      r.prevMode.String(),
			To:        mode.String(),
			Param:     res.Breaker.Param,
			Countdown: res.Breaker.Countdown,
			CreatedAt: now,
		}
		r.prevMode = mode
		r.write(func(ctx context.Context) error { return r.store.SaveBreaker(ctx, rec) })
	}
}

func (r *Recorder) saveAlert(rec *domain.AlertRecord) {
	r.write(func(ctx context.Context) error { return r.store.SaveAlert(ctx, rec) })
}

func (r *Recorder) write(fn func(ctx context.Context) error) {
	_, err := r.cb.Execute(func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		return nil, fn(ctx)
	})
	if err == nil {
		r.written++
		return
	}

	r.dropped++
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		if r.metrics != nil {
			r.metrics.RecordJournalDrop()
		}
		return
	}
	if r.metrics != nil {
		r.metrics.RecordError()
	}
	slog.Error("Journal write failed", slog.Any("error", err), slog.Bool("retriable", domain.IsRetriable(err)))
}

// Written is the number of rows persisted.
func (r *Recorder) Written() uint64 { return r.written }

// Dropped is the number of rows lost to failures or shed by the open circuit.
func (r *Recorder) Dropped() uint64 { return r.dropped }

// Open reports whether writes are currently being shed.
func (r *Recorder) Open() bool { return r.cb.State() == gobreaker.StateOpen }
