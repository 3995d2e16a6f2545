package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"market_guard/internal/event"
	"market_guard/internal/infra"
	"market_guard/internal/pipeline"
)

// EventStore is the write-ahead log the sequencer persists to before processing.
type EventStore interface {
	SaveEvent(ctx context.Context, ev event.Event) error
}

// StepObserver receives every pipeline result on the hotpath goroutine.
type StepObserver func(res pipeline.StepResult)

// Sequencer is the core single-threaded event processor.
type Sequencer struct {
	inbox   chan event.Event
	pipe    *pipeline.Pipeline
	nextSeq uint64
	store   EventStore
	metrics *infra.Metrics

	// Boundary: journal, metrics and CLI summaries hook in here
	onStep StepObserver

	dumpPath string

	mu sync.RWMutex // Guards pipe against external snapshot reads
}

// NewSequencer creates a new sequencer instance.
func NewSequencer(inboxSize int, store EventStore, pipe *pipeline.Pipeline, onStep StepObserver) *Sequencer {
	if pipe == nil {
		pipe = pipeline.New(pipeline.DefaultOptions())
	}
	return &Sequencer{
		inbox:    make(chan event.Event, inboxSize),
		pipe:     pipe,
		nextSeq:  1,
		store:    store,
		metrics:  infra.GlobalMetrics,
		onStep:   onStep,
		dumpPath: "panic_dump.json",
	}
}

// SetMetrics replaces the metrics sink (tests use a private instance).
func (s *Sequencer) SetMetrics(m *infra.Metrics) {
	s.metrics = m
}

// SetDumpPath sets where DumpState writes on a halt.
func (s *Sequencer) SetDumpPath(path string) {
	s.dumpPath = path
}

// Inbox returns the event channel. External feeders send events here.
func (s *Sequencer) Inbox() chan<- event.Event {
	return s.inbox
}

// Close signals that no more events will be sent. Run drains the inbox and returns.
func (s *Sequencer) Close() {
	close(s.inbox)
}

// Run starts the main event loop. This MUST be run in a single goroutine.
func (s *Sequencer) Run(ctx context.Context) {
	slog.Info("Sequencer started (Single-Thread Hotpath)")

	defer func() {
		if r := recover(); r != nil {
			slog.Error("CRITICAL_PANIC_DETECTED", slog.Any("panic", r))
			s.DumpState(s.dumpPath)
			// Halt after dump: a gap or lost WAL write makes the state untrustworthy.
			panic(fmt.Sprintf("HALTED: %v", r))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Sequencer stopping...")
			return
		case ev, ok := <-s.inbox:
			if !ok {
				slog.Info("Sequencer inbox drained", slog.Uint64("next_seq", s.nextSeq))
				return
			}
			s.processEvent(ctx, ev)
		}
	}
}

func (s *Sequencer) processEvent(ctx context.Context, ev event.Event) {
	defer event.Release(ev)
	start := time.Now()

	// 1. Sequence Gap Check (Halt Policy)
	if ev.GetSeq() != s.nextSeq {
		panic(fmt.Sprintf("SEQUENCE_GAP_DETECTED: expected %d, got %d", s.nextSeq, ev.GetSeq()))
	}

	// 2. WAL-first: Persistence
	if s.store != nil {
		if err := s.store.SaveEvent(ctx, ev); err != nil {
			panic(fmt.Sprintf("PERSISTENCE_FAILURE: %v", err))
		}
	}

	// 3. Logic Dispatch
	s.dispatch(ev)

	// 4. Increment Sequence
	s.nextSeq++

	if s.metrics != nil {
		s.metrics.RecordEvent(time.Since(start).Nanoseconds())
	}
}

// ReplayEvent processes an event synchronously without WAL logging.
// This is used exclusively by the Replayer.
func (s *Sequencer) ReplayEvent(ev event.Event) {
	// Replay must still respect sequence order
	if ev.GetSeq() != s.nextSeq {
		panic(fmt.Sprintf("REPLAY_GAP_DETECTED: expected %d, got %d", s.nextSeq, ev.GetSeq()))
	}

	s.dispatch(ev)
	s.nextSeq++
}

func (s *Sequencer) dispatch(ev event.Event) {
	switch e := ev.(type) {
	case *event.TickEvent:
		s.handleTick(e)
	case *event.PresetEvent:
		s.mu.Lock()
		s.pipe.SetPreset(e.Preset)
		s.mu.Unlock()
		slog.Info("Preset changed", slog.Int("preset", e.Preset.Index()), slog.Uint64("seq", e.Seq))
	default:
		slog.Warn("Unknown event type", slog.Any("type", ev.GetType()))
	}
}

func (s *Sequencer) handleTick(e *event.TickEvent) {
	s.mu.Lock()
	res := s.pipe.Step(e.Market)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordStep(res)
	}
	if s.onStep != nil {
		s.onStep(res)
	}
}

// GetStatus returns a snapshot of the pipeline state (external read).
func (s *Sequencer) GetStatus() pipeline.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pipe.Snapshot()
}

// DumpState writes the entire internal state to a file (for post-mortem).
func (s *Sequencer) DumpState(filename string) {
	slog.Info("Dumping internal state...", slog.String("file", filename))

	data := struct {
		NextSeq  uint64            `json:"next_seq"`
		Pipeline pipeline.Snapshot `json:"pipeline"`
	}{
		NextSeq:  s.nextSeq,
		Pipeline: s.pipe.Snapshot(),
	}

	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		slog.Error("Failed to marshal state", slog.Any("error", err))
		return
	}

	err = os.WriteFile(filename, b, 0644)
	if err != nil {
		slog.Error("Failed to write state dump", slog.Any("error", err))
	}
}
