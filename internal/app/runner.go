package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"market_guard/internal/domain"
	"market_guard/internal/engine"
	"market_guard/internal/infra"
	"market_guard/internal/infra/tape"
	"market_guard/internal/journal"
	"market_guard/internal/pipeline"

	"github.com/google/uuid"
)

// RunResult describes a finished tape run.
type RunResult struct {
	RunID          string         `json:"run_id"`
	Source         string         `json:"source"`
	Events         int            `json:"events"`
	Report         journal.Report `json:"report"`
	JournalWritten uint64         `json:"journal_written"`
	JournalDropped uint64         `json:"journal_dropped"`
	Duration       time.Duration  `json:"duration"`
}

// RunTape drives a tape through the sequencer, journaling when storage is enabled.
// A malformed row ends the run early; the partial run is still recorded.
func (b *Bootstrap) RunTape(ctx context.Context, path string) (*RunResult, error) {
	cfg := b.Config
	runID := uuid.NewString()
	started := time.Now()
	opts := b.PipelineOptions()
	pipe := pipeline.New(opts)

	run := &domain.RunRecord{
		ID:         runID,
		Preset:     uint8(opts.Preset.Index()),
		Classifier: b.Classifier.Name(),
		Source:     filepath.Base(path),
		StartedAt:  started,
	}

	summary := journal.NewSummary()
	var (
		recorder *journal.Recorder
		wal      engine.EventStore
	)
	if b.Storage != nil {
		if err := b.Storage.SaveRun(ctx, run); err != nil {
			return nil, err
		}
		recorder = journal.NewRecorder(b.Storage, runID, journal.DefaultSettings(), b.Metrics)
		wal = b.Storage.EventLog(runID)
	}

	seq := engine.NewSequencer(cfg.Engine.InboxSize, wal, pipe, func(res pipeline.StepResult) {
		summary.Observe(res)
		if recorder != nil {
			recorder.Observe(res)
		}
	})
	seq.SetMetrics(b.Metrics)
	seq.SetDumpPath(cfg.Engine.DumpPath)

	done := make(chan struct{})
	go func() {
		seq.Run(ctx)
		close(done)
	}()
	slog.InfoContext(ctx, "✅ Sequencer (Hotpath) started", slog.String("run_id", runID), slog.Int("preset", opts.Preset.Index()))

	var nextSeq uint64
	n, feedErr := tape.FeedFile(ctx, path, b.Quantizer, seq.Inbox(), &nextSeq)
	seq.Close()
	<-done

	res := &RunResult{
		RunID:    runID,
		Source:   path,
		Events:   n,
		Report:   summary.Report(),
		Duration: time.Since(started),
	}
	if recorder != nil {
		res.JournalWritten = recorder.Written()
		res.JournalDropped = recorder.Dropped()
	}

	if b.Storage != nil {
		run.Steps = summary.Steps
		run.Digest = res.Report.Digest
		run.FinishedAt = time.Now()
		// The run context may already be cancelled; the record must still land.
		if err := b.Storage.SaveRun(context.Background(), run); err != nil {
			slog.Error("Failed to finalize run", slog.Any("error", err))
		}
	}

	if cfg.Metrics.Textfile != "" {
		if err := infra.WriteTextfile(cfg.Metrics.Textfile, b.Metrics); err != nil {
			slog.Warn("Failed to write metrics textfile", slog.Any("error", err))
		}
	}

	if feedErr != nil && !errors.Is(feedErr, context.Canceled) {
		return res, fmt.Errorf("run %s stopped after %d events: %w", runID, n, feedErr)
	}
	return res, nil
}

// Replay re-runs a journaled run with the configured classifier.
func (b *Bootstrap) Replay(ctx context.Context, runID string) (*journal.ReplayResult, error) {
	if b.Storage == nil {
		return nil, fmt.Errorf("replay %s: %w", runID, domain.ErrJournalUnavailable)
	}
	return journal.Replay(ctx, b.Storage, runID, b.PipelineOptions())
}

// Runs lists journaled runs, newest first. limit <= 0 returns all of them.
func (b *Bootstrap) Runs(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	if b.Storage == nil {
		return nil, fmt.Errorf("list runs: %w", domain.ErrJournalUnavailable)
	}
	return b.Storage.ListRuns(ctx, limit)
}
