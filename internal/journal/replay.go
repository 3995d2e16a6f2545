package journal

import (
	"context"
	"fmt"
	"log/slog"

	"market_guard/internal/domain"
	"market_guard/internal/engine"
	"market_guard/internal/event"
	"market_guard/internal/infra/storage"
	"market_guard/internal/pipeline"
)

// ReplayResult compares a re-run against the digest recorded for the run.
type ReplayResult struct {
	RunID    string `json:"run_id"`
	Events   int    `json:"events"`
	Expected string `json:"expected"`
	Report   Report `json:"report"`
	Match    bool   `json:"match"`
}

// Replay re-runs a journaled WAL through a fresh pipeline. The run's own preset
// overrides opts.Preset, opts.Classifier must match the one the run used.
func Replay(ctx context.Context, repo domain.RunRepository, runID string, opts pipeline.Options) (*ReplayResult, error) {
	run, err := repo.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	recs, err := repo.LoadEvents(ctx, runID)
	if err != nil {
		return nil, err
	}

	opts.Preset = domain.Preset(run.Preset)
	pipe := pipeline.New(opts)
	if name := pipe.Snapshot().Classifier; name != run.Classifier {
		slog.Warn("Replay classifier differs from the recorded run",
			slog.String("recorded", run.Classifier),
			slog.String("replay", name))
	}

	summary := NewSummary()
	seq := engine.NewSequencer(1, nil, pipe, summary.Observe)
	seq.SetMetrics(nil)

	for i, rec := range recs {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if want := uint64(i) + 1; rec.Seq != want {
			return nil, fmt.Errorf("run %s: expected seq %d, got %d: %w", runID, want, rec.Seq, domain.ErrSequenceGap)
		}
		ev, err := storage.DecodeEvent(rec)
		if err != nil {
			return nil, err
		}
		seq.ReplayEvent(ev)
		event.Release(ev)
	}

	res := &ReplayResult{
		RunID:    runID,
		Events:   len(recs),
		Expected: run.Digest,
		Report:   summary.Report(),
	}
	res.Match = res.Report.Digest == run.Digest
	return res, nil
}
