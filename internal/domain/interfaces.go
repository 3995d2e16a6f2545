package domain

import "context"

// JournalStore persists alert and breaker history for a run
type JournalStore interface {
	SaveAlert(ctx context.Context, rec *AlertRecord) error
	SaveBreaker(ctx context.Context, rec *BreakerRecord) error
}

// RunRepository stores run metadata and their WAL
type RunRepository interface {
	SaveRun(ctx context.Context, run *RunRecord) error
	GetRun(ctx context.Context, id string) (*RunRecord, error)
	LoadEvents(ctx context.Context, runID string) ([]EventRecord, error)
}
