package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"market_guard/internal/domain"
	"market_guard/internal/event"
	"market_guard/pkg/quant"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Storage persists runs, their WAL and the alert/breaker journal in SQLite.
type Storage struct {
	db *gorm.DB
}

var (
	_ domain.JournalStore  = (*Storage)(nil)
	_ domain.RunRepository = (*Storage)(nil)
)

// NewStorage opens (or creates) the database at path.
// An empty path resolves to the per-user data directory.
func NewStorage(path string) (*Storage, error) {
	dbPath := path
	if dbPath == "" {
		var err error
		if dbPath, err = getDBPath(); err != nil {
			return nil, fmt.Errorf("failed to resolve DB path: %w", err)
		}
	}

	// Ensure directory exists
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := migrate(db); err != nil {
		return nil, err
	}

	return &Storage{db: db}, nil
}

func migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&domain.RunRecord{},
		&domain.EventRecord{},
		&domain.AlertRecord{},
		&domain.BreakerRecord{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// getDBPath resolves the database file path based on OS
func getDBPath() (string, error) {
	var configDir string
	var err error

	if runtime.GOOS == "windows" {
		configDir = os.Getenv("LOCALAPPDATA")
		if configDir == "" {
			configDir, err = os.UserConfigDir()
		}
	} else {
		configDir, err = os.UserConfigDir()
	}

	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, "MarketGuard", "data", "mguard.db"), nil
}

// Close releases the underlying connection.
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ======================================================================================
// Run Operations
// ======================================================================================

// SaveRun creates or updates run metadata
func (s *Storage) SaveRun(ctx context.Context, run *domain.RunRecord) error {
	if err := s.db.WithContext(ctx).Save(run).Error; err != nil {
		return domain.NewStorageError("save_run", err)
	}
	return nil
}

// GetRun retrieves run metadata by ID
func (s *Storage) GetRun(ctx context.Context, id string) (*domain.RunRecord, error) {
	var run domain.RunRecord
	err := s.db.WithContext(ctx).First(&run, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("run %s: %w", id, domain.ErrRunNotFound)
	}
	if err != nil {
		return nil, domain.NewStorageError("get_run", err)
	}
	return &run, nil
}

// ListRuns returns runs newest first
func (s *Storage) ListRuns(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	var runs []domain.RunRecord
	q := s.db.WithContext(ctx).Order("started_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&runs).Error; err != nil {
		return nil, domain.NewStorageError("list_runs", err)
	}
	return runs, nil
}

// ======================================================================================
// WAL Operations
// ======================================================================================

// EventLog is the write-ahead log of a single run.
type EventLog struct {
	s     *Storage
	runID string
}

// EventLog binds the WAL to runID.
func (s *Storage) EventLog(runID string) *EventLog {
	return &EventLog{s: s, runID: runID}
}

// SaveEvent appends ev to the run's WAL
func (l *EventLog) SaveEvent(ctx context.Context, ev event.Event) error {
	rec, err := EncodeEvent(l.runID, ev)
	if err != nil {
		return domain.NewFatalStorageError("save_event", err)
	}
	if err := l.s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return domain.NewStorageError("save_event", err)
	}
	return nil
}

// LoadEvents returns a run's WAL in sequence order
func (s *Storage) LoadEvents(ctx context.Context, runID string) ([]domain.EventRecord, error) {
	var recs []domain.EventRecord
	err := s.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("seq asc").
		Find(&recs).Error
	if err != nil {
		return nil, domain.NewStorageError("load_events", err)
	}
	return recs, nil
}

// EncodeEvent flattens a sequenced event into its WAL row.
func EncodeEvent(runID string, ev event.Event) (*domain.EventRecord, error) {
	rec := &domain.EventRecord{
		RunID: runID,
		Seq:   ev.GetSeq(),
		Type:  uint8(ev.GetType()),
		Ts:    int64(ev.GetTs()),
	}
	switch e := ev.(type) {
	case *event.TickEvent:
		rec.Kind = uint8(e.Market.Kind)
		rec.Value = uint16(e.Market.Value)
	case *event.PresetEvent:
		rec.Kind = uint8(e.Preset)
	default:
		return nil, fmt.Errorf("unsupported event type %T", ev)
	}
	return rec, nil
}

// DecodeEvent rebuilds the sequenced event stored in rec.
// Tick events come from the pool and are released by the sequencer.
func DecodeEvent(rec domain.EventRecord) (event.Event, error) {
	switch event.Type(rec.Type) {
	case event.TypeTick:
		ev := event.AcquireTickEvent()
		ev.Seq = rec.Seq
		ev.Ts = quant.TimeStamp(rec.Ts)
		ev.Market = domain.NewMarketEvent(domain.EventKind(rec.Kind), int(rec.Value))
		return ev, nil
	case event.TypePreset:
		ev := &event.PresetEvent{Preset: domain.Preset(rec.Kind)}
		ev.Seq = rec.Seq
		ev.Ts = quant.TimeStamp(rec.Ts)
		return ev, nil
	default:
		return nil, fmt.Errorf("seq %d: unknown event type %d", rec.Seq, rec.Type)
	}
}

// ======================================================================================
// Journal Operations
// ======================================================================================

// SaveAlert records a fused alert edge or a cascade fire
func (s *Storage) SaveAlert(ctx context.Context, rec *domain.AlertRecord) error {
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return domain.NewStorageError("save_alert", err)
	}
	return nil
}

// SaveBreaker records a breaker mode transition
func (s *Storage) SaveBreaker(ctx context.Context, rec *domain.BreakerRecord) error {
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return domain.NewStorageError("save_breaker", err)
	}
	return nil
}

// ListAlerts returns a run's alert journal in sequence order
func (s *Storage) ListAlerts(ctx context.Context, runID string) ([]domain.AlertRecord, error) {
	var recs []domain.AlertRecord
	err := s.db.WithContext(ctx).Where("run_id = ?", runID).Order("seq asc, id asc").Find(&recs).Error
	if err != nil {
		return nil, domain.NewStorageError("list_alerts", err)
	}
	return recs, nil
}

// ListBreakers returns a run's breaker transitions in sequence order
func (s *Storage) ListBreakers(ctx context.Context, runID string) ([]domain.BreakerRecord, error) {
	var recs []domain.BreakerRecord
	err := s.db.WithContext(ctx).Where("run_id = ?", runID).Order("seq asc, id asc").Find(&recs).Error
	if err != nil {
		return nil, domain.NewStorageError("list_breakers", err)
	}
	return recs, nil
}
