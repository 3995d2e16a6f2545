package domain

import (
	"time"
)

// RunRecord describes one pass of a tape through the pipeline
type RunRecord struct {
	ID         string    `gorm:"primaryKey" json:"id"`
	Preset     uint8     `json:"preset"`
	Classifier string    `json:"classifier"`
	Source     string    `json:"source"`
	Steps      uint64    `json:"steps"`
	Digest     string    `json:"digest"` // Hex digest of the fused alert trace
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// EventRecord is one WAL entry
type EventRecord struct {
	ID    uint64 `gorm:"primaryKey;autoIncrement" json:"-"`
	RunID string `gorm:"index:idx_run_seq,priority:1" json:"run_id"`
	Seq   uint64 `gorm:"index:idx_run_seq,priority:2" json:"seq"`
	Type  uint8  `json:"type"` // 0 tick, 1 preset
	Kind  uint8  `json:"kind"` // Market event kind, or the preset index
	Value uint16 `json:"value"`
	Ts    int64  `json:"ts"`
}

// AlertRecord is written on fused alert edges and cascade fires
type AlertRecord struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	RunID       string    `gorm:"index" json:"run_id"`
	Seq         uint64    `json:"seq"`
	Edge        string    `json:"edge"` // "rise", "fall" or "cascade"
	Priority    uint8     `json:"priority"`
	Type        uint8     `json:"type"`
	CascadeKind string    `json:"cascade_kind,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// BreakerRecord is written on every breaker mode transition
type BreakerRecord struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	RunID     string    `gorm:"index" json:"run_id"`
	Seq       uint64    `json:"seq"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Param     uint8     `json:"param"`
	Countdown uint16    `json:"countdown"`
	CreatedAt time.Time `json:"created_at"`
}

// Alert edges
const (
	EdgeRise    = "rise"
	EdgeFall    = "fall"
	EdgeCascade = "cascade"
)
