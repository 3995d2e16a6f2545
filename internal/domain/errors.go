package domain

import (
	"errors"
	"strconv"
)

// RetriableError defines an interface for errors that can be retried
type RetriableError interface {
	error
	IsRetriable() bool
}

// IsRetriable checks if an error is retriable
func IsRetriable(err error) bool {
	var re RetriableError
	if errors.As(err, &re) {
		return re.IsRetriable()
	}
	return false
}

// StorageError wraps a journal/WAL write failure
type StorageError struct {
	Op        string // Operation that failed (e.g., "save_event", "save_alert")
	Err       error  // Underlying error
	Retriable bool
}

func (e *StorageError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *StorageError) IsRetriable() bool {
	return e.Retriable
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError creates a retriable storage error
func NewStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err, Retriable: true}
}

// NewFatalStorageError creates a non-retriable storage error
func NewFatalStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err, Retriable: false}
}

// ConfigError represents a configuration error (never retriable)
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) IsRetriable() bool {
	return false
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// TapeError reports a malformed tape row (never retriable)
type TapeError struct {
	Line int
	Err  error
}

func (e *TapeError) Error() string {
	return "tape line " + strconv.Itoa(e.Line) + ": " + e.Err.Error()
}

func (e *TapeError) IsRetriable() bool {
	return false
}

func (e *TapeError) Unwrap() error {
	return e.Err
}

var (
	// ErrConfigNotFound is returned when configuration file is missing
	ErrConfigNotFound = errors.New("configuration not found")

	// ErrUnknownEventKind is returned for tape rows with an unrecognised kind
	ErrUnknownEventKind = errors.New("unknown event kind")

	// ErrSequenceGap is returned when a replayed WAL is not contiguous
	ErrSequenceGap = errors.New("sequence gap")

	// ErrJournalUnavailable is returned when an operation needs the journal but
	// storage is disabled in the configuration
	ErrJournalUnavailable = errors.New("journal unavailable")

	// ErrRunNotFound is returned when a run id has no journal entry
	ErrRunNotFound = errors.New("run not found")
)
