package domain

import (
	"errors"
	"testing"
)

func TestStorageError(t *testing.T) {
	baseErr := errors.New("database is locked")

	t.Run("retriable error", func(t *testing.T) {
		err := NewStorageError("save_event", baseErr)

		if !err.IsRetriable() {
			t.Error("Expected error to be retriable")
		}

		if err.Error() != "save_event: database is locked" {
			t.Errorf("Error message = %q, want %q", err.Error(), "save_event: database is locked")
		}

		if !errors.Is(err, baseErr) {
			t.Error("Expected error to wrap baseErr")
		}
	})

	t.Run("fatal error", func(t *testing.T) {
		err := NewFatalStorageError("migrate", baseErr)

		if err.IsRetriable() {
			t.Error("Expected error to not be retriable")
		}
	})

	t.Run("IsRetriable helper", func(t *testing.T) {
		retriable := NewStorageError("save_alert", baseErr)
		fatal := NewFatalStorageError("migrate", baseErr)
		plain := errors.New("plain error")

		if !IsRetriable(retriable) {
			t.Error("IsRetriable should return true for retriable error")
		}

		if IsRetriable(fatal) {
			t.Error("IsRetriable should return false for fatal error")
		}

		if IsRetriable(plain) {
			t.Error("IsRetriable should return false for plain error")
		}
	})
}

func TestConfigError(t *testing.T) {
	baseErr := errors.New("must be 0..3")
	err := &ConfigError{Field: "pipeline.preset", Err: baseErr}

	if err.IsRetriable() {
		t.Error("ConfigError should never be retriable")
	}

	expected := "config error [pipeline.preset]: must be 0..3"
	if err.Error() != expected {
		t.Errorf("Error message = %q, want %q", err.Error(), expected)
	}
}

func TestTapeError(t *testing.T) {
	_, kindErr := ParseEventKind("cancel")
	err := &TapeError{Line: 7, Err: kindErr}

	if !errors.Is(err, ErrUnknownEventKind) {
		t.Error("Expected TapeError to wrap ErrUnknownEventKind")
	}
	if IsRetriable(err) {
		t.Error("TapeError should never be retriable")
	}
	expected := `tape line 7: unknown event kind: "cancel"`
	if err.Error() != expected {
		t.Errorf("Error message = %q, want %q", err.Error(), expected)
	}
}
