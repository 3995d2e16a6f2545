package infra

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"market_guard/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, "app:\n  name: guard-test\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "guard-test", cfg.App.Name)
	assert.Equal(t, uint8(1), cfg.Pipeline.Preset)
	assert.Equal(t, ClassifierCascade, cfg.Pipeline.Classifier)
	assert.Equal(t, 1024, cfg.Engine.InboxSize)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Storage.Enabled)

	tick, offset, lot, err := cfg.FeedScale()
	require.NoError(t, err)
	assert.Equal(t, "0.01", tick.String())
	assert.True(t, offset.IsZero())
	assert.Equal(t, "1", lot.String())
}

func TestLoadConfig_FileValues(t *testing.T) {
	path := writeConfig(t, `
pipeline:
  preset: 3
feed:
  tick_size: "0.5"
  price_offset: "100"
  lot_size: "10"
storage:
  enabled: false
engine:
  inbox_size: 64
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, uint8(3), cfg.Pipeline.Preset)
	assert.False(t, cfg.Storage.Enabled)
	assert.Equal(t, 64, cfg.Engine.InboxSize)
	assert.Equal(t, "100", cfg.Feed.PriceOffset)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	path := writeConfig(t, "pipeline:\n  preset: 0\n")
	t.Setenv("MGUARD_PRESET", "2")
	t.Setenv("MGUARD_DB_PATH", "/tmp/guard.db")
	t.Setenv("MGUARD_LOG_LEVEL", "DEBUG")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, uint8(2), cfg.Pipeline.Preset)
	assert.Equal(t, "/tmp/guard.db", cfg.Storage.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"preset out of range", "pipeline:\n  preset: 4\n", "Config.Pipeline.Preset"},
		{"unknown classifier", "pipeline:\n  classifier: forest\n", "Config.Pipeline.Classifier"},
		{"qnet without weights", "pipeline:\n  classifier: qnet\n", "pipeline.qnet_weights"},
		{"zero tick size", "feed:\n  tick_size: \"0\"\n", "feed.tick_size"},
		{"non numeric lot", "feed:\n  lot_size: ten\n", "Config.Feed.LotSize"},
		{"bad log level", "logging:\n  level: loud\n", "Config.Logging.Level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			require.Error(t, err)

			var ce *domain.ConfigError
			require.True(t, errors.As(err, &ce), "expected ConfigError, got %v", err)
			assert.Equal(t, tt.field, ce.Field)
			assert.False(t, domain.IsRetriable(err))
		})
	}
}

func TestLoadConfig_Missing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, domain.ErrConfigNotFound)
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("warn").String() != "WARN" {
		t.Errorf("Expected WARN, got %s", ParseLevel("warn"))
	}
	if ParseLevel("verbose").String() != "INFO" {
		t.Errorf("Expected INFO fallback, got %s", ParseLevel("verbose"))
	}
}
