package app

import (
	"fmt"
	"log/slog"

	"market_guard/internal/classifier"
	"market_guard/internal/domain"
	"market_guard/internal/infra"
	"market_guard/internal/infra/storage"
	"market_guard/internal/infra/tape"
	"market_guard/internal/pipeline"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config     *infra.Config
	Storage    *storage.Storage // nil when the journal is disabled
	Classifier classifier.Classifier
	Quantizer  tape.Quantizer
	Metrics    *infra.Metrics
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{Metrics: infra.GlobalMetrics}
}

// Initialize performs core system initialization (config, logger, DB, classifier)
func (b *Bootstrap) Initialize(configPath string) error {
	// 1. Load Config
	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return err // Let main handle the error
	}
	return b.InitializeWith(cfg)
}

// InitializeWith bootstraps from an already loaded configuration.
func (b *Bootstrap) InitializeWith(cfg *infra.Config) error {
	b.Config = cfg

	// 2. Setup Logger
	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)
	slog.Info("🚀 Bootstrapping Market Guard...", slog.String("version", cfg.App.Version))

	// 3. Tape quantizer
	tick, offset, lot, err := cfg.FeedScale()
	if err != nil {
		return err
	}
	if b.Quantizer, err = tape.NewQuantizer(tick, offset, lot); err != nil {
		return err
	}

	// 4. Classifier
	if b.Classifier, err = BuildClassifier(cfg); err != nil {
		return err
	}
	slog.Info("✅ Classifier ready", slog.String("name", b.Classifier.Name()))

	// 5. Initialize Storage (DB)
	if cfg.Storage.Enabled {
		store, err := storage.NewStorage(cfg.Storage.Path)
		if err != nil {
			return err
		}
		b.Storage = store
		slog.Info("✅ Database initialized")
	} else {
		slog.Warn("Journal disabled, runs will not be replayable")
	}

	return nil
}

// BuildClassifier returns the configured classifier implementation.
func BuildClassifier(cfg *infra.Config) (classifier.Classifier, error) {
	switch cfg.Pipeline.Classifier {
	case infra.ClassifierQNet:
		w, err := classifier.LoadWeights(cfg.Pipeline.QNetWeights)
		if err != nil {
			return nil, fmt.Errorf("failed to load qnet weights: %w", err)
		}
		return classifier.NewQuantizedNet(*w), nil
	case infra.ClassifierCascade, "":
		return classifier.ThresholdCascade{}, nil
	default:
		return nil, &domain.ConfigError{Field: "pipeline.classifier", Err: fmt.Errorf("unknown classifier %q", cfg.Pipeline.Classifier)}
	}
}

// PipelineOptions derives the pipeline options from the configuration.
func (b *Bootstrap) PipelineOptions() pipeline.Options {
	return pipeline.Options{
		Preset:     domain.Preset(b.Config.Pipeline.Preset),
		Classifier: b.Classifier,
	}
}

// Close releases the database.
func (b *Bootstrap) Close() {
	if b.Storage == nil {
		return
	}
	if err := b.Storage.Close(); err != nil {
		slog.Warn("Failed to close database", slog.Any("error", err))
	}
}
