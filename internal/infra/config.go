package infra

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"market_guard/internal/domain"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	ClassifierCascade = "cascade"
	ClassifierQNet    = "qnet"
)

// Config holds every setting of the application.
// Values are loaded from YAML over struct defaults, then overridden from the environment.
type Config struct {
	App struct {
		Name    string `yaml:"name" default:"market-guard" validate:"required"`
		Version string `yaml:"version" default:"dev"`
	} `yaml:"app"`

	Pipeline struct {
		Preset      uint8  `yaml:"preset" default:"1" validate:"lte=3"`
		Classifier  string `yaml:"classifier" default:"cascade" validate:"oneof=cascade qnet"`
		QNetWeights string `yaml:"qnet_weights"`
	} `yaml:"pipeline"`

	Feed struct {
		Tape        string `yaml:"tape"`
		TickSize    string `yaml:"tick_size" default:"0.01" validate:"numeric"`
		PriceOffset string `yaml:"price_offset" default:"0" validate:"numeric"`
		LotSize     string `yaml:"lot_size" default:"1" validate:"numeric"`
	} `yaml:"feed"`

	Storage struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path"`
	} `yaml:"storage"`

	Logging struct {
		Level      string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		File       string `yaml:"file" default:"logs/mguard.log"`
		MaxSizeMB  int    `yaml:"max_size_mb" default:"10" validate:"gte=1"`
		MaxBackups int    `yaml:"max_backups" default:"3" validate:"gte=0"`
		MaxAgeDays int    `yaml:"max_age_days" default:"28" validate:"gte=0"`
		Compress   bool   `yaml:"compress" default:"true"`
	} `yaml:"logging"`

	Metrics struct {
		Textfile string `yaml:"textfile"`
	} `yaml:"metrics"`

	Engine struct {
		InboxSize int    `yaml:"inbox_size" default:"1024" validate:"gte=1"`
		DumpPath  string `yaml:"dump_path" default:"panic_dump.json"`
	} `yaml:"engine"`
}

var validate = validator.New()

// DefaultConfig returns a Config populated only from struct defaults.
func DefaultConfig() (*Config, error) {
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}
	return &cfg, nil
}

// LoadConfig reads and parses the configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &domain.ConfigError{Field: path, Err: domain.ErrConfigNotFound}
		}
		return nil, err
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &domain.ConfigError{Field: path, Err: err}
	}

	if err := overrideWithEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks tag rules and the cross-field rules tags cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			fe := ve[0]
			return &domain.ConfigError{
				Field: fe.Namespace(),
				Err:   fmt.Errorf("failed on %q rule (param %q)", fe.Tag(), fe.Param()),
			}
		}
		return &domain.ConfigError{Field: "config", Err: err}
	}

	if c.Pipeline.Classifier == ClassifierQNet && c.Pipeline.QNetWeights == "" {
		return &domain.ConfigError{Field: "pipeline.qnet_weights", Err: errors.New("required when classifier is qnet")}
	}

	tick, _, lot, err := c.FeedScale()
	if err != nil {
		return err
	}
	if !tick.IsPositive() {
		return &domain.ConfigError{Field: "feed.tick_size", Err: errors.New("must be positive")}
	}
	if !lot.IsPositive() {
		return &domain.ConfigError{Field: "feed.lot_size", Err: errors.New("must be positive")}
	}

	return nil
}

// FeedScale parses the tape quantization settings.
func (c *Config) FeedScale() (tick, offset, lot decimal.Decimal, err error) {
	parse := func(field, v string) (decimal.Decimal, error) {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero, &domain.ConfigError{Field: field, Err: err}
		}
		return d, nil
	}
	if tick, err = parse("feed.tick_size", c.Feed.TickSize); err != nil {
		return
	}
	if offset, err = parse("feed.price_offset", c.Feed.PriceOffset); err != nil {
		return
	}
	lot, err = parse("feed.lot_size", c.Feed.LotSize)
	return
}

// overrideWithEnv replaces config values with environment variables when present.
func overrideWithEnv(cfg *Config) error {
	if v := os.Getenv("MGUARD_PRESET"); v != "" {
		p, err := strconv.ParseUint(v, 10, 8)
		if err != nil {
			return &domain.ConfigError{Field: "MGUARD_PRESET", Err: err}
		}
		cfg.Pipeline.Preset = uint8(p)
	}
	if v := os.Getenv("MGUARD_DB_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("MGUARD_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	return nil
}
