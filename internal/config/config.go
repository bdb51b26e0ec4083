package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"ibovselic/internal/exporter"
	"ibovselic/internal/provider/b3"
	"ibovselic/internal/provider/bcb"
)

// DefaultFile is read when Load is given no path and the file exists.
const DefaultFile = "ibovselic.yaml"

// EnvPrefix prefixes every environment override, e.g. IBOVSELIC_DATA_DIR.
// Variable names derive from the field names; there is no unprefixed fallback.
const EnvPrefix = "IBOVSELIC"

type B3 struct {
	BaseURL string `yaml:"base_url" split_words:"true" validate:"required,url"`
}

type BCB struct {
	BaseURL       string `yaml:"base_url" split_words:"true" validate:"required,url"`
	DefaultSeries int    `yaml:"default_series" split_words:"true" validate:"gt=0"`
}

type Files struct {
	IBOV      string `yaml:"ibov" validate:"required"`
	SELIC     string `yaml:"selic" validate:"required"`
	SELICMeta string `yaml:"selic_meta" split_words:"true" validate:"required"`
}

type Logging struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json console"`
}

type Config struct {
	DataDir   string  `yaml:"data_dir" split_words:"true" validate:"required"`
	ChunkSize int     `yaml:"chunk_size" split_words:"true" validate:"min=1"`
	B3        B3      `yaml:"b3"`
	BCB       BCB     `yaml:"bcb"`
	Files     Files   `yaml:"files"`
	Logging   Logging `yaml:"logging"`
}

func Default() Config {
	return Config{
		DataDir:   exporter.DefaultDataDir,
		ChunkSize: exporter.DefaultChunkSize,
		B3:        B3{BaseURL: b3.DefaultBaseURL},
		BCB: BCB{
			BaseURL:       bcb.DefaultBaseURL,
			DefaultSeries: bcb.SeriesSelicMonthly,
		},
		Files: Files{
			IBOV:      exporter.FileIBOV,
			SELIC:     exporter.FileSELIC,
			SELICMeta: exporter.FileSELICMeta,
		},
		Logging: Logging{Level: "info", Format: "console"},
	}
}

// Load reads YAML config from path. If path is empty, DefaultFile is used
// when present, otherwise defaults. Environment variables prefixed with
// EnvPrefix override file values.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return cfg, fmt.Errorf("env config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks every field against its constraints.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("invalid config: %s: failed %q", verrs[0].Namespace(), verrs[0].Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
