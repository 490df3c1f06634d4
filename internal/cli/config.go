package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/roach88/nmlc/internal/ir"
)

// Config holds settings shared by the commands.
//
// Precedence, lowest first: defaults, the YAML config file, NMLC_*
// environment variables, explicitly set flags.
type Config struct {
	// TempSlots is the number of temporary registers available.
	TempSlots int `yaml:"temp_slots" env:"NMLC_TEMP_SLOTS"`

	// Debug dumps the parsed blocks before compiling.
	Debug bool `yaml:"debug" env:"NMLC_DEBUG"`

	// OmitNFOLabels drops the "// label" lines from NFO output.
	OmitNFOLabels bool `yaml:"omit_nfo_labels" env:"NMLC_OMIT_NFO_LABELS"`

	// Database is the default store for history and db output.
	Database string `yaml:"db" env:"NMLC_DB"`

	// DisabledFormats lists output formats whose encoders are not offered.
	DisabledFormats []string `yaml:"disabled_formats" env:"NMLC_DISABLED_FORMATS" envSeparator:","`

	Verbose bool `yaml:"verbose" env:"NMLC_VERBOSE"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{TempSlots: ir.DefaultTempSlots}
}

// LoadConfig builds the configuration from defaults, the optional YAML file
// at path, and the environment.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true) // Reject unknown fields
		if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.TempSlots < 1 || c.TempSlots > ir.MaxTempSlots {
		return fmt.Errorf("temp_slots must be in [1, %d], got %d", ir.MaxTempSlots, c.TempSlots)
	}
	return nil
}
