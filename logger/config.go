package logger

import (
	"slices"

	vaulterrors "github.com/kbukum/vaultkit/errors"
)

// Config contains logging configuration.
type Config struct {
	Level     string `yaml:"level" mapstructure:"level"`
	Format    string `yaml:"format" mapstructure:"format"`
	Output    string `yaml:"output" mapstructure:"output"`
	NoColor   bool   `yaml:"no_color" mapstructure:"no_color"`
	Timestamp bool   `yaml:"timestamp" mapstructure:"timestamp"`
	Caller    bool   `yaml:"caller" mapstructure:"caller"`
}

var (
	validLevels  = []string{"trace", "debug", "info", "warn", "error", "fatal", "disabled"}
	validFormats = []string{"json", "console", FormatPretty}
)

// ApplyDefaults applies default values to logging configuration.
func (c *Config) ApplyDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "json"
	}
	if c.Output == "" {
		c.Output = "stderr"
	}
	c.Timestamp = true
}

// Validate validates logging configuration.
func (c *Config) Validate() error {
	if !slices.Contains(validLevels, c.Level) {
		return vaulterrors.Newf(vaulterrors.KindConfig,
			"logging.level must be one of %v (got: %s)", validLevels, c.Level).
			WithDetail("field", "logging.level")
	}
	if !slices.Contains(validFormats, c.Format) {
		return vaulterrors.Newf(vaulterrors.KindConfig,
			"logging.format must be one of %v (got: %s)", validFormats, c.Format).
			WithDetail("field", "logging.format")
	}
	return nil
}
