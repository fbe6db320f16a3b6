package config

import (
	"slices"

	"github.com/kbukum/vaultkit/errors"
)

var validEnvironments = []string{"development", "staging", "production"}

// BaseConfig carries metadata of the program embedding vaultkit.
type BaseConfig struct {
	Name        string `yaml:"name" mapstructure:"name"`
	Environment string `yaml:"environment" mapstructure:"environment"`
	Version     string `yaml:"version" mapstructure:"version"`
	Debug       bool   `yaml:"debug" mapstructure:"debug"`
}

// ApplyDefaults applies default values to base configuration.
func (c *BaseConfig) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Debug = true
	}
}

// Validate validates base configuration.
func (c *BaseConfig) Validate() error {
	if c.Name == "" {
		return errors.New(errors.KindConfig, "base.name is required")
	}
	if !slices.Contains(validEnvironments, c.Environment) {
		return errors.Newf(errors.KindConfig,
			"base.environment must be one of %v (got: %s)", validEnvironments, c.Environment)
	}
	return nil
}
