package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"

	vaulterrors "github.com/kbukum/vaultkit/errors"
)

// RetryConfig controls how a failed Vault exchange is repeated. Delays grow
// exponentially from InitialBackoff by Multiplier up to MaxBackoff.
type RetryConfig struct {
	// MaxAttempts counts the first attempt.
	MaxAttempts    int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff" mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff" mapstructure:"max_backoff"`
	Multiplier     float64       `yaml:"multiplier" mapstructure:"multiplier"`
	// Jitter randomizes each delay by up to this fraction.
	Jitter float64 `yaml:"jitter" mapstructure:"jitter"`

	// RetryIf decides whether err is worth another attempt.
	RetryIf func(err error) bool `yaml:"-" mapstructure:"-"`
	// OnRetry runs before sleeping ahead of the next attempt.
	OnRetry func(attempt int, err error, wait time.Duration) `yaml:"-" mapstructure:"-"`
}

// DefaultRetryConfig allows three attempts between 100ms and 10s apart.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		Multiplier:     2,
		Jitter:         0.1,
		RetryIf:        DefaultRetryIf,
	}
}

// DefaultRetryIf retries everything except cancellation and errors the
// caller caused: validation, config and parse failures.
func DefaultRetryIf(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	switch vaulterrors.KindOf(err) {
	case vaulterrors.KindValidation, vaulterrors.KindConfig, vaulterrors.KindParse:
		return false
	}
	return true
}

// withDefaults returns cfg with every zero field taken from
// DefaultRetryConfig. Jitter may stay zero.
func (cfg RetryConfig) withDefaults() RetryConfig {
	def := DefaultRetryConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = def.InitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = def.MaxBackoff
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = def.Multiplier
	}
	if cfg.RetryIf == nil {
		cfg.RetryIf = def.RetryIf
	}
	return cfg
}

// Retry runs fn until it succeeds, RetryIf rejects its error, MaxAttempts
// is reached or ctx ends, and returns the last error on failure. fn is not
// called when ctx is already done.
func Retry[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	cfg = cfg.withDefaults()
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = cfg.InitialBackoff
	policy.MaxInterval = cfg.MaxBackoff
	policy.Multiplier = cfg.Multiplier
	policy.RandomizationFactor = cfg.Jitter

	attempt := 0
	opts := []backoff.RetryOption{
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(cfg.MaxAttempts)),
	}
	if cfg.OnRetry != nil {
		opts = append(opts, backoff.WithNotify(func(err error, wait time.Duration) {
			cfg.OnRetry(attempt, err, wait)
		}))
	}

	return backoff.Retry(ctx, func() (T, error) {
		attempt++
		v, err := fn()
		if err != nil && !cfg.RetryIf(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, opts...)
}
