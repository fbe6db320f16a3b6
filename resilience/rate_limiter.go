package resilience

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"
)

// ErrRateLimited means no token was available in time.
var ErrRateLimited = errors.New("rate limit exceeded")

// RateLimiterConfig is a token bucket refilled at Rate tokens per second
// and holding at most Burst.
type RateLimiterConfig struct {
	Name  string
	Rate  float64
	Burst int
	// OnLimit runs whenever a call is refused a token.
	OnLimit func(name string)
}

// DefaultRateLimiterConfig allows 100 requests a second in bursts of ten.
func DefaultRateLimiterConfig(name string) RateLimiterConfig {
	return RateLimiterConfig{
		Name:  name,
		Rate:  100,
		Burst: 10,
	}
}

// RateLimiter paces requests to Vault. The adapter calls Wait before every
// exchange, redirects and retries included.
type RateLimiter struct {
	config  RateLimiterConfig
	limiter *rate.Limiter
}

// NewRateLimiter starts with a full bucket.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.Rate <= 0 {
		config.Rate = 100
	}
	if config.Burst <= 0 {
		config.Burst = 10
	}
	return &RateLimiter{
		config:  config,
		limiter: rate.NewLimiter(rate.Limit(config.Rate), config.Burst),
	}
}

// Allow takes one token if one is available now.
func (rl *RateLimiter) Allow() bool {
	return rl.AllowN(1)
}

// AllowN takes n tokens or none.
func (rl *RateLimiter) AllowN(n int) bool {
	if rl.limiter.AllowN(time.Now(), n) {
		return true
	}
	if rl.config.OnLimit != nil {
		rl.config.OnLimit(rl.config.Name)
	}
	return false
}

// Wait takes one token, blocking until it is available.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	return rl.WaitN(ctx, 1)
}

// WaitN returns ctx's error when ctx ends first, and ErrRateLimited when
// the deadline would pass before n tokens accrue.
func (rl *RateLimiter) WaitN(ctx context.Context, n int) error {
	if err := rl.limiter.WaitN(ctx, n); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if rl.config.OnLimit != nil {
			rl.config.OnLimit(rl.config.Name)
		}
		return ErrRateLimited
	}
	return nil
}

// Execute runs fn only when Allow succeeds.
func (rl *RateLimiter) Execute(fn func() error) error {
	if !rl.Allow() {
		return ErrRateLimited
	}
	return fn()
}

// ExecuteWait runs fn after Wait.
func (rl *RateLimiter) ExecuteWait(ctx context.Context, fn func() error) error {
	if err := rl.Wait(ctx); err != nil {
		return err
	}
	return fn()
}

// Tokens may be fractional.
func (rl *RateLimiter) Tokens() float64 {
	return rl.limiter.TokensAt(time.Now())
}

func (rl *RateLimiter) Rate() float64 {
	return rl.config.Rate
}

func (rl *RateLimiter) Burst() int {
	return rl.config.Burst
}
