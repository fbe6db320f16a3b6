package resilience

import (
	"errors"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	vaulterrors "github.com/kbukum/vaultkit/errors"
)

// State is where a breaker sits: closed passes calls, open rejects them and
// half-open lets HalfOpenMaxCalls probes through.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

func fromBreakerState(s gobreaker.State) State {
	switch s {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}

// Rejections, returned in place of the call's own error.
var (
	ErrCircuitOpen     = errors.New("circuit breaker is open")
	ErrTooManyRequests = errors.New("circuit breaker is half-open and at capacity")
)

// CircuitBreakerConfig trips the breaker after MaxFailures consecutive
// failures and probes again once Timeout has passed.
type CircuitBreakerConfig struct {
	Name             string
	MaxFailures      int
	Timeout          time.Duration
	HalfOpenMaxCalls int
	// IsFailure decides whether an error counts against the breaker.
	// Defaults to CountsAsFailure.
	IsFailure func(error) bool
	// OnStateChange is told of every transition.
	OnStateChange func(name string, from, to State)
}

// DefaultCircuitBreakerConfig trips after five failures and waits 30s.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxFailures:      5,
		Timeout:          30 * time.Second,
		HalfOpenMaxCalls: 1,
	}
}

// CountsAsFailure reports whether err indicates an unhealthy server. Vault
// answers below 500 mean the server is up and are not failures.
func CountsAsFailure(err error) bool {
	if err == nil {
		return false
	}
	if code, ok := vaulterrors.StatusCode(err); ok {
		return code >= 500
	}
	return true
}

// CircuitBreaker fails fast while Vault is unhealthy. It wraps a
// gobreaker.CircuitBreaker that Reset replaces.
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu sync.RWMutex
	cb *gobreaker.CircuitBreaker
}

// NewCircuitBreaker fills zero config fields from the defaults.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.MaxFailures <= 0 {
		config.MaxFailures = 5
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.HalfOpenMaxCalls <= 0 {
		config.HalfOpenMaxCalls = 1
	}
	if config.IsFailure == nil {
		config.IsFailure = CountsAsFailure
	}
	b := &CircuitBreaker{config: config}
	b.cb = b.newBreaker()
	return b
}

func (b *CircuitBreaker) newBreaker() *gobreaker.CircuitBreaker {
	maxFailures := uint32(b.config.MaxFailures)
	settings := gobreaker.Settings{
		Name:        b.config.Name,
		MaxRequests: uint32(b.config.HalfOpenMaxCalls),
		Timeout:     b.config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			return !b.config.IsFailure(err)
		},
	}
	if b.config.OnStateChange != nil {
		settings.OnStateChange = func(name string, from, to gobreaker.State) {
			b.config.OnStateChange(name, fromBreakerState(from), fromBreakerState(to))
		}
	}
	return gobreaker.NewCircuitBreaker(settings)
}

func (b *CircuitBreaker) breaker() *gobreaker.CircuitBreaker {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cb
}

// Execute runs fn if the circuit allows it. Errors from fn are returned
// unchanged; a rejected call returns ErrCircuitOpen or ErrTooManyRequests.
func (b *CircuitBreaker) Execute(fn func() error) error {
	_, err := b.breaker().Execute(func() (interface{}, error) {
		return nil, fn()
	})
	return translateBreakerError(err)
}

// ExecuteWithResult is Execute for a call that yields a value.
func ExecuteWithResult[T any](b *CircuitBreaker, fn func() (T, error)) (T, error) {
	var result T
	err := b.Execute(func() error {
		var fnErr error
		result, fnErr = fn()
		return fnErr
	})
	return result, err
}

func translateBreakerError(err error) error {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState):
		return ErrCircuitOpen
	case errors.Is(err, gobreaker.ErrTooManyRequests):
		return ErrTooManyRequests
	default:
		return err
	}
}

func (b *CircuitBreaker) State() State {
	return fromBreakerState(b.breaker().State())
}

// Failures counts consecutive failures in the current generation.
func (b *CircuitBreaker) Failures() int {
	return int(b.breaker().Counts().ConsecutiveFailures)
}

func (b *CircuitBreaker) Name() string {
	return b.config.Name
}

// Reset forces the circuit breaker back to closed with zeroed counts.
func (b *CircuitBreaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cb = b.newBreaker()
}
