package httpclient

import (
	"net/http"
	"strings"
	"time"

	"github.com/kbukum/vaultkit/errors"
	"github.com/kbukum/vaultkit/logger"
	"github.com/kbukum/vaultkit/resilience"
	"github.com/kbukum/vaultkit/security"
	"github.com/kbukum/vaultkit/validation"
)

const (
	defaultName         = "vault"
	defaultTimeout      = 30 * time.Second
	defaultMaxRedirects = 10
)

// Config configures the Vault adapter.
type Config struct {
	// Name identifies the adapter in logs, metrics and the component registry.
	Name string `yaml:"name" mapstructure:"name"`

	// Address is the Vault base URL, e.g. https://127.0.0.1:8200.
	Address string `yaml:"address" mapstructure:"address" validate:"required,http_url"`

	// Headers are sent on every request. Built-in Vault headers override them.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`

	// Namespace is sent as X-Vault-Namespace on every request.
	Namespace string `yaml:"namespace" mapstructure:"namespace"`

	// Token is the initial client token. Logins replace it.
	Token string `yaml:"-" mapstructure:"token"`

	// TLS configures the transport. Ignored when HTTPClient is set.
	TLS *security.TLSConfig `yaml:"tls" mapstructure:"tls" validate:"-"`

	// Timeout bounds each network exchange. Defaults to 30s.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`

	// Proxy is an outbound proxy URL. Empty uses the environment proxy.
	Proxy string `yaml:"proxy" mapstructure:"proxy" validate:"omitempty,url"`

	// StrictHTTP sends LIST as GET with list=true.
	StrictHTTP bool `yaml:"strict_http" mapstructure:"strict_http"`

	// IgnoreExceptions returns non-2xx responses without an error.
	IgnoreExceptions bool `yaml:"ignore_exceptions" mapstructure:"ignore_exceptions"`

	// MaxRedirects bounds the redirects followed per request. Defaults to 10.
	MaxRedirects int `yaml:"max_redirects" mapstructure:"max_redirects" validate:"gte=0"`

	// DisableRedirects returns 3xx responses as they are.
	DisableRedirects bool `yaml:"disable_redirects" mapstructure:"disable_redirects"`

	// Retry configures retry behavior. Nil disables retry.
	Retry *resilience.RetryConfig `yaml:"-" mapstructure:"-" validate:"-"`

	// CircuitBreaker configures circuit breaker behavior. Nil disables it.
	CircuitBreaker *resilience.CircuitBreakerConfig `yaml:"-" mapstructure:"-" validate:"-"`

	// RateLimiter configures rate limiting. Nil disables it.
	RateLimiter *resilience.RateLimiterConfig `yaml:"-" mapstructure:"-" validate:"-"`

	// HTTPClient replaces the pooled client the adapter would build.
	// Its CheckRedirect is overridden on a copy.
	HTTPClient *http.Client `yaml:"-" mapstructure:"-" validate:"-"`

	// Logger defaults to the global logger tagged component=vault-adapter.
	Logger *logger.Logger `yaml:"-" mapstructure:"-" validate:"-"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = defaultName
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxRedirects == 0 {
		c.MaxRedirects = defaultMaxRedirects
	}
	c.Address = strings.TrimRight(c.Address, "/")
	if c.Retry != nil && c.Retry.RetryIf == nil {
		c.Retry.RetryIf = IsRetryable
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		cfgErr := errors.Wrap(errors.KindConfig, err, "httpclient: invalid config")
		if ve, ok := errors.AsVaultError(err); ok {
			cfgErr.WithDetails(ve.Details)
		}
		return cfgErr
	}
	if c.HTTPClient == nil {
		if err := c.TLS.Validate(); err != nil {
			return errors.Wrap(errors.KindConfig, err, "httpclient: invalid tls config")
		}
	}
	return nil
}

// IsRetryable reports whether a failed request may succeed when repeated:
// transport failures, 412, 429 and 502 to 504.
func IsRetryable(err error) bool {
	if errors.IsTransport(err) {
		return true
	}
	return errors.HasStatus(err,
		http.StatusPreconditionFailed,
		http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
	)
}

// DefaultRetryConfig returns a default retry config for Vault requests.
func DefaultRetryConfig() *resilience.RetryConfig {
	cfg := resilience.DefaultRetryConfig()
	cfg.RetryIf = IsRetryable
	return &cfg
}

// DefaultCircuitBreakerConfig returns a default circuit breaker config.
func DefaultCircuitBreakerConfig(name string) *resilience.CircuitBreakerConfig {
	cfg := resilience.DefaultCircuitBreakerConfig(name)
	return &cfg
}

// DefaultRateLimiterConfig returns a default rate limiter config.
func DefaultRateLimiterConfig(name string) *resilience.RateLimiterConfig {
	cfg := resilience.DefaultRateLimiterConfig(name)
	return &cfg
}
