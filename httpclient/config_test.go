package httpclient

import (
	"net/http"
	"testing"
	"time"

	"github.com/kbukum/vaultkit/errors"
	"github.com/kbukum/vaultkit/resilience"
	"github.com/kbukum/vaultkit/security"
)

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := Config{Address: "http://vault:8200///", Retry: &resilience.RetryConfig{}}
	cfg.ApplyDefaults()
	if cfg.Name != "vault" || cfg.Timeout != 30*time.Second || cfg.MaxRedirects != 10 {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.Address != "http://vault:8200" {
		t.Errorf("address = %q", cfg.Address)
	}
	if cfg.Retry.RetryIf == nil {
		t.Error("retry predicate should default")
	}
}

func TestConfig_ValidateTLS(t *testing.T) {
	cfg := Config{Address: "https://vault:8200", TLS: &security.TLSConfig{CertFile: "client.pem"}}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); errors.KindOf(err) != errors.KindConfig {
		t.Errorf("expected config error, got %v", err)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{errors.New(errors.KindTransport, "refused"), true},
		{errors.New(errors.KindTimeout, "slow"), true},
		{errors.NewHTTPError(http.StatusPreconditionFailed), true},
		{errors.NewHTTPError(http.StatusTooManyRequests), true},
		{errors.NewHTTPError(http.StatusBadGateway), true},
		{errors.NewHTTPError(http.StatusServiceUnavailable), true},
		{errors.NewHTTPError(http.StatusGatewayTimeout), true},
		{errors.NewHTTPError(http.StatusInternalServerError), false},
		{errors.NewHTTPError(http.StatusForbidden), false},
		{errors.New(errors.KindParse, "bad"), false},
	}
	for _, tt := range tests {
		if got := IsRetryable(tt.err); got != tt.want {
			t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
