package vault

import (
	"context"
	stderrors "errors"
	"net/http"
	"strconv"
	"time"

	"github.com/kbukum/vaultkit/config"
	"github.com/kbukum/vaultkit/errors"
	"github.com/kbukum/vaultkit/httpclient"
	"github.com/kbukum/vaultkit/logger"
	"github.com/kbukum/vaultkit/observability"
)

// Client is the Vault facade. Its categories share one AdapterRef, so
// SetAdapter is observed everywhere.
type Client struct {
	ref      *AdapterRef
	shutdown observability.ShutdownFunc

	Auth    *Auth
	Secrets *Secrets
	Sys     *Sys
	PKI     *PKI
}

// New builds a Client over r.
func New(r Requester) *Client {
	ref := NewAdapterRef(r)
	return &Client{
		ref:     ref,
		Auth:    newAuth(ref),
		Secrets: newSecrets(ref),
		Sys:     &Sys{category{ref}},
		PKI:     &PKI{category{ref}},
	}
}

// NewFromConfig builds a Client over a new httpclient.Adapter.
func NewFromConfig(cfg httpclient.Config, opts ...httpclient.Option) (*Client, error) {
	a, err := httpclient.New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return New(a), nil
}

// NewFromEnv loads the VAULT_* environment, config files and the token
// helper file, then builds a Client.
// When the telemetry section is enabled it also installs the global
// OpenTelemetry providers; Close shuts them down.
func NewFromEnv(opts ...config.LoaderOption) (*Client, error) {
	vc, err := config.LoadVault(opts...)
	if err != nil {
		return nil, err
	}
	shutdown, err := observability.Setup(context.Background(), vc.Telemetry, vc.Service.Name, vc.Service.Version)
	if err != nil {
		return nil, err
	}
	c, err := NewFromConfig(AdapterConfig(vc))
	if err != nil {
		_ = shutdown(context.Background())
		return nil, err
	}
	c.shutdown = shutdown
	return c, nil
}

// AdapterConfig maps a loaded VaultConfig onto an adapter configuration.
func AdapterConfig(vc *config.VaultConfig) httpclient.Config {
	cfg := httpclient.Config{
		Address:      vc.Address,
		Token:        vc.Token,
		Namespace:    vc.Namespace,
		Timeout:      vc.Timeout,
		Proxy:        vc.Proxy,
		StrictHTTP:   vc.StrictHTTP,
		MaxRedirects: vc.MaxRedirects,
		Logger:       logger.New(&vc.Logging, vc.Service.Name).WithComponent("vault-adapter"),
	}
	if tls := vc.TLS(); tls.IsEnabled() {
		cfg.TLS = tls
	}
	return cfg
}

// Adapter returns the current Requester.
func (c *Client) Adapter() Requester { return c.ref.Load() }

// SetAdapter swaps the Requester for every category and returns the
// previous one. The previous Requester is not closed.
func (c *Client) SetAdapter(r Requester) Requester { return c.ref.Swap(r) }

// Token returns the adapter's client token.
func (c *Client) Token() string { return c.ref.Load().Token() }

// SetToken sets the adapter's client token.
func (c *Client) SetToken(token string) { c.ref.Load().SetToken(token) }

// IsAuthenticated looks up the current token. A rejected token reports
// false without an error.
func (c *Client) IsAuthenticated(ctx context.Context) (bool, error) {
	if c.Token() == "" {
		return false, nil
	}
	_, err := c.Auth.Token.LookupSelf(ctx)
	switch {
	case err == nil:
		return true, nil
	case errors.IsAbsent(err), errors.HasStatus(err, http.StatusUnauthorized):
		return false, nil
	default:
		return false, err
	}
}

// Health reports Vault's health as a component health value.
func (c *Client) Health(ctx context.Context) observability.Health {
	start := time.Now()
	h := observability.Health{Name: "vault"}

	resp, err := c.Sys.Health(ctx)
	h.Latency = time.Since(start)
	if err != nil {
		h.Status = observability.HealthStatusDown
		h.Message = err.Error()
		return h
	}

	switch resp.StatusCode {
	case http.StatusOK:
		h.Status = observability.HealthStatusUp
	case http.StatusTooManyRequests:
		h.Status = observability.HealthStatusUp
		h.Message = "standby"
	case 472:
		h.Status = observability.HealthStatusDegraded
		h.Message = "disaster recovery secondary"
	case 473:
		h.Status = observability.HealthStatusDegraded
		h.Message = "performance standby"
	case http.StatusNotImplemented:
		h.Status = observability.HealthStatusDown
		h.Message = "not initialized"
	case http.StatusServiceUnavailable:
		h.Status = observability.HealthStatusDown
		h.Message = "sealed"
	default:
		h.Status = observability.HealthStatusDown
		h.Message = resp.Status
	}
	h = h.WithDetail("status_code", strconv.Itoa(resp.StatusCode))
	if v, ok := resp.Get("version").(string); ok {
		h = h.WithDetail("version", v)
	}
	return h
}

// Close closes the current Requester and flushes telemetry installed by
// NewFromEnv.
func (c *Client) Close(ctx context.Context) error {
	err := c.ref.Load().Close(ctx)
	if c.shutdown != nil {
		err = stderrors.Join(err, c.shutdown(ctx))
	}
	return err
}

// category is embedded by every endpoint group.
type category struct {
	ref *AdapterRef
}

func (c category) do(ctx context.Context, method, path string, body any, opts []httpclient.RequestOption) (*httpclient.Response, error) {
	return errors.GuardValue(func() (*httpclient.Response, error) {
		return c.ref.Load().Do(ctx, httpclient.NewRequest(method, path, body, opts...))
	})
}
