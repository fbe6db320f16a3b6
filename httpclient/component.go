package httpclient

import (
	"context"
	"fmt"

	"github.com/kbukum/vaultkit/component"
	"github.com/kbukum/vaultkit/observability"
)

// Component wraps an Adapter with lifecycle management.
// The adapter is created in Start and closed in Stop.
type Component struct {
	adapter *Adapter
	config  Config
	opts    []Option
}

// compile-time assertions
var _ component.Component = (*Component)(nil)
var _ component.Describable = (*Component)(nil)

// NewComponent creates a new Vault adapter component.
func NewComponent(cfg Config, opts ...Option) *Component {
	return &Component{config: cfg, opts: opts}
}

// Name returns the component name.
func (c *Component) Name() string {
	if c.config.Name == "" {
		return defaultName
	}
	return c.config.Name
}

// Start initializes the Vault adapter.
func (c *Component) Start(_ context.Context) error {
	a, err := New(c.config, c.opts...)
	if err != nil {
		return err
	}
	c.adapter = a
	return nil
}

// Stop closes the Vault adapter and releases resources.
func (c *Component) Stop(ctx context.Context) error {
	if c.adapter != nil {
		return c.adapter.Close(ctx)
	}
	return nil
}

// Health reports whether the adapter accepts requests.
func (c *Component) Health(ctx context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: observability.HealthStatusUp}
	switch {
	case c.adapter == nil:
		h.Status = observability.HealthStatusDown
		h.Message = "not started"
	case !c.adapter.IsAvailable(ctx):
		h.Status = observability.HealthStatusDown
		h.Message = "closed or circuit open"
	}
	return h
}

// Describe returns component description for startup logging.
func (c *Component) Describe() component.Description {
	details := c.config.Address
	if c.config.Namespace != "" {
		details = fmt.Sprintf("%s ns=%s", details, c.config.Namespace)
	}
	return component.Description{
		Type:    "vault-adapter",
		Details: details,
	}
}

// Adapter returns the underlying adapter. Must be called after Start.
func (c *Component) Adapter() *Adapter {
	return c.adapter
}
