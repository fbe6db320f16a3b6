package vault

import (
	"context"

	"github.com/kbukum/vaultkit/component"
	"github.com/kbukum/vaultkit/httpclient"
	"github.com/kbukum/vaultkit/observability"
)

// Component manages a Client inside a component.Registry.
type Component struct {
	config httpclient.Config
	opts   []httpclient.Option
	client *Client
}

var _ component.Component = (*Component)(nil)
var _ component.Describable = (*Component)(nil)

// NewComponent creates a Client component; the Client is built in Start.
func NewComponent(cfg httpclient.Config, opts ...httpclient.Option) *Component {
	return &Component{config: cfg, opts: opts}
}

// Name returns the component name.
func (c *Component) Name() string { return "vault-client" }

// Start builds the Client.
func (c *Component) Start(_ context.Context) error {
	client, err := NewFromConfig(c.config, c.opts...)
	if err != nil {
		return err
	}
	c.client = client
	return nil
}

// Stop closes the Client.
func (c *Component) Stop(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	return c.client.Close(ctx)
}

// Health queries sys/health through the Client.
func (c *Component) Health(ctx context.Context) component.Health {
	if c.client == nil {
		return component.Health{
			Name:    c.Name(),
			Status:  observability.HealthStatusDown,
			Message: "not started",
		}
	}
	h := c.client.Health(ctx)
	h.Name = c.Name()
	return h
}

// Describe returns component description for startup logging.
func (c *Component) Describe() component.Description {
	return component.Description{Type: "vault-client", Details: c.config.Address}
}

// Client returns the Client. Must be called after Start.
func (c *Component) Client() *Client { return c.client }
