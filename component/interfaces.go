package component

import (
	"context"

	"github.com/kbukum/vaultkit/observability"
)

// Health is the health report a component returns.
type Health = observability.Health

// Component represents a lifecycle-managed part of a vaultkit program.
type Component interface {
	// Name returns the unique name of the component for registration.
	Name() string

	// Start initializes and starts the component.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the component and releases resources.
	Stop(ctx context.Context) error

	// Health returns the current health status of the component.
	Health(ctx context.Context) Health
}

// Description summarizes a component for startup logging.
type Description struct {
	// Type categorizes the component: "vault-adapter", "vault-client", ...
	Type string
	// Details is a one-liner such as "http://127.0.0.1:8200 ns=team-a".
	Details string
}

// Describable is optionally implemented by components to report what they
// are when the registry starts them.
type Describable interface {
	Describe() Description
}
