package testutil

import (
	"context"

	"github.com/kbukum/vaultkit/component"
)

// TestComponent is a component.Component whose state tests can rewind.
// vaulttest.Server is the main implementation: Reset drops everything
// written since start, Snapshot and Restore bracket a subtest.
type TestComponent interface {
	component.Component

	// Reset returns the component to its freshly started state.
	Reset(ctx context.Context) error

	// Snapshot captures the current state for a later Restore.
	Snapshot(ctx context.Context) (any, error)

	// Restore returns to a state captured by Snapshot.
	Restore(ctx context.Context, snapshot any) error
}
