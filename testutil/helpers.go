package testutil

import (
	"context"
	"testing"
)

// CleanupFunc stops a component started by Setup.
type CleanupFunc func() error

// Setup starts c and returns the function that stops it.
func Setup(ctx context.Context, c TestComponent) (CleanupFunc, error) {
	if err := c.Start(ctx); err != nil {
		return nil, err
	}
	return func() error { return c.Stop(ctx) }, nil
}

// THelper fails the test instead of returning errors.
type THelper struct {
	t   testing.TB
	ctx context.Context
}

// T wraps t:
//
//	srv := vaulttest.New(t)
//	testutil.T(t).Setup(srv) // stopped when the test ends
func T(t testing.TB) *THelper {
	return &THelper{t: t, ctx: context.Background()}
}

// WithContext sets the context passed to the component.
func (h *THelper) WithContext(ctx context.Context) *THelper {
	h.ctx = ctx
	return h
}

// Setup starts c and stops it in t.Cleanup.
func (h *THelper) Setup(c TestComponent) {
	h.t.Helper()
	if err := c.Start(h.ctx); err != nil {
		h.t.Fatalf("start %s: %v", c.Name(), err)
	}
	h.t.Cleanup(func() {
		if err := c.Stop(h.ctx); err != nil {
			h.t.Errorf("stop %s: %v", c.Name(), err)
		}
	})
}

// Reset resets c.
func (h *THelper) Reset(c TestComponent) {
	h.t.Helper()
	if err := c.Reset(h.ctx); err != nil {
		h.t.Fatalf("reset %s: %v", c.Name(), err)
	}
}

// Snapshot captures the state of c.
func (h *THelper) Snapshot(c TestComponent) any {
	h.t.Helper()
	snap, err := c.Snapshot(h.ctx)
	if err != nil {
		h.t.Fatalf("snapshot %s: %v", c.Name(), err)
	}
	return snap
}

// Restore returns c to snap.
func (h *THelper) Restore(c TestComponent, snap any) {
	h.t.Helper()
	if err := c.Restore(h.ctx, snap); err != nil {
		h.t.Fatalf("restore %s: %v", c.Name(), err)
	}
}

// Isolate snapshots c now and restores it when the test ends, so a
// subtest's writes do not leak into its siblings.
func (h *THelper) Isolate(c TestComponent) {
	h.t.Helper()
	snap := h.Snapshot(c)
	h.t.Cleanup(func() {
		if err := c.Restore(h.ctx, snap); err != nil {
			h.t.Errorf("restore %s: %v", c.Name(), err)
		}
	})
}
