package testutil_test

import (
	"context"
	"errors"
	"testing"

	"github.com/kbukum/vaultkit/component"
	"github.com/kbukum/vaultkit/observability"
	"github.com/kbukum/vaultkit/testutil"
)

// counter is a TestComponent whose state is a single int.
type counter struct {
	value    int
	started  bool
	startErr error
}

func (c *counter) Name() string { return "counter" }

func (c *counter) Start(context.Context) error {
	if c.startErr != nil {
		return c.startErr
	}
	c.started = true
	return nil
}

func (c *counter) Stop(context.Context) error {
	c.started = false
	return nil
}

func (c *counter) Health(context.Context) component.Health {
	if !c.started {
		return component.Health{Name: c.Name(), Status: observability.HealthStatusDown}
	}
	return component.Health{Name: c.Name(), Status: observability.HealthStatusUp}
}

func (c *counter) Reset(context.Context) error {
	c.value = 0
	return nil
}

func (c *counter) Snapshot(context.Context) (any, error) { return c.value, nil }

func (c *counter) Restore(_ context.Context, snap any) error {
	v, ok := snap.(int)
	if !ok {
		return errors.New("bad snapshot")
	}
	c.value = v
	return nil
}

var _ testutil.TestComponent = (*counter)(nil)

func TestSetup(t *testing.T) {
	c := &counter{}
	cleanup, err := testutil.Setup(context.Background(), c)
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if h := c.Health(context.Background()); h.Status != observability.HealthStatusUp {
		t.Errorf("status = %s", h.Status)
	}
	if err := cleanup(); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if c.started {
		t.Error("cleanup should stop the component")
	}
}

func TestSetup_StartError(t *testing.T) {
	c := &counter{startErr: errors.New("boom")}
	if _, err := testutil.Setup(context.Background(), c); err == nil {
		t.Fatal("expected start error")
	}
}

func TestTHelper_StopsOnCleanup(t *testing.T) {
	c := &counter{}
	t.Run("inner", func(t *testing.T) {
		testutil.T(t).Setup(c)
		if !c.started {
			t.Fatal("expected started")
		}
	})
	if c.started {
		t.Error("component should be stopped when the subtest ends")
	}
}

func TestTHelper_SnapshotRestoreReset(t *testing.T) {
	c := &counter{value: 3}
	h := testutil.T(t)

	snap := h.Snapshot(c)
	c.value = 7
	h.Restore(c, snap)
	if c.value != 3 {
		t.Errorf("value after restore = %d", c.value)
	}
	h.Reset(c)
	if c.value != 0 {
		t.Errorf("value after reset = %d", c.value)
	}
}

func TestTHelper_Isolate(t *testing.T) {
	c := &counter{value: 1}
	t.Run("writes", func(t *testing.T) {
		testutil.T(t).Isolate(c)
		c.value = 42
	})
	if c.value != 1 {
		t.Errorf("isolated write leaked: %d", c.value)
	}
}
