package component

import (
	"context"
	stderrors "errors"
	"slices"
	"sync"
	"time"

	"github.com/kbukum/vaultkit/errors"
	"github.com/kbukum/vaultkit/logger"
	"github.com/kbukum/vaultkit/observability"
)

// DefaultStopTimeout bounds each component's Stop call.
const DefaultStopTimeout = 10 * time.Second

type entry struct {
	Component
	running bool
}

// Registry starts components in registration order and stops them in
// reverse, so a client registered after the server it talks to is stopped
// before it.
type Registry struct {
	mu          sync.RWMutex
	entries     []*entry
	stopTimeout time.Duration
	log         *logger.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		stopTimeout: DefaultStopTimeout,
		log:         logger.Get("registry"),
	}
}

// SetStopTimeout changes the per-component stop timeout.
func (r *Registry) SetStopTimeout(d time.Duration) {
	r.mu.Lock()
	r.stopTimeout = d
	r.mu.Unlock()
}

func (r *Registry) find(name string) *entry {
	i := slices.IndexFunc(r.entries, func(e *entry) bool { return e.Name() == name })
	if i < 0 {
		return nil
	}
	return r.entries[i]
}

// Register appends c. Names must be unique.
func (r *Registry) Register(c Component) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.find(c.Name()) != nil {
		return errors.Newf(errors.KindConfig, "component %s already registered", c.Name())
	}
	r.entries = append(r.entries, &entry{Component: c})
	r.log.Debug("component registered", logger.Fields(logger.FieldComponent, c.Name()))
	return nil
}

// StartAll starts every component not yet running. It stops at the first
// failure and leaves earlier components running; call StopAll to release
// them.
func (r *Registry) StartAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		if e.running {
			continue
		}
		fields := logger.Fields(logger.FieldComponent, e.Name())
		if err := e.Start(ctx); err != nil {
			r.log.Error("component start failed", logger.MergeWithError(fields, err))
			return errors.Wrap(errors.KindInternal, err, "failed to start "+e.Name())
		}
		e.running = true

		if d, ok := e.Component.(Describable); ok {
			desc := d.Describe()
			fields["type"], fields["details"] = desc.Type, desc.Details
		}
		r.log.Info("component started", fields)
	}
	return nil
}

// StopAll stops running components in reverse order, each bounded by the
// stop timeout, and joins every failure.
func (r *Registry) StopAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for _, e := range slices.Backward(r.entries) {
		if !e.running {
			continue
		}
		if err := r.stop(ctx, e); err != nil {
			errs = append(errs, err)
		}
		e.running = false
	}
	return stderrors.Join(errs...)
}

func (r *Registry) stop(ctx context.Context, e *entry) error {
	ctx, cancel := context.WithTimeout(ctx, r.stopTimeout)
	defer cancel()

	fields := logger.Fields(logger.FieldComponent, e.Name())
	if err := e.Stop(ctx); err != nil {
		r.log.Error("component stop failed", logger.MergeWithError(fields, err))
		return errors.Wrap(errors.KindInternal, err, "failed to stop "+e.Name())
	}
	r.log.Debug("component stopped", fields)
	return nil
}

// HealthAll returns each component's health in registration order.
func (r *Registry) HealthAll(ctx context.Context) []Health {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Health, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Health(ctx))
	}
	return out
}

// Report rolls every component's health into one service report. A down
// component makes the service down; a degraded one makes it degraded.
func (r *Registry) Report(ctx context.Context, service, version string) *observability.ServiceHealth {
	sh := observability.NewServiceHealth(service, version)
	for _, h := range r.HealthAll(ctx) {
		sh.AddComponent(h)
	}
	return sh
}

// Get returns the component registered as name, or nil.
func (r *Registry) Get(name string) Component {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e := r.find(name); e != nil {
		return e.Component
	}
	return nil
}

// All returns the components in registration order.
func (r *Registry) All() []Component {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Component, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Component
	}
	return out
}
