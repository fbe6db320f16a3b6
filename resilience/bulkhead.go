package resilience

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// Errors returned when no slot can be taken.
var (
	ErrBulkheadFull    = errors.New("bulkhead is full")
	ErrBulkheadTimeout = errors.New("bulkhead wait timeout")
)

// BulkheadConfig bounds how many calls run at once. The async Vault adapter
// builds one from WithMaxConcurrent.
type BulkheadConfig struct {
	Name          string
	MaxConcurrent int
	// MaxWait is how long a call waits for a slot. Zero rejects immediately
	// when full; a negative value waits until ctx is done.
	MaxWait time.Duration
	// OnReject runs for every call turned away.
	OnReject func(name string)
}

// DefaultBulkheadConfig allows ten calls and waits up to a second for a slot.
func DefaultBulkheadConfig(name string) BulkheadConfig {
	return BulkheadConfig{
		Name:          name,
		MaxConcurrent: 10,
		MaxWait:       time.Second,
	}
}

// Bulkhead bounds the number of concurrent calls.
type Bulkhead struct {
	config BulkheadConfig
	sem    *semaphore.Weighted
	inUse  atomic.Int64
}

// NewBulkhead creates a new bulkhead.
func NewBulkhead(config BulkheadConfig) *Bulkhead {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 10
	}
	return &Bulkhead{
		config: config,
		sem:    semaphore.NewWeighted(int64(config.MaxConcurrent)),
	}
}

// Execute runs fn in a slot, failing with ErrBulkheadFull or
// ErrBulkheadTimeout when none frees up in time.
func (b *Bulkhead) Execute(ctx context.Context, fn func() error) error {
	if err := b.Acquire(ctx); err != nil {
		return err
	}
	defer b.Release()
	return fn()
}

// ExecuteBulkhead runs fn through the bulkhead and returns its result.
func ExecuteBulkhead[T any](ctx context.Context, b *Bulkhead, fn func() (T, error)) (T, error) {
	var result T
	err := b.Execute(ctx, func() error {
		var fnErr error
		result, fnErr = fn()
		return fnErr
	})
	return result, err
}

// Acquire takes a slot. Every successful Acquire must be paired with Release.
func (b *Bulkhead) Acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.sem.TryAcquire(1) {
		b.acquired()
		return nil
	}
	if b.config.MaxWait == 0 {
		b.reject()
		return ErrBulkheadFull
	}

	waitCtx := ctx
	if b.config.MaxWait > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, b.config.MaxWait)
		defer cancel()
	}
	if err := b.sem.Acquire(waitCtx, 1); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		b.reject()
		return ErrBulkheadTimeout
	}
	b.acquired()
	return nil
}

// Release returns a slot taken by Acquire.
func (b *Bulkhead) Release() {
	b.inUse.Add(-1)
	b.sem.Release(1)
}

func (b *Bulkhead) acquired() { b.inUse.Add(1) }

func (b *Bulkhead) reject() {
	if b.config.OnReject != nil {
		b.config.OnReject(b.config.Name)
	}
}

// Available is MaxConcurrent minus InUse.
func (b *Bulkhead) Available() int {
	return b.config.MaxConcurrent - b.InUse()
}

// InUse counts the calls currently holding a slot.
func (b *Bulkhead) InUse() int {
	return int(b.inUse.Load())
}

func (b *Bulkhead) MaxConcurrent() int {
	return b.config.MaxConcurrent
}
