package httpclient

import (
	"context"
	"net/http"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kbukum/vaultkit/errors"
	"github.com/kbukum/vaultkit/resilience"
)

// Call is a request in flight on an AsyncAdapter.
type Call struct {
	req  Request
	done chan struct{}
	resp *Response
	err  error
}

// Request returns the request the call is running.
func (c *Call) Request() Request { return c.req }

// Done is closed when the call has finished.
func (c *Call) Done() <-chan struct{} { return c.done }

// Await blocks until the call finishes or ctx is done.
func (c *Call) Await(ctx context.Context) (*Response, error) {
	select {
	case <-c.done:
		return c.resp, c.err
	case <-ctx.Done():
		return nil, errors.Normalize(ctx.Err())
	}
}

// AsyncAdapter runs every request on its own goroutine and returns a Call
// immediately. Only the token is shared between calls.
type AsyncAdapter struct {
	next     Requester
	bulkhead *resilience.Bulkhead

	// mu orders Submit's inflight.Add against Close's inflight.Wait.
	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

var _ Requester = (*AsyncAdapter)(nil)

// AsyncOption customizes an AsyncAdapter.
type AsyncOption func(*AsyncAdapter)

// WithMaxConcurrent bounds the calls in flight. Excess calls wait for a
// slot until their context is done.
func WithMaxConcurrent(n int) AsyncOption {
	return func(a *AsyncAdapter) {
		if n <= 0 {
			a.bulkhead = nil
			return
		}
		a.bulkhead = resilience.NewBulkhead(resilience.BulkheadConfig{
			Name:          "vault-async",
			MaxConcurrent: n,
			MaxWait:       -1,
		})
	}
}

// NewAsync wraps next.
func NewAsync(next Requester, opts ...AsyncOption) *AsyncAdapter {
	a := &AsyncAdapter{next: next}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Submit starts req and returns its Call. After Close the Call is already
// finished with a KindClosed error.
func (a *AsyncAdapter) Submit(ctx context.Context, req Request) *Call {
	call := &Call{req: req, done: make(chan struct{})}
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		call.err = errors.New(errors.KindClosed, "async adapter is closed").
			WithRequest(req.Method, req.Path)
		close(call.done)
		return call
	}
	a.inflight.Add(1)
	a.mu.Unlock()

	go func() {
		defer a.inflight.Done()
		defer close(call.done)

		if a.bulkhead != nil {
			if err := a.bulkhead.Acquire(ctx); err != nil {
				call.err = errors.Normalize(err)
				return
			}
			defer a.bulkhead.Release()
		}

		call.err = errors.Guard(func() error {
			var err error
			call.resp, err = a.next.Do(ctx, req)
			return err
		})
	}()
	return call
}

// Do submits req and awaits it.
func (a *AsyncAdapter) Do(ctx context.Context, req Request) (*Response, error) {
	return a.Submit(ctx, req).Await(ctx)
}

// Token returns the shared token.
func (a *AsyncAdapter) Token() string { return a.next.Token() }

// SetToken sets the shared token.
func (a *AsyncAdapter) SetToken(token string) { a.next.SetToken(token) }

// Close stops new submissions, waits for calls in flight or for ctx, then
// closes the wrapped requester. Later calls to Close return nil.
func (a *AsyncAdapter) Close(ctx context.Context) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		a.inflight.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-ctx.Done():
	}
	return a.next.Close(ctx)
}

// InFlight returns the number of calls holding a concurrency slot.
// It is always zero without WithMaxConcurrent.
func (a *AsyncAdapter) InFlight() int {
	if a.bulkhead == nil {
		return 0
	}
	return a.bulkhead.InUse()
}

// Get starts a GET request.
func (a *AsyncAdapter) Get(ctx context.Context, path string, opts ...RequestOption) *Call {
	return a.Submit(ctx, NewRequest(http.MethodGet, path, nil, opts...))
}

// Post starts a POST request with a JSON body.
func (a *AsyncAdapter) Post(ctx context.Context, path string, body any, opts ...RequestOption) *Call {
	return a.Submit(ctx, NewRequest(http.MethodPost, path, body, opts...))
}

// Put starts a PUT request with a JSON body.
func (a *AsyncAdapter) Put(ctx context.Context, path string, body any, opts ...RequestOption) *Call {
	return a.Submit(ctx, NewRequest(http.MethodPut, path, body, opts...))
}

// Delete starts a DELETE request.
func (a *AsyncAdapter) Delete(ctx context.Context, path string, opts ...RequestOption) *Call {
	return a.Submit(ctx, NewRequest(http.MethodDelete, path, nil, opts...))
}

// List starts a LIST request.
func (a *AsyncAdapter) List(ctx context.Context, path string, opts ...RequestOption) *Call {
	return a.Submit(ctx, NewRequest(MethodList, path, nil, opts...))
}

// Head starts a HEAD request.
func (a *AsyncAdapter) Head(ctx context.Context, path string, opts ...RequestOption) *Call {
	return a.Submit(ctx, NewRequest(http.MethodHead, path, nil, opts...))
}

// Login starts a POST request that stores the returned client token.
func (a *AsyncAdapter) Login(ctx context.Context, path string, body any, opts ...RequestOption) *Call {
	req := NewRequest(http.MethodPost, path, body, opts...)
	if req.Login == nil {
		req.Login = AuthClientToken
	}
	return a.Submit(ctx, req)
}

// Gather awaits every call. Responses keep the order of calls; the first
// error is returned and the remaining waits stop when it happens.
func Gather(ctx context.Context, calls ...*Call) ([]*Response, error) {
	results := make([]*Response, len(calls))
	g, gctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		g.Go(func() error {
			resp, err := call.Await(gctx)
			results[i] = resp
			return err
		})
	}
	return results, g.Wait()
}
