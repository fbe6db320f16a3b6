package vault

import (
	"context"
	"sync/atomic"

	"github.com/kbukum/vaultkit/httpclient"
)

// Requester is the transport a Client runs on. *httpclient.Adapter,
// *httpclient.JSONAdapter and *httpclient.AsyncAdapter all satisfy it.
type Requester interface {
	Do(ctx context.Context, req httpclient.Request) (*httpclient.Response, error)
	Token() string
	SetToken(token string)
	Close(ctx context.Context) error
}

// AdapterRef is the single cell every category reads its Requester from,
// so a swap is seen by categories built before it.
type AdapterRef struct {
	cur atomic.Pointer[holder]
}

type holder struct{ r Requester }

// NewAdapterRef creates a cell holding r.
func NewAdapterRef(r Requester) *AdapterRef {
	ref := &AdapterRef{}
	ref.cur.Store(&holder{r: r})
	return ref
}

// Load returns the current Requester.
func (a *AdapterRef) Load() Requester {
	return a.cur.Load().r
}

// Swap installs next and returns the previous Requester.
func (a *AdapterRef) Swap(next Requester) Requester {
	return a.cur.Swap(&holder{r: next}).r
}
