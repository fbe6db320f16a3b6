package vault

import (
	"context"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/kbukum/vaultkit/errors"
	"github.com/kbukum/vaultkit/httpclient"
	"github.com/kbukum/vaultkit/validation"
)

// Secrets groups the secrets engine categories.
type Secrets struct {
	KV *KV
}

func newSecrets(ref *AdapterRef) *Secrets {
	return &Secrets{KV: newKV(category{ref}, KVv2)}
}

// KVVersion selects the key/value engine implementation.
type KVVersion int

const (
	// KVv1 is the unversioned key/value engine.
	KVv1 KVVersion = 1
	// KVv2 is the versioned key/value engine.
	KVv2 KVVersion = 2
)

// String returns "v1" or "v2".
func (v KVVersion) String() string {
	return "v" + strconv.Itoa(int(v))
}

func (v KVVersion) valid() bool {
	return v == KVv1 || v == KVv2
}

const defaultKVMount = "secret"

// kvEngine is the operation set both engine versions share.
type kvEngine interface {
	Read(ctx context.Context, path string, opts ...CallOption) (*httpclient.Response, error)
	Write(ctx context.Context, path string, data map[string]any, opts ...CallOption) (*httpclient.Response, error)
	List(ctx context.Context, path string, opts ...CallOption) (*httpclient.Response, error)
	Delete(ctx context.Context, path string, opts ...CallOption) (*httpclient.Response, error)
}

// KV forwards the shared operations to the engine version currently
// selected. Both engines default to the "secret" mount.
type KV struct {
	version atomic.Int32
	v1      *KVV1
	v2      *KVV2
}

func newKV(base category, version KVVersion) *KV {
	kv := &KV{v1: &KVV1{base}, v2: &KVV2{base}}
	kv.version.Store(int32(version))
	return kv
}

// Version returns the selected engine version.
func (k *KV) Version() KVVersion {
	return KVVersion(k.version.Load())
}

// SetVersion selects the engine version.
func (k *KV) SetVersion(v KVVersion) error {
	if !v.valid() {
		return errors.Newf(errors.KindValidation, "invalid kv version %d, expected 1 or 2", int(v)).
			WithDetail("field", "version")
	}
	k.version.Store(int32(v))
	return nil
}

// V1 returns the v1 engine.
func (k *KV) V1() *KVV1 { return k.v1 }

// V2 returns the v2 engine.
func (k *KV) V2() *KVV2 { return k.v2 }

func (k *KV) engine() kvEngine {
	if k.Version() == KVv1 {
		return k.v1
	}
	return k.v2
}

// Read reads the secret at path.
func (k *KV) Read(ctx context.Context, path string, opts ...CallOption) (*httpclient.Response, error) {
	return k.engine().Read(ctx, path, opts...)
}

// Write writes data at path.
func (k *KV) Write(ctx context.Context, path string, data map[string]any, opts ...CallOption) (*httpclient.Response, error) {
	return k.engine().Write(ctx, path, data, opts...)
}

// List lists the keys under path.
func (k *KV) List(ctx context.Context, path string, opts ...CallOption) (*httpclient.Response, error) {
	return k.engine().List(ctx, path, opts...)
}

// Delete deletes the secret at path. On v2 this soft-deletes the latest version.
func (k *KV) Delete(ctx context.Context, path string, opts ...CallOption) (*httpclient.Response, error) {
	return k.engine().Delete(ctx, path, opts...)
}

// KVV1 is the unversioned key/value engine.
type KVV1 struct{ category }

var _ kvEngine = (*KVV1)(nil)

// Read reads the secret at path.
func (e *KVV1) Read(ctx context.Context, path string, opts ...CallOption) (*httpclient.Response, error) {
	if err := validation.Required("path", path); err != nil {
		return nil, err
	}
	o := newCallOptions(defaultKVMount, opts)
	return e.do(ctx, http.MethodGet, apiPath(o.mount, path), nil, o.request())
}

// Write replaces the secret at path with data.
func (e *KVV1) Write(ctx context.Context, path string, data map[string]any, opts ...CallOption) (*httpclient.Response, error) {
	if err := validation.Required("path", path); err != nil {
		return nil, err
	}
	o := newCallOptions(defaultKVMount, opts)
	return e.do(ctx, http.MethodPut, apiPath(o.mount, path), data, o.request())
}

// List lists the keys under path.
func (e *KVV1) List(ctx context.Context, path string, opts ...CallOption) (*httpclient.Response, error) {
	o := newCallOptions(defaultKVMount, opts)
	return e.do(ctx, httpclient.MethodList, apiPath(o.mount, path), nil, o.request())
}

// Delete deletes the secret at path.
func (e *KVV1) Delete(ctx context.Context, path string, opts ...CallOption) (*httpclient.Response, error) {
	if err := validation.Required("path", path); err != nil {
		return nil, err
	}
	o := newCallOptions(defaultKVMount, opts)
	return e.do(ctx, http.MethodDelete, apiPath(o.mount, path), nil, o.request())
}

// KVV2 is the versioned key/value engine.
type KVV2 struct{ category }

var _ kvEngine = (*KVV2)(nil)

// Read reads the latest version of the secret at path.
func (e *KVV2) Read(ctx context.Context, path string, opts ...CallOption) (*httpclient.Response, error) {
	return e.ReadVersion(ctx, path, 0, opts...)
}

// ReadVersion reads a specific version. Version 0 is the latest.
func (e *KVV2) ReadVersion(ctx context.Context, path string, version int, opts ...CallOption) (*httpclient.Response, error) {
	err := validation.New().
		Required("path", path).
		Min("version", version, 0).
		Validate()
	if err != nil {
		return nil, err
	}
	o := newCallOptions(defaultKVMount, opts)
	var extra []httpclient.RequestOption
	if version > 0 {
		extra = append(extra, httpclient.WithQueryParam("version", strconv.Itoa(version)))
	}
	return e.do(ctx, http.MethodGet, apiPath(o.mount, "data", path), nil, o.request(extra...))
}

// Write creates a new version of the secret at path. WithCAS makes the
// write conditional on the current version.
func (e *KVV2) Write(ctx context.Context, path string, data map[string]any, opts ...CallOption) (*httpclient.Response, error) {
	if err := validation.Required("path", path); err != nil {
		return nil, err
	}
	o := newCallOptions(defaultKVMount, opts)
	if data == nil {
		data = map[string]any{}
	}
	body := map[string]any{"data": data}
	if o.cas != nil {
		body["options"] = map[string]any{"cas": *o.cas}
	}
	return e.do(ctx, http.MethodPost, apiPath(o.mount, "data", path), body, o.request())
}

// List lists the keys under path.
func (e *KVV2) List(ctx context.Context, path string, opts ...CallOption) (*httpclient.Response, error) {
	o := newCallOptions(defaultKVMount, opts)
	return e.do(ctx, httpclient.MethodList, apiPath(o.mount, "metadata", path), nil, o.request())
}

// Delete soft-deletes the latest version of the secret at path.
func (e *KVV2) Delete(ctx context.Context, path string, opts ...CallOption) (*httpclient.Response, error) {
	if err := validation.Required("path", path); err != nil {
		return nil, err
	}
	o := newCallOptions(defaultKVMount, opts)
	return e.do(ctx, http.MethodDelete, apiPath(o.mount, "data", path), nil, o.request())
}

// ReadMetadata reads the metadata and version history of path.
func (e *KVV2) ReadMetadata(ctx context.Context, path string, opts ...CallOption) (*httpclient.Response, error) {
	if err := validation.Required("path", path); err != nil {
		return nil, err
	}
	o := newCallOptions(defaultKVMount, opts)
	return e.do(ctx, http.MethodGet, apiPath(o.mount, "metadata", path), nil, o.request())
}

// DeleteMetadata permanently deletes path and all its versions.
func (e *KVV2) DeleteMetadata(ctx context.Context, path string, opts ...CallOption) (*httpclient.Response, error) {
	if err := validation.Required("path", path); err != nil {
		return nil, err
	}
	o := newCallOptions(defaultKVMount, opts)
	return e.do(ctx, http.MethodDelete, apiPath(o.mount, "metadata", path), nil, o.request())
}
