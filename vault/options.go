package vault

import (
	"strings"

	"github.com/kbukum/vaultkit/httpclient"
)

// CallOption customizes a facade call.
type CallOption func(*callOptions)

type callOptions struct {
	mount       string
	useToken    bool
	wrapTTL     string
	cas         *int
	requestOpts []httpclient.RequestOption
}

func newCallOptions(defaultMount string, opts []CallOption) callOptions {
	o := callOptions{mount: defaultMount, useToken: true}
	for _, opt := range opts {
		opt(&o)
	}
	o.mount = strings.Trim(o.mount, "/")
	return o
}

// WithMountPoint addresses an auth method or secrets engine mounted at a
// non-default path.
func WithMountPoint(mount string) CallOption {
	return func(o *callOptions) { o.mount = mount }
}

// WithUseToken controls whether a login stores the returned token on the
// adapter. Defaults to true.
func WithUseToken(use bool) CallOption {
	return func(o *callOptions) { o.useToken = use }
}

// WithWrapTTL requests a wrapped response.
func WithWrapTTL(ttl string) CallOption {
	return func(o *callOptions) { o.wrapTTL = ttl }
}

// WithCAS sets the check-and-set version for a KV v2 write.
func WithCAS(version int) CallOption {
	return func(o *callOptions) { o.cas = &version }
}

// WithRequestOptions passes adapter-level options through.
func WithRequestOptions(opts ...httpclient.RequestOption) CallOption {
	return func(o *callOptions) { o.requestOpts = append(o.requestOpts, opts...) }
}

// request returns the adapter options implied by o.
func (o callOptions) request(extra ...httpclient.RequestOption) []httpclient.RequestOption {
	out := make([]httpclient.RequestOption, 0, len(o.requestOpts)+len(extra)+1)
	if o.wrapTTL != "" {
		out = append(out, httpclient.WithWrapTTL(o.wrapTTL))
	}
	out = append(out, extra...)
	return append(out, o.requestOpts...)
}

// login returns the adapter options for a login call using extractor.
func (o callOptions) login(extractor httpclient.TokenExtractor) []httpclient.RequestOption {
	if !o.useToken || o.wrapTTL != "" {
		return o.request()
	}
	return o.request(httpclient.WithLogin(extractor))
}

// apiPath joins segments under /v1.
func apiPath(segments ...string) string {
	parts := make([]string, 0, len(segments)+1)
	parts = append(parts, "/v1")
	for _, s := range segments {
		if s = strings.Trim(s, "/"); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "/")
}
