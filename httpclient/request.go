package httpclient

import (
	"net/http"
	"net/url"
)

// MethodList is Vault's LIST pseudo-verb.
const MethodList = "LIST"

// Request describes one logical Vault call.
type Request struct {
	// Method is the HTTP method or MethodList.
	Method string
	// Path is a path relative to the adapter address or an absolute http(s) URL.
	Path string
	// Body is JSON-encoded when set.
	Body any
	// RawBody is sent verbatim and wins over Body.
	RawBody []byte
	// Query are URL query parameters.
	Query url.Values
	// Headers are per-call headers. They override every default.
	Headers map[string]string
	// WrapTTL requests response wrapping, e.g. "10s" or "300".
	WrapTTL string
	// RaiseException overrides Config.IgnoreExceptions for this call.
	RaiseException *bool
	// NoAuth suppresses the X-Vault-Token header.
	NoAuth bool
	// Login, when set, captures the client token from a successful response.
	Login TokenExtractor
}

// RequestOption customizes a Request built by a verb method.
type RequestOption func(*Request)

// NewRequest builds a Request from a method, path, body and options.
func NewRequest(method, path string, body any, opts ...RequestOption) Request {
	req := Request{Method: method, Path: path, Body: body}
	for _, opt := range opts {
		opt(&req)
	}
	return req
}

// WithHeader sets a single per-call header.
func WithHeader(key, value string) RequestOption {
	return func(r *Request) {
		if r.Headers == nil {
			r.Headers = make(map[string]string)
		}
		r.Headers[key] = value
	}
}

// WithHeaders merges per-call headers.
func WithHeaders(headers map[string]string) RequestOption {
	return func(r *Request) {
		for k, v := range headers {
			WithHeader(k, v)(r)
		}
	}
}

// WithQuery merges query parameters.
func WithQuery(values url.Values) RequestOption {
	return func(r *Request) {
		if r.Query == nil {
			r.Query = make(url.Values)
		}
		for k, vs := range values {
			for _, v := range vs {
				r.Query.Add(k, v)
			}
		}
	}
}

// WithQueryParam sets a single query parameter.
func WithQueryParam(key, value string) RequestOption {
	return func(r *Request) {
		if r.Query == nil {
			r.Query = make(url.Values)
		}
		r.Query.Set(key, value)
	}
}

// WithWrapTTL requests a wrapped response with the given TTL.
func WithWrapTTL(ttl string) RequestOption {
	return func(r *Request) { r.WrapTTL = ttl }
}

// WithRaiseException overrides whether non-2xx responses return an error.
func WithRaiseException(raise bool) RequestOption {
	return func(r *Request) { r.RaiseException = &raise }
}

// WithoutAuth suppresses the client token for this call.
func WithoutAuth() RequestOption {
	return func(r *Request) { r.NoAuth = true }
}

// WithLogin installs a token extractor for this call.
func WithLogin(extractor TokenExtractor) RequestOption {
	return func(r *Request) { r.Login = extractor }
}

// WithRawBody sends body verbatim with the given content type.
func WithRawBody(body []byte, contentType string) RequestOption {
	return func(r *Request) {
		r.RawBody = body
		if contentType != "" {
			WithHeader("Content-Type", contentType)(r)
		}
	}
}

func (r Request) raise(ignoreExceptions bool) bool {
	if r.RaiseException != nil {
		return *r.RaiseException
	}
	return !ignoreExceptions
}

func methodOrGet(method string) string {
	if method == "" {
		return http.MethodGet
	}
	return method
}
