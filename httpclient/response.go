package httpclient

import (
	"bytes"
	"encoding/json"
	"net/http"
	"reflect"
	"strconv"
	"sync"

	"github.com/hashicorp/vault/api"

	"github.com/kbukum/vaultkit/errors"
)

// Response wraps exactly one HTTP response from Vault. The body is read
// eagerly; JSON is decoded on first access and memoized.
type Response struct {
	// StatusCode is the HTTP status code.
	StatusCode int
	// Status is the status line, e.g. "200 OK".
	Status string
	// Header holds the response headers.
	Header http.Header
	// Method is the verb of the final exchange.
	Method string
	// URL is the URL of the final exchange, after redirects.
	URL string

	body []byte

	once    sync.Once
	value   any
	jsonErr error
}

// NewResponse builds an envelope from its parts.
func NewResponse(method, url string, status int, header http.Header, body []byte) *Response {
	if header == nil {
		header = make(http.Header)
	}
	return &Response{
		StatusCode: status,
		Status:     statusLine(status),
		Header:     header,
		Method:     method,
		URL:        url,
		body:       body,
	}
}

func statusLine(status int) string {
	text := http.StatusText(status)
	if text == "" {
		return strconv.Itoa(status)
	}
	return strconv.Itoa(status) + " " + text
}

func (r *Response) decode() {
	r.once.Do(func() {
		if r.IsEmpty() {
			return
		}
		if err := json.Unmarshal(r.body, &r.value); err != nil {
			perr := errors.Wrap(errors.KindParse, err, "response body is not JSON").
				WithRequest(r.Method, r.URL)
			perr.Text = string(r.body)
			r.jsonErr = perr
		}
	})
}

// JSON returns the body decoded as a JSON object. An empty body yields nil.
func (r *Response) JSON() (map[string]any, error) {
	r.decode()
	if r.jsonErr != nil {
		return nil, r.jsonErr
	}
	if r.value == nil {
		return nil, nil
	}
	m, ok := r.value.(map[string]any)
	if !ok {
		err := errors.New(errors.KindParse, "response body is not a JSON object").
			WithRequest(r.Method, r.URL)
		err.Text = string(r.body)
		return nil, err
	}
	return m, nil
}

// Value returns the decoded JSON value of any shape, or nil.
func (r *Response) Value() any {
	r.decode()
	return r.value
}

// Text returns the body as a string.
func (r *Response) Text() string { return string(r.body) }

// Bytes returns the raw body. Callers must not modify it.
func (r *Response) Bytes() []byte { return r.body }

// Get returns a top-level key of the JSON body.
func (r *Response) Get(key string) any {
	m, err := r.JSON()
	if err != nil || m == nil {
		return nil
	}
	return m[key]
}

// Data returns the "data" object of the body.
func (r *Response) Data() map[string]any {
	data, _ := r.Get("data").(map[string]any)
	return data
}

// Warnings returns the warnings Vault attached to the response.
func (r *Response) Warnings() []string {
	list, _ := r.Get("warnings").([]any)
	if len(list) == 0 {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, w := range list {
		if s, ok := w.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Secret decodes the body into Vault's response envelope.
func (r *Response) Secret() (*api.Secret, error) {
	if r.IsEmpty() {
		return nil, nil
	}
	var secret api.Secret
	if err := json.Unmarshal(r.body, &secret); err != nil {
		return nil, errors.Wrap(errors.KindParse, err, "decoding secret envelope").
			WithRequest(r.Method, r.URL)
	}
	return &secret, nil
}

// WrapInfo returns the wrapping metadata, or nil when the response is not wrapped.
func (r *Response) WrapInfo() *api.SecretWrapInfo {
	if r.Get("wrap_info") == nil {
		return nil
	}
	secret, err := r.Secret()
	if err != nil || secret == nil {
		return nil
	}
	return secret.WrapInfo
}

// IsWrapped reports whether the response carries wrap_info.
func (r *Response) IsWrapped() bool {
	info, ok := r.Get("wrap_info").(map[string]any)
	return ok && info != nil
}

// Auth returns the auth block of a login response. Wrapped responses
// never expose one.
func (r *Response) Auth() *api.SecretAuth {
	if r.Get("auth") == nil || r.IsWrapped() {
		return nil
	}
	secret, err := r.Secret()
	if err != nil || secret == nil {
		return nil
	}
	return secret.Auth
}

// Equal reports whether the JSON body equals m.
func (r *Response) Equal(m map[string]any) bool {
	got, err := r.JSON()
	if err != nil {
		return false
	}
	if got == nil || m == nil {
		return got == nil && m == nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return false
	}
	var want map[string]any
	if err := json.Unmarshal(raw, &want); err != nil {
		return false
	}
	return reflect.DeepEqual(got, want)
}

// IsSuccess returns true if the status code is 2xx.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// IsError returns true if the status code is 4xx or 5xx.
func (r *Response) IsError() bool {
	return r.StatusCode >= 400
}

// IsEmpty returns true if the body is empty or whitespace.
func (r *Response) IsEmpty() bool {
	return len(bytes.TrimSpace(r.body)) == 0
}
