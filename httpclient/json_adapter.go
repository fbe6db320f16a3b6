package httpclient

import (
	"context"
	"net/http"
)

// JSONAdapter decodes successful response bodies into a JSON object.
// Empty bodies decode to nil.
type JSONAdapter struct {
	next Requester
}

var _ Requester = (*JSONAdapter)(nil)

// NewJSON wraps next.
func NewJSON(next Requester) *JSONAdapter {
	return &JSONAdapter{next: next}
}

// Do forwards to the wrapped requester.
func (j *JSONAdapter) Do(ctx context.Context, req Request) (*Response, error) {
	return j.next.Do(ctx, req)
}

// Token returns the wrapped requester's token.
func (j *JSONAdapter) Token() string { return j.next.Token() }

// SetToken sets the wrapped requester's token.
func (j *JSONAdapter) SetToken(token string) { j.next.SetToken(token) }

// Close closes the wrapped requester.
func (j *JSONAdapter) Close(ctx context.Context) error { return j.next.Close(ctx) }

// Call sends req and decodes a 2xx body. The envelope comes back whatever
// the outcome, so a suppressed non-2xx is told apart from a success by
// resp.StatusCode; its body is left undecoded and the map is nil.
func (j *JSONAdapter) Call(ctx context.Context, req Request) (map[string]any, *Response, error) {
	resp, err := j.next.Do(ctx, req)
	if err != nil || resp == nil || !resp.IsSuccess() {
		return nil, resp, err
	}
	if resp.StatusCode == http.StatusNoContent || resp.IsEmpty() {
		return nil, resp, nil
	}
	body, err := resp.JSON()
	if err != nil {
		return nil, resp, err
	}
	return body, resp, nil
}

// Get sends a GET request.
func (j *JSONAdapter) Get(ctx context.Context, path string, opts ...RequestOption) (map[string]any, *Response, error) {
	return j.Call(ctx, NewRequest(http.MethodGet, path, nil, opts...))
}

// Post sends a POST request with a JSON body.
func (j *JSONAdapter) Post(ctx context.Context, path string, body any, opts ...RequestOption) (map[string]any, *Response, error) {
	return j.Call(ctx, NewRequest(http.MethodPost, path, body, opts...))
}

// Put sends a PUT request with a JSON body.
func (j *JSONAdapter) Put(ctx context.Context, path string, body any, opts ...RequestOption) (map[string]any, *Response, error) {
	return j.Call(ctx, NewRequest(http.MethodPut, path, body, opts...))
}

// Delete sends a DELETE request.
func (j *JSONAdapter) Delete(ctx context.Context, path string, opts ...RequestOption) (map[string]any, *Response, error) {
	return j.Call(ctx, NewRequest(http.MethodDelete, path, nil, opts...))
}

// List sends a LIST request.
func (j *JSONAdapter) List(ctx context.Context, path string, opts ...RequestOption) (map[string]any, *Response, error) {
	return j.Call(ctx, NewRequest(MethodList, path, nil, opts...))
}

// Head sends a HEAD request. The map is always nil; only the envelope's
// status and headers carry information.
func (j *JSONAdapter) Head(ctx context.Context, path string, opts ...RequestOption) (map[string]any, *Response, error) {
	return j.Call(ctx, NewRequest(http.MethodHead, path, nil, opts...))
}

// Login sends a POST request and stores the client token it returns.
func (j *JSONAdapter) Login(ctx context.Context, path string, body any, opts ...RequestOption) (map[string]any, *Response, error) {
	req := NewRequest(http.MethodPost, path, body, opts...)
	if req.Login == nil {
		req.Login = AuthClientToken
	}
	return j.Call(ctx, req)
}
