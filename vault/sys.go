package vault

import (
	"context"
	"net/http"

	"github.com/kbukum/vaultkit/httpclient"
	"github.com/kbukum/vaultkit/validation"
)

// DefaultWrapTTL is used by Sys.Wrap when no TTL is given.
const DefaultWrapTTL = "5m"

// Sys is the system backend.
type Sys struct{ category }

// Wrap wraps data in a single-use token valid for ttl.
func (s *Sys) Wrap(ctx context.Context, data map[string]any, ttl string) (*httpclient.Response, error) {
	if ttl == "" {
		ttl = DefaultWrapTTL
	}
	if err := validation.New().Duration("ttl", ttl).Validate(); err != nil {
		return nil, err
	}
	if data == nil {
		data = map[string]any{}
	}
	return s.do(ctx, http.MethodPost, apiPath("sys/wrapping/wrap"), data,
		[]httpclient.RequestOption{httpclient.WithWrapTTL(ttl)})
}

// Unwrap returns the response stored under a wrapping token. With an empty
// token the adapter's own token is presented as the wrapping token.
func (s *Sys) Unwrap(ctx context.Context, token string) (*httpclient.Response, error) {
	var body map[string]any
	if token != "" {
		body = map[string]any{"token": token}
	}
	return s.do(ctx, http.MethodPost, apiPath("sys/wrapping/unwrap"), body, nil)
}

// LookupWrapping returns the creation metadata of a wrapping token.
func (s *Sys) LookupWrapping(ctx context.Context, token string) (*httpclient.Response, error) {
	if err := validation.Required("token", token); err != nil {
		return nil, err
	}
	return s.do(ctx, http.MethodPost, apiPath("sys/wrapping/lookup"), map[string]any{"token": token}, nil)
}

// Rewrap moves wrapped data to a new wrapping token and invalidates the old one.
func (s *Sys) Rewrap(ctx context.Context, token string) (*httpclient.Response, error) {
	if err := validation.Required("token", token); err != nil {
		return nil, err
	}
	return s.do(ctx, http.MethodPost, apiPath("sys/wrapping/rewrap"), map[string]any{"token": token}, nil)
}

// Health reads sys/health. Standby (429), DR secondary (472), performance
// standby (473), uninitialized (501) and sealed (503) come back as
// responses, not errors.
func (s *Sys) Health(ctx context.Context, opts ...CallOption) (*httpclient.Response, error) {
	o := newCallOptions("", opts)
	return s.do(ctx, http.MethodGet, apiPath("sys/health"), nil,
		o.request(httpclient.WithRaiseException(false), httpclient.WithoutAuth()))
}

// ListMounts lists the mounted secrets engines.
func (s *Sys) ListMounts(ctx context.Context) (*httpclient.Response, error) {
	return s.do(ctx, http.MethodGet, apiPath("sys/mounts"), nil, nil)
}

// MountConfig are the parameters of a secrets engine mount.
type MountConfig struct {
	Description string            `json:"description,omitempty"`
	Options     map[string]string `json:"options,omitempty"`
	Config      map[string]any    `json:"config,omitempty"`
}

// EnableSecretsEngine mounts an engine of engineType at path. An empty path
// mounts it at its type name.
func (s *Sys) EnableSecretsEngine(ctx context.Context, engineType, path string, cfg MountConfig) (*httpclient.Response, error) {
	if err := validation.Required("type", engineType); err != nil {
		return nil, err
	}
	if path == "" {
		path = engineType
	}
	body := map[string]any{"type": engineType}
	if cfg.Description != "" {
		body["description"] = cfg.Description
	}
	if len(cfg.Options) > 0 {
		body["options"] = cfg.Options
	}
	if len(cfg.Config) > 0 {
		body["config"] = cfg.Config
	}
	return s.do(ctx, http.MethodPost, apiPath("sys/mounts", path), body, nil)
}

// DisableSecretsEngine unmounts the engine at path.
func (s *Sys) DisableSecretsEngine(ctx context.Context, path string) (*httpclient.Response, error) {
	if err := validation.Required("path", path); err != nil {
		return nil, err
	}
	return s.do(ctx, http.MethodDelete, apiPath("sys/mounts", path), nil, nil)
}
