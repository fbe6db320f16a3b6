package vault

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/kbukum/vaultkit/errors"
	"github.com/kbukum/vaultkit/httpclient"
	"github.com/kbukum/vaultkit/validation"
)

// Token is the token auth method.
type Token struct{ category }

// TokenCreateRequest are the parameters of a token creation.
type TokenCreateRequest struct {
	Policies    []string          `json:"policies,omitempty"`
	TTL         string            `json:"ttl,omitempty" validate:"omitempty,ttl"`
	ExplicitMax string            `json:"explicit_max_ttl,omitempty" validate:"omitempty,ttl"`
	DisplayName string            `json:"display_name,omitempty"`
	Meta        map[string]string `json:"meta,omitempty"`
	NumUses     int               `json:"num_uses,omitempty" validate:"gte=0"`
	NoParent    bool              `json:"no_parent,omitempty"`
	Renewable   *bool             `json:"renewable,omitempty"`
	Period      string            `json:"period,omitempty" validate:"omitempty,ttl"`
	// Orphan creates the token through create-orphan.
	Orphan bool `json:"-"`
}

// Create issues a child token of the current one. The new token is not
// stored on the adapter.
func (t *Token) Create(ctx context.Context, req TokenCreateRequest, opts ...CallOption) (*httpclient.Response, error) {
	if err := validation.Validate(req); err != nil {
		return nil, err
	}
	o := newCallOptions("token", opts)
	endpoint := "create"
	if req.Orphan {
		endpoint = "create-orphan"
	}
	return t.do(ctx, http.MethodPost, apiPath("auth", o.mount, endpoint), req, o.request())
}

// LookupSelf returns the properties of the current token.
func (t *Token) LookupSelf(ctx context.Context, opts ...CallOption) (*httpclient.Response, error) {
	o := newCallOptions("token", opts)
	return t.do(ctx, http.MethodGet, apiPath("auth", o.mount, "lookup-self"), nil, o.request())
}

// Lookup returns the properties of token.
func (t *Token) Lookup(ctx context.Context, token string, opts ...CallOption) (*httpclient.Response, error) {
	if err := validation.Required("token", token); err != nil {
		return nil, err
	}
	o := newCallOptions("token", opts)
	return t.do(ctx, http.MethodPost, apiPath("auth", o.mount, "lookup"), map[string]any{"token": token}, o.request())
}

// LookupAccessor returns the properties of the token behind accessor.
func (t *Token) LookupAccessor(ctx context.Context, accessor string, opts ...CallOption) (*httpclient.Response, error) {
	if err := validation.Required("accessor", accessor); err != nil {
		return nil, err
	}
	o := newCallOptions("token", opts)
	return t.do(ctx, http.MethodPost, apiPath("auth", o.mount, "lookup-accessor"), map[string]any{"accessor": accessor}, o.request())
}

// RevokeAccessor revokes the token behind accessor.
func (t *Token) RevokeAccessor(ctx context.Context, accessor string, opts ...CallOption) (*httpclient.Response, error) {
	if err := validation.Required("accessor", accessor); err != nil {
		return nil, err
	}
	o := newCallOptions("token", opts)
	return t.do(ctx, http.MethodPost, apiPath("auth", o.mount, "revoke-accessor"), map[string]any{"accessor": accessor}, o.request())
}

// RenewSelf renews the current token. An empty increment keeps the
// token's configured TTL.
func (t *Token) RenewSelf(ctx context.Context, increment string, opts ...CallOption) (*httpclient.Response, error) {
	var body map[string]any
	if increment != "" {
		if err := validation.New().Duration("increment", increment).Validate(); err != nil {
			return nil, err
		}
		body = map[string]any{"increment": increment}
	}
	o := newCallOptions("token", opts)
	return t.do(ctx, http.MethodPost, apiPath("auth", o.mount, "renew-self"), body, o.request())
}

// RevokeSelf revokes the current token.
func (t *Token) RevokeSelf(ctx context.Context, opts ...CallOption) (*httpclient.Response, error) {
	o := newCallOptions("token", opts)
	return t.do(ctx, http.MethodPost, apiPath("auth", o.mount, "revoke-self"), nil, o.request())
}

// jsonString encodes v for parameters Vault takes as a JSON string.
func jsonString(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", errors.Wrap(errors.KindInternal, err, "encoding parameter")
	}
	return string(raw), nil
}
