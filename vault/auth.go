package vault

import (
	"context"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kbukum/vaultkit/errors"
	"github.com/kbukum/vaultkit/httpclient"
	"github.com/kbukum/vaultkit/validation"
)

// Auth groups the auth method categories.
type Auth struct {
	AppRole  *AppRole
	Userpass *Userpass
	JWT      *JWT
	Token    *Token
}

func newAuth(ref *AdapterRef) *Auth {
	base := category{ref}
	return &Auth{
		AppRole:  &AppRole{base},
		Userpass: &Userpass{base},
		JWT:      &JWT{base, time.Now},
		Token:    &Token{base},
	}
}

// AppRole is the approle auth method, mounted at "approle" by default.
type AppRole struct{ category }

// Login exchanges a role ID and secret ID for a token. The secret ID may
// be empty for roles that do not bind one.
func (a *AppRole) Login(ctx context.Context, roleID, secretID string, opts ...CallOption) (*httpclient.Response, error) {
	if err := validation.Required("role_id", roleID); err != nil {
		return nil, err
	}
	o := newCallOptions("approle", opts)
	body := map[string]any{"role_id": roleID}
	if secretID != "" {
		body["secret_id"] = secretID
	}
	return a.do(ctx, http.MethodPost, apiPath("auth", o.mount, "login"), body, o.login(httpclient.AuthClientToken))
}

// ReadRoleID reads the role ID of role.
func (a *AppRole) ReadRoleID(ctx context.Context, role string, opts ...CallOption) (*httpclient.Response, error) {
	if err := validation.Required("role_name", role); err != nil {
		return nil, err
	}
	o := newCallOptions("approle", opts)
	return a.do(ctx, http.MethodGet, apiPath("auth", o.mount, "role", role, "role-id"), nil, o.request())
}

// GenerateSecretID issues a new secret ID for role. Use WithWrapTTL to
// receive it response-wrapped.
func (a *AppRole) GenerateSecretID(ctx context.Context, role string, metadata map[string]string, opts ...CallOption) (*httpclient.Response, error) {
	if err := validation.Required("role_name", role); err != nil {
		return nil, err
	}
	o := newCallOptions("approle", opts)
	var body map[string]any
	if len(metadata) > 0 {
		encoded, err := jsonString(metadata)
		if err != nil {
			return nil, err
		}
		body = map[string]any{"metadata": encoded}
	}
	return a.do(ctx, http.MethodPost, apiPath("auth", o.mount, "role", role, "secret-id"), body, o.request())
}

// Userpass is the userpass auth method, mounted at "userpass" by default.
type Userpass struct{ category }

// Login exchanges a username and password for a token.
func (u *Userpass) Login(ctx context.Context, username, password string, opts ...CallOption) (*httpclient.Response, error) {
	err := validation.New().
		Required("username", username).
		Required("password", password).
		Validate()
	if err != nil {
		return nil, err
	}
	o := newCallOptions("userpass", opts)
	body := map[string]any{"password": password}
	return u.do(ctx, http.MethodPost, apiPath("auth", o.mount, "login", username), body, o.login(httpclient.AuthClientToken))
}

// JWT is the jwt auth method, mounted at "jwt" by default.
type JWT struct {
	category
	now func() time.Time
}

// Login exchanges a signed JWT for a token. The JWT must parse and be
// unexpired; its signature is left to Vault.
func (j *JWT) Login(ctx context.Context, role, token string, opts ...CallOption) (*httpclient.Response, error) {
	err := validation.New().
		Required("role", role).
		Required("jwt", token).
		Validate()
	if err != nil {
		return nil, err
	}
	if err := j.checkToken(token); err != nil {
		return nil, err
	}
	o := newCallOptions("jwt", opts)
	body := map[string]any{"role": role, "jwt": token}
	return j.do(ctx, http.MethodPost, apiPath("auth", o.mount, "login"), body, o.login(httpclient.AuthClientToken))
}

func (j *JWT) checkToken(token string) error {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return errors.Wrap(errors.KindValidation, err, "jwt: malformed token").
			WithDetail("field", "jwt")
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return errors.Wrap(errors.KindValidation, err, "jwt: invalid exp claim").
			WithDetail("field", "jwt")
	}
	if exp != nil && !exp.After(j.now()) {
		return errors.Newf(errors.KindValidation, "jwt: token expired at %s", exp.UTC().Format(time.RFC3339)).
			WithDetail("field", "jwt")
	}
	return nil
}
