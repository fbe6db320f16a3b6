package vault_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kbukum/vaultkit/errors"
	"github.com/kbukum/vaultkit/vault"
)

func TestAppRole_LoginStoresToken(t *testing.T) {
	srv, client := newClient(t, nil)
	roleID, secretID := srv.AddAppRole("web", "web-read")
	client.SetToken("")

	resp, err := client.Auth.AppRole.Login(context.Background(), roleID, secretID)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	t1 := resp.Auth().ClientToken
	if t1 == "" || client.Token() != t1 {
		t.Fatalf("adapter token = %q, login token = %q", client.Token(), t1)
	}
	if !srv.HasToken(t1) {
		t.Error("server does not know the issued token")
	}
	if h := srv.LastRequest().Header.Get("X-Vault-Token"); h != "" {
		t.Errorf("login sent a token header: %q", h)
	}

	if ok, err := client.IsAuthenticated(context.Background()); !ok || err != nil {
		t.Errorf("IsAuthenticated = %v, %v", ok, err)
	}
}

func TestAppRole_LoginWithoutUseToken(t *testing.T) {
	srv, client := newClient(t, nil)
	roleID, secretID := srv.AddAppRole("web")

	resp, err := client.Auth.AppRole.Login(context.Background(), roleID, secretID, vault.WithUseToken(false))
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.Auth() == nil || client.Token() != srv.RootToken() {
		t.Error("WithUseToken(false) must leave the adapter token alone")
	}
}

func TestAppRole_BadSecret(t *testing.T) {
	srv, client := newClient(t, nil)
	roleID, _ := srv.AddAppRole("web")

	_, err := client.Auth.AppRole.Login(context.Background(), roleID, "wrong")
	if !errors.IsBadRequest(err) {
		t.Fatalf("expected 400, got %v", err)
	}
	if client.Token() != srv.RootToken() {
		t.Error("failed login must not replace the token")
	}
}

func TestAppRole_WrappedLoginThenUnwrap(t *testing.T) {
	srv, client := newClient(t, nil)
	roleID, secretID := srv.AddAppRole("web")
	ctx := context.Background()

	resp, err := client.Auth.AppRole.Login(ctx, roleID, secretID, vault.WithWrapTTL("10s"))
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !resp.IsWrapped() || resp.Auth() != nil {
		t.Fatalf("expected a wrapped response without auth: %s", resp.Text())
	}
	info := resp.WrapInfo()
	if info.TTL != 10 || info.CreationPath != "auth/approle/login" {
		t.Errorf("wrap info = %+v", info)
	}
	if srv.LastRequest().Header.Get("X-Vault-Wrap-TTL") != "10s" {
		t.Error("wrap TTL header not sent")
	}
	if client.Token() != srv.RootToken() {
		t.Error("wrapped login must not replace the token")
	}

	unwrapped, err := client.Sys.Unwrap(ctx, info.Token)
	if err != nil {
		t.Fatalf("unwrap: %v", err)
	}
	if a := unwrapped.Auth(); a == nil || !srv.HasToken(a.ClientToken) {
		t.Errorf("unwrapped auth = %+v", a)
	}
	if _, err := client.Sys.Unwrap(ctx, info.Token); !errors.IsBadRequest(err) {
		t.Errorf("wrapping tokens are single use, got %v", err)
	}
}

func TestAppRole_RoleAndSecretID(t *testing.T) {
	srv, client := newClient(t, nil)
	roleID, _ := srv.AddAppRole("batch")
	ctx := context.Background()

	resp, err := client.Auth.AppRole.ReadRoleID(ctx, "batch")
	if err != nil {
		t.Fatalf("read role id: %v", err)
	}
	if resp.Data()["role_id"] != roleID {
		t.Errorf("role_id = %v", resp.Data()["role_id"])
	}

	resp, err = client.Auth.AppRole.GenerateSecretID(ctx, "batch", map[string]string{"host": "a"})
	if err != nil {
		t.Fatalf("generate secret id: %v", err)
	}
	secretID, _ := resp.Data()["secret_id"].(string)
	if secretID == "" {
		t.Fatalf("no secret_id in %s", resp.Text())
	}
	if _, err := client.Auth.AppRole.Login(ctx, roleID, secretID); err != nil {
		t.Errorf("login with generated secret id: %v", err)
	}

	if _, err := client.Auth.AppRole.ReadRoleID(ctx, ""); !errors.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestUserpass_Login(t *testing.T) {
	srv, client := newClient(t, nil)
	srv.AddUser("alice", "pw", "dev")
	ctx := context.Background()

	resp, err := client.Auth.Userpass.Login(ctx, "alice", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if client.Token() != resp.Auth().ClientToken {
		t.Error("userpass login should store the token")
	}
	if p := srv.LastRequest().Path; p != "/v1/auth/userpass/login/alice" {
		t.Errorf("path = %s", p)
	}
	if _, err := client.Auth.Userpass.Login(ctx, "alice", "nope"); !errors.IsBadRequest(err) {
		t.Errorf("expected 400, got %v", err)
	}
	if _, err := client.Auth.Userpass.Login(ctx, "", ""); !errors.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestJWT_Login(t *testing.T) {
	srv, client := newClient(t, nil)
	srv.AddJWTRole("ci", "deploy")
	ctx := context.Background()

	valid := srv.SignJWT(jwt.MapClaims{"sub": "pipeline", "exp": time.Now().Add(time.Hour).Unix()})
	resp, err := client.Auth.JWT.Login(ctx, "ci", valid)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if client.Token() != resp.Auth().ClientToken {
		t.Error("jwt login should store the token")
	}

	tests := []struct {
		name  string
		token string
	}{
		{"expired", srv.SignJWT(jwt.MapClaims{"sub": "pipeline", "exp": time.Now().Add(-time.Minute).Unix()})},
		{"malformed", "not.a.jwt"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(srv.Requests())
			_, err := client.Auth.JWT.Login(ctx, "ci", tt.token)
			if !errors.IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if len(srv.Requests()) != before {
				t.Error("rejected jwt was sent to the server")
			}
		})
	}
}

func TestToken_CreateLookupRevoke(t *testing.T) {
	srv, client := newClient(t, nil)
	ctx := context.Background()
	tok := client.Auth.Token

	resp, err := tok.Create(ctx, vault.TokenCreateRequest{Policies: []string{"ops"}, TTL: "1h", DisplayName: "ci"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	auth := resp.Auth()
	if auth == nil || auth.LeaseDuration != 3600 {
		t.Fatalf("auth = %+v", auth)
	}
	if client.Token() != srv.RootToken() {
		t.Error("Create must not replace the adapter token")
	}

	looked, err := tok.LookupAccessor(ctx, auth.Accessor)
	if err != nil {
		t.Fatalf("lookup accessor: %v", err)
	}
	if looked.Data()["display_name"] != "token-ci" {
		t.Errorf("display_name = %v", looked.Data()["display_name"])
	}
	if _, err := tok.Lookup(ctx, auth.ClientToken); err != nil {
		t.Errorf("lookup: %v", err)
	}

	if _, err := tok.RevokeAccessor(ctx, auth.Accessor); err != nil {
		t.Fatalf("revoke accessor: %v", err)
	}
	if srv.HasToken(auth.ClientToken) {
		t.Error("token survived revocation")
	}
	_, err = tok.LookupAccessor(ctx, auth.Accessor)
	if !errors.IsAbsent(err) {
		t.Errorf("revoked accessor lookup = %v", err)
	}
	_, err = tok.Lookup(ctx, auth.ClientToken)
	if !errors.IsAbsent(err) {
		t.Errorf("revoked token lookup = %v", err)
	}

	if _, err := tok.Create(ctx, vault.TokenCreateRequest{TTL: "soon"}); !errors.IsValidation(err) {
		t.Errorf("bad ttl should fail validation, got %v", err)
	}
}

func TestToken_RenewAndRevokeSelf(t *testing.T) {
	srv, client := newClient(t, nil)
	ctx := context.Background()

	resp, err := client.Auth.Token.Create(ctx, vault.TokenCreateRequest{TTL: "10m"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	client.SetToken(resp.Auth().ClientToken)

	renewed, err := client.Auth.Token.RenewSelf(ctx, "2h")
	if err != nil {
		t.Fatalf("renew: %v", err)
	}
	if renewed.Auth().LeaseDuration != 7200 {
		t.Errorf("lease = %d", renewed.Auth().LeaseDuration)
	}
	if _, err := client.Auth.Token.RenewSelf(ctx, "later"); !errors.IsValidation(err) {
		t.Errorf("bad increment should fail validation, got %v", err)
	}

	self, err := client.Auth.Token.LookupSelf(ctx)
	if err != nil {
		t.Fatalf("lookup self: %v", err)
	}
	if self.Data()["id"] != client.Token() {
		t.Errorf("id = %v", self.Data()["id"])
	}

	if _, err := client.Auth.Token.RevokeSelf(ctx); err != nil {
		t.Fatalf("revoke self: %v", err)
	}
	if srv.LastRequest().Method != http.MethodPost {
		t.Errorf("revoke-self method = %s", srv.LastRequest().Method)
	}
	if ok, err := client.IsAuthenticated(ctx); ok || err != nil {
		t.Errorf("IsAuthenticated after revoke = %v, %v", ok, err)
	}
}
