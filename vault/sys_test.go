package vault_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/kbukum/vaultkit/errors"
	"github.com/kbukum/vaultkit/vault"
)

func TestSys_WrapUnwrap(t *testing.T) {
	srv, client := newClient(t, nil)
	ctx := context.Background()

	resp, err := client.Sys.Wrap(ctx, map[string]any{"api_key": "abc"}, "10s")
	if err != nil {
		t.Fatalf("wrap: %v", err)
	}
	info := resp.WrapInfo()
	if info == nil || info.TTL != 10 {
		t.Fatalf("wrap info = %+v", info)
	}

	lookup, err := client.Sys.LookupWrapping(ctx, info.Token)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if lookup.Data()["creation_path"] != "sys/wrapping/wrap" {
		t.Errorf("creation_path = %v", lookup.Data()["creation_path"])
	}

	rewrapped, err := client.Sys.Rewrap(ctx, info.Token)
	if err != nil {
		t.Fatalf("rewrap: %v", err)
	}
	next := rewrapped.WrapInfo()
	if next == nil || next.Token == info.Token {
		t.Fatalf("rewrap info = %+v", next)
	}

	unwrapped, err := client.Sys.Unwrap(ctx, next.Token)
	if err != nil {
		t.Fatalf("unwrap: %v", err)
	}
	if unwrapped.Data()["api_key"] != "abc" {
		t.Errorf("data = %v", unwrapped.Data())
	}
	if h := srv.LastRequest().Header.Get("X-Vault-Token"); h != srv.RootToken() {
		t.Errorf("unwrap with a body token should authenticate with the client token, got %q", h)
	}
}

func TestSys_UnwrapWithAdapterToken(t *testing.T) {
	_, client := newClient(t, nil)
	ctx := context.Background()

	resp, err := client.Sys.Wrap(ctx, map[string]any{"k": "v"}, "")
	if err != nil {
		t.Fatalf("wrap: %v", err)
	}
	if resp.WrapInfo().TTL != 300 {
		t.Errorf("default ttl = %d", resp.WrapInfo().TTL)
	}

	client.SetToken(resp.WrapInfo().Token)
	unwrapped, err := client.Sys.Unwrap(ctx, "")
	if err != nil {
		t.Fatalf("unwrap: %v", err)
	}
	if unwrapped.Data()["k"] != "v" {
		t.Errorf("data = %v", unwrapped.Data())
	}
}

func TestSys_WrapRejectsBadTTL(t *testing.T) {
	_, client := newClient(t, nil)
	if _, err := client.Sys.Wrap(context.Background(), nil, "-5s"); !errors.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestSys_Health(t *testing.T) {
	srv, client := newClient(t, nil)
	ctx := context.Background()

	srv.SetSealed(true)
	resp, err := client.Sys.Health(ctx)
	if err != nil {
		t.Fatalf("health while sealed must not raise: %v", err)
	}
	if resp.StatusCode != http.StatusServiceUnavailable || resp.Get("sealed") != true {
		t.Errorf("health = %d %s", resp.StatusCode, resp.Text())
	}
	if h := srv.LastRequest().Header.Get("X-Vault-Token"); h != "" {
		t.Errorf("health sent a token: %q", h)
	}
}

func TestSys_Mounts(t *testing.T) {
	_, client := newClient(t, nil)
	ctx := context.Background()

	if _, err := client.Sys.EnableSecretsEngine(ctx, "kv", "apps", vault.MountConfig{
		Description: "application secrets",
		Options:     map[string]string{"version": "2"},
	}); err != nil {
		t.Fatalf("enable: %v", err)
	}
	mounts, err := client.Sys.ListMounts(ctx)
	if err != nil {
		t.Fatalf("list mounts: %v", err)
	}
	apps, ok := mounts.Data()["apps/"].(map[string]any)
	if !ok || apps["type"] != "kv" {
		t.Fatalf("apps mount = %v", mounts.Data()["apps/"])
	}

	if _, err := client.Secrets.KV.Write(ctx, "svc", map[string]any{"a": 1}, vault.WithMountPoint("apps")); err != nil {
		t.Fatalf("write to new mount: %v", err)
	}

	_, err = client.Sys.EnableSecretsEngine(ctx, "kv", "apps", vault.MountConfig{})
	if !errors.IsBadRequest(err) {
		t.Errorf("duplicate mount should be 400, got %v", err)
	}

	if _, err := client.Sys.DisableSecretsEngine(ctx, "apps"); err != nil {
		t.Fatalf("disable: %v", err)
	}
	_, err = client.Secrets.KV.Read(ctx, "svc", vault.WithMountPoint("apps"))
	if !errors.IsNotFound(err) {
		t.Errorf("read from removed mount = %v", err)
	}
}

func TestPKI_ReadsPEM(t *testing.T) {
	srv, client := newClient(t, nil)
	ctx := context.Background()

	ca, err := client.PKI.ReadCACertificate(ctx)
	if err != nil {
		t.Fatalf("ca: %v", err)
	}
	if ca != srv.CAPEM() {
		t.Errorf("ca = %q", ca)
	}

	chain, err := client.PKI.ReadCAChain(ctx)
	if err != nil || !strings.HasPrefix(chain, "-----BEGIN CERTIFICATE-----") {
		t.Errorf("chain = %q, %v", chain, err)
	}

	crl, err := client.PKI.ReadCRL(ctx)
	if err != nil || !strings.HasPrefix(crl, "-----BEGIN X509 CRL-----") {
		t.Errorf("crl = %q, %v", crl, err)
	}

	if _, err := client.PKI.ReadCACertificate(ctx, vault.WithMountPoint("pki-int")); !errors.IsNotFound(err) {
		t.Errorf("unknown mount should be 404, got %v", err)
	}
}
