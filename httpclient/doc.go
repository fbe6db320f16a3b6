// Package httpclient is the transport layer of vaultkit: it turns "call this
// Vault path with this verb and body" into HTTP exchanges.
//
// The Adapter resolves paths against the configured address, injects the
// User-Agent, X-Vault-Request, namespace and token headers, sends Vault's
// LIST pseudo-verb (or GET with list=true in strict mode), follows redirects
// by re-issuing the original verb, and classifies non-2xx responses into
// *errors.HTTPError values returned next to the Response envelope.
//
// Variants:
//
//   - JSONAdapter decodes 2xx bodies into map[string]any next to the envelope
//   - AsyncAdapter returns a *Call per request; Gather awaits several
//
// # Basic Usage
//
//	a, err := httpclient.New(httpclient.Config{
//	    Address:   "https://127.0.0.1:8200",
//	    Token:     os.Getenv("VAULT_TOKEN"),
//	    Namespace: "team-a",
//	})
//
//	resp, err := a.Get(ctx, "/v1/secret/data/app")
//	data := resp.Data()
//
// # Logging In
//
//	_, err := a.Login(ctx, "/v1/auth/approle/login", map[string]any{
//	    "role_id": roleID, "secret_id": secretID,
//	})
//	// a.Token() now holds auth.client_token
//
// # With Resilience
//
//	a, err := httpclient.New(httpclient.Config{
//	    Address:        "https://vault.internal:8200",
//	    Retry:          httpclient.DefaultRetryConfig(),
//	    CircuitBreaker: httpclient.DefaultCircuitBreakerConfig("vault"),
//	})
package httpclient
