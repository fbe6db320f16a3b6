// Package errors defines the error taxonomy shared by every vaultkit package.
//
// Two families exist. A *VaultError describes anything that is not an HTTP
// status failure: transport and TLS problems, timeouts, unparseable bodies,
// exhausted redirects, invalid parameters and unexpected internal failures.
// An *HTTPError describes a non-2xx response from Vault and carries the status
// code, the reason phrase and the server-reported error strings.
//
// *VaultError is the single root: errors.As(err, &ve) with ve *VaultError
// succeeds for every error that crosses the vaultkit boundary, including
// *HTTPError values.
//
// # Usage
//
//	resp, err := adapter.Get(ctx, "/v1/auth/token/lookup-accessor/"+accessor)
//	switch {
//	case errors.IsAbsent(err):
//	    // revoked or unknown accessor
//	case err != nil:
//	    return err
//	}
//
// Callers that need the exact code use StatusCode or errors.Is with one of
// the sentinels (ErrInvalidPath, ErrForbidden, ...).
package errors
