// Package security holds the TLS material vaultkit presents to Vault.
//
// It mirrors the Vault CLI inputs: a CA bundle file (VAULT_CACERT), a
// directory of CA certificates (VAULT_CAPATH), a client certificate and key
// for the cert auth method (VAULT_CLIENT_CERT, VAULT_CLIENT_KEY) and the
// skip-verify switch (VAULT_SKIP_VERIFY).
//
// # TLS Configuration
//
//	cfg := security.TLSConfig{
//	    CAFile:   "/etc/vault/ca.pem",
//	    CertFile: "/etc/vault/client.pem",
//	    KeyFile:  "/etc/vault/client-key.pem",
//	}
//
//	tlsConfig, err := cfg.Build()
package security
