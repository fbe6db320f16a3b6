// Package config loads vaultkit configuration from files and the environment.
//
// LoadConfig is the general loader: it resolves a config.yml and a .env file,
// binds environment variables onto nested keys and unmarshals into any struct
// with Viper. LoadVault builds a VaultConfig with the same precedence the
// Vault CLI uses:
//
//  1. VAULT_* environment variables (VAULT_ADDR, VAULT_TOKEN, VAULT_NAMESPACE,
//     VAULT_CACERT, VAULT_CAPATH, VAULT_CLIENT_CERT, VAULT_CLIENT_KEY,
//     VAULT_TLS_SERVER_NAME, VAULT_SKIP_VERIFY, VAULT_CLIENT_TIMEOUT,
//     VAULT_HTTP_PROXY, VAULT_STRICT_HTTP, VAULT_MAX_REDIRECTS)
//  2. the "vault" section of the config file
//  3. built-in defaults
//
// When no token is configured the token helper file ~/.vault-token is read.
//
// # Usage
//
//	cfg, err := config.LoadVault(config.WithEnvFile(".env"))
//	if err != nil {
//	    return err
//	}
package config
