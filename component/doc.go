// Package component defines the lifecycle contract vaultkit parts share.
//
// The adapter, the facade client and the fake Vault server used in tests
// all implement Component. A Registry starts them in registration order and
// stops them in reverse, so a client registered after the server it talks
// to is closed first.
package component
