// Package version reports the vaultkit version sent in the User-Agent header.
//
// Release builds set Version via -ldflags:
//
//	go build -ldflags "-X github.com/kbukum/vaultkit/version.Version=v0.4.0"
//
// When vaultkit is consumed as a library the version recorded in the
// importing binary's build info is used instead.
package version
