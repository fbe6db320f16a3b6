// Package testutil runs rewindable components inside tests.
//
// A TestComponent is a regular component.Component with Reset, Snapshot
// and Restore on top. The vaulttest subpackage provides the one vaultkit
// tests use: an in-memory Vault server.
//
//	func TestLogin(t *testing.T) {
//	    srv := vaulttest.New(t)
//	    testutil.T(t).Setup(srv)
//
//	    t.Run("approle", func(t *testing.T) {
//	        testutil.T(t).Isolate(srv)
//	        ...
//	    })
//	}
package testutil
