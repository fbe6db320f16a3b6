// Package vault is the facade over the transport in httpclient. A Client
// groups Vault's endpoints into categories (Auth, Secrets, Sys, PKI) that
// all read their Requester from one shared AdapterRef, so swapping the
// adapter with SetAdapter takes effect for every category at once.
//
//	client, err := vault.NewFromEnv()
//	if err != nil {
//	    return err
//	}
//	if _, err := client.Auth.AppRole.Login(ctx, roleID, secretID); err != nil {
//	    return err
//	}
//	resp, err := client.Secrets.KV.Read(ctx, "app/config")
//
// Every method validates its required parameters and returns library
// errors only: foreign errors and panics are normalized by errors.Guard.
package vault
