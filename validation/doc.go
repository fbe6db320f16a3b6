// Package validation checks caller input before it reaches Vault.
//
// Struct tag validation runs go-playground/validator with a "ttl" tag for
// Vault duration strings; the fluent Validator collects field errors for
// facade parameters. Both report *errors.VaultError with KindValidation and
// the offending fields under Details["fields"].
//
// # Struct Tag Validation
//
//	type roleOptions struct {
//	    Role    string `json:"role" validate:"required"`
//	    WrapTTL string `json:"wrap_ttl" validate:"omitempty,ttl"`
//	}
//	err := validation.Validate(opts)
//
// # Programmatic Validation
//
//	err := validation.New().
//	    Required("role_id", roleID).
//	    Duration("wrap_ttl", ttl).
//	    Validate()
package validation
