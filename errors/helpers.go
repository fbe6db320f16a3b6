package errors

import (
	stderrors "errors"
	"net/http"
)

// AsVaultError returns the root VaultError in err's chain.
func AsVaultError(err error) (*VaultError, bool) {
	var ve *VaultError
	if stderrors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// AsHTTPError returns the HTTPError in err's chain.
func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	if stderrors.As(err, &he) {
		return he, true
	}
	return nil, false
}

// KindOf returns the Kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	if ve, ok := AsVaultError(err); ok {
		return ve.Kind
	}
	return KindInternal
}

// StatusCode returns the HTTP status carried by err.
func StatusCode(err error) (int, bool) {
	if he, ok := AsHTTPError(err); ok {
		return he.StatusCode, true
	}
	return 0, false
}

// HasStatus reports whether err is an HTTPError with one of the given codes.
func HasStatus(err error, codes ...int) bool {
	status, ok := StatusCode(err)
	if !ok {
		return false
	}
	for _, c := range codes {
		if c == status {
			return true
		}
	}
	return false
}

// IsAbsent reports whether err is a 400, 403 or 404 response. Vault answers
// lookups of revoked or unknown tokens and accessors with one of these,
// depending on version.
func IsAbsent(err error) bool {
	return HasStatus(err, http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound)
}

// IsBadRequest checks if an error is a 400 response.
func IsBadRequest(err error) bool {
	he, ok := AsHTTPError(err)
	return ok && he.Class == ClassBadRequest
}

// IsPermissionDenied checks if an error is a 403 response.
func IsPermissionDenied(err error) bool {
	he, ok := AsHTTPError(err)
	return ok && he.Class == ClassPermission
}

// IsNotFound checks if an error is a 404 response.
func IsNotFound(err error) bool {
	he, ok := AsHTTPError(err)
	return ok && he.Class == ClassNotFound
}

// IsServerError checks if an error is a 5xx response.
func IsServerError(err error) bool {
	he, ok := AsHTTPError(err)
	return ok && he.Class == ClassServer
}

// IsHTTP checks if an error is any HTTP status failure.
func IsHTTP(err error) bool {
	_, ok := AsHTTPError(err)
	return ok
}

// IsTransport checks if an error is a network-level failure, timeouts included.
func IsTransport(err error) bool {
	k := KindOf(err)
	return k == KindTransport || k == KindTimeout
}

// IsTimeout checks if an error is a timeout.
func IsTimeout(err error) bool {
	return KindOf(err) == KindTimeout
}

// IsParse checks if an error is a body decoding failure.
func IsParse(err error) bool {
	ve, ok := AsVaultError(err)
	return ok && ve.Kind == KindParse
}

// IsValidation checks if an error is a rejected parameter.
func IsValidation(err error) bool {
	ve, ok := AsVaultError(err)
	return ok && ve.Kind == KindValidation
}

// IsRetryable checks if repeating the request may succeed.
func IsRetryable(err error) bool {
	if he, ok := AsHTTPError(err); ok {
		return he.Retryable
	}
	return IsTransport(err)
}
