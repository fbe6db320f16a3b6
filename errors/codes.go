package errors

import "net/http"

// ErrorCode is a machine-readable code derived from a Vault HTTP status.
type ErrorCode string

// Client errors
const (
	// ErrCodeInvalidRequest indicates a malformed or rejected request (400).
	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
	// ErrCodeUnauthorized indicates missing client authentication (401).
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrCodeForbidden indicates a permission denied response (403).
	ErrCodeForbidden ErrorCode = "FORBIDDEN"
	// ErrCodeInvalidPath indicates an unknown path or missing secret (404).
	ErrCodeInvalidPath ErrorCode = "INVALID_PATH"
	// ErrCodeUnsupportedOperation indicates an unsupported verb on a path (405).
	ErrCodeUnsupportedOperation ErrorCode = "UNSUPPORTED_OPERATION"
	// ErrCodePreconditionFailed indicates a consistency precondition failed (412).
	ErrCodePreconditionFailed ErrorCode = "PRECONDITION_FAILED"
	// ErrCodeRateLimitExceeded indicates a quota was hit (429).
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
)

// Server errors
const (
	// ErrCodeInternalServer indicates an internal Vault failure (500).
	ErrCodeInternalServer ErrorCode = "INTERNAL_SERVER_ERROR"
	// ErrCodeNotInitialized indicates an uninitialized Vault (501).
	ErrCodeNotInitialized ErrorCode = "VAULT_NOT_INITIALIZED"
	// ErrCodeBadGateway indicates an upstream failure (502).
	ErrCodeBadGateway ErrorCode = "BAD_GATEWAY"
	// ErrCodeVaultDown indicates a sealed or unavailable Vault (503).
	ErrCodeVaultDown ErrorCode = "VAULT_DOWN"
)

// ErrCodeUnexpected covers every status without a dedicated code.
const ErrCodeUnexpected ErrorCode = "UNEXPECTED_ERROR"

var statusCodes = map[int]ErrorCode{
	http.StatusBadRequest:          ErrCodeInvalidRequest,
	http.StatusUnauthorized:        ErrCodeUnauthorized,
	http.StatusForbidden:           ErrCodeForbidden,
	http.StatusNotFound:            ErrCodeInvalidPath,
	http.StatusMethodNotAllowed:    ErrCodeUnsupportedOperation,
	http.StatusPreconditionFailed:  ErrCodePreconditionFailed,
	http.StatusTooManyRequests:     ErrCodeRateLimitExceeded,
	http.StatusInternalServerError: ErrCodeInternalServer,
	http.StatusNotImplemented:      ErrCodeNotInitialized,
	http.StatusBadGateway:          ErrCodeBadGateway,
	http.StatusServiceUnavailable:  ErrCodeVaultDown,
}

var retryableCodes = map[ErrorCode]bool{
	ErrCodePreconditionFailed: true,
	ErrCodeRateLimitExceeded:  true,
	ErrCodeBadGateway:         true,
	ErrCodeVaultDown:          true,
}

// CodeForStatus maps an HTTP status to its ErrorCode.
func CodeForStatus(status int) ErrorCode {
	if code, ok := statusCodes[status]; ok {
		return code
	}
	return ErrCodeUnexpected
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}

// Class is the coarse grouping callers branch on.
type Class int

const (
	// ClassGeneric is any non-2xx status without a dedicated class.
	ClassGeneric Class = iota
	// ClassBadRequest is a 400 response.
	ClassBadRequest
	// ClassPermission is a 403 response.
	ClassPermission
	// ClassNotFound is a 404 response.
	ClassNotFound
	// ClassServer is any 5xx response.
	ClassServer
)

// String returns the class name.
func (c Class) String() string {
	switch c {
	case ClassBadRequest:
		return "bad_request"
	case ClassPermission:
		return "permission"
	case ClassNotFound:
		return "not_found"
	case ClassServer:
		return "server"
	default:
		return "generic"
	}
}

// ClassForStatus maps an HTTP status to its Class.
func ClassForStatus(status int) Class {
	switch {
	case status == http.StatusBadRequest:
		return ClassBadRequest
	case status == http.StatusForbidden:
		return ClassPermission
	case status == http.StatusNotFound:
		return ClassNotFound
	case status >= 500 && status < 600:
		return ClassServer
	default:
		return ClassGeneric
	}
}

// Kind classifies errors that are not tied to a specific status code.
type Kind int

const (
	// KindInternal is an unexpected failure inside the library.
	KindInternal Kind = iota
	// KindTransport is a network-level failure (refused, DNS, TLS).
	KindTransport
	// KindTimeout is a network exchange that ran past its deadline.
	KindTimeout
	// KindParse is a body that could not be decoded as requested.
	KindParse
	// KindRedirect is a redirect chain that could not be followed.
	KindRedirect
	// KindValidation is a rejected caller-supplied parameter.
	KindValidation
	// KindConfig is an invalid adapter or client configuration.
	KindConfig
	// KindClosed is a call on an adapter that has been closed.
	KindClosed
	// KindHTTP is the base of every *HTTPError.
	KindHTTP
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindInternal:
		return "internal"
	case KindTransport:
		return "transport"
	case KindTimeout:
		return "timeout"
	case KindParse:
		return "parse"
	case KindRedirect:
		return "redirect"
	case KindValidation:
		return "validation"
	case KindConfig:
		return "config"
	case KindClosed:
		return "closed"
	case KindHTTP:
		return "http"
	default:
		return "unknown"
	}
}
