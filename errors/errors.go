package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// VaultError is the root error type for everything vaultkit returns.
type VaultError struct {
	// Kind classifies the failure.
	Kind Kind `json:"kind"`
	// Message is a human-readable description.
	Message string `json:"message,omitempty"`
	// Errors holds the granular error strings reported by Vault.
	Errors []string `json:"errors,omitempty"`
	// Method is the HTTP method of the failing request.
	Method string `json:"method,omitempty"`
	// URL is the request URL of the failing request.
	URL string `json:"url,omitempty"`
	// Text is the raw body of the failing response.
	Text string `json:"-"`
	// JSON is the decoded body of the failing response, when it was JSON.
	JSON any `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// New creates a VaultError of the given kind.
func New(kind Kind, message string) *VaultError {
	return &VaultError{Kind: kind, Message: message}
}

// Newf creates a VaultError with a formatted message.
func Newf(kind Kind, format string, args ...any) *VaultError {
	return &VaultError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a VaultError of the given kind around cause.
func Wrap(kind Kind, cause error, message string) *VaultError {
	return &VaultError{Kind: kind, Message: message, Cause: cause}
}

// Error returns the message, the joined server errors and the request context.
func (e *VaultError) Error() string {
	var b strings.Builder
	b.WriteString("vault: ")
	b.WriteString(e.summary())
	if e.Method != "" || e.URL != "" {
		fmt.Fprintf(&b, ", on %s %s", e.Method, e.URL)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, " (cause: %v)", e.Cause)
	}
	return b.String()
}

func (e *VaultError) summary() string {
	msg := e.Message
	if len(e.Errors) > 0 {
		joined := strings.Join(e.Errors, ", ")
		if msg == "" {
			msg = joined
		} else {
			msg += ": " + joined
		}
	}
	if msg == "" {
		msg = e.Kind.String() + " error"
	}
	return msg
}

// Unwrap returns the underlying cause of the error.
func (e *VaultError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *VaultError) WithCause(cause error) *VaultError {
	e.Cause = cause
	return e
}

// WithRequest records the method and URL of the failing request.
func (e *VaultError) WithRequest(method, url string) *VaultError {
	e.Method = method
	e.URL = url
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *VaultError) WithDetail(key string, value any) *VaultError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *VaultError) WithDetails(details map[string]any) *VaultError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// HTTPError is a non-2xx response from Vault.
//
// The embedded *VaultError has KindHTTP and is returned by Unwrap, so
// errors.As with a *VaultError target matches HTTP failures too.
type HTTPError struct {
	*VaultError
	// StatusCode is the HTTP status code.
	StatusCode int `json:"status_code"`
	// Reason is the status phrase, e.g. "Not Found".
	Reason string `json:"reason"`
	// Code is the fine-grained classification.
	Code ErrorCode `json:"code"`
	// Class is the coarse classification.
	Class Class `json:"class"`
	// Retryable indicates whether the request may succeed if repeated.
	Retryable bool `json:"retryable"`
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "vault: %s (HTTP %d %s)", strings.ToLower(string(e.Code)), e.StatusCode, e.Reason)
	if len(e.VaultError.Errors) > 0 || e.VaultError.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.VaultError.summary())
	}
	if e.VaultError.Method != "" || e.VaultError.URL != "" {
		fmt.Fprintf(&b, ", on %s %s", e.VaultError.Method, e.VaultError.URL)
	}
	return b.String()
}

// Unwrap returns the base VaultError.
func (e *HTTPError) Unwrap() error { return e.VaultError }

// Is matches the status sentinels (ErrInvalidPath, ErrForbidden, ...).
func (e *HTTPError) Is(target error) bool {
	c, ok := target.(codeError)
	return ok && ErrorCode(c) == e.Code
}

// NewHTTPError creates an HTTPError for status with no body context.
func NewHTTPError(status int, errs ...string) *HTTPError {
	code := CodeForStatus(status)
	return &HTTPError{
		VaultError: &VaultError{Kind: KindHTTP, Errors: errs},
		StatusCode: status,
		Reason:     http.StatusText(status),
		Code:       code,
		Class:      ClassForStatus(status),
		Retryable:  IsRetryableCode(code),
	}
}

// FromResponse builds the HTTPError for a failed exchange. Vault reports
// failures as {"errors": ["..."]}; those strings become Errors. Non-JSON
// bodies are kept verbatim in Text.
func FromResponse(method, url string, status int, body []byte) *HTTPError {
	e := NewHTTPError(status)
	e.VaultError.Method = method
	e.VaultError.URL = url
	e.VaultError.Text = string(body)

	if len(body) == 0 {
		return e
	}
	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return e
	}
	e.VaultError.JSON = decoded
	if m, ok := decoded.(map[string]any); ok {
		if list, ok := m["errors"].([]any); ok {
			for _, item := range list {
				e.VaultError.Errors = append(e.VaultError.Errors, fmt.Sprint(item))
			}
		}
	}
	return e
}

// codeError is the concrete type of the status sentinels.
type codeError ErrorCode

func (c codeError) Error() string {
	return "vault: " + strings.ToLower(string(c))
}

// Sentinels for errors.Is against an *HTTPError.
var (
	ErrInvalidRequest       error = codeError(ErrCodeInvalidRequest)
	ErrUnauthorized         error = codeError(ErrCodeUnauthorized)
	ErrForbidden            error = codeError(ErrCodeForbidden)
	ErrInvalidPath          error = codeError(ErrCodeInvalidPath)
	ErrUnsupportedOperation error = codeError(ErrCodeUnsupportedOperation)
	ErrPreconditionFailed   error = codeError(ErrCodePreconditionFailed)
	ErrRateLimitExceeded    error = codeError(ErrCodeRateLimitExceeded)
	ErrInternalServer       error = codeError(ErrCodeInternalServer)
	ErrNotInitialized       error = codeError(ErrCodeNotInitialized)
	ErrBadGateway           error = codeError(ErrCodeBadGateway)
	ErrVaultDown            error = codeError(ErrCodeVaultDown)
	ErrUnexpected           error = codeError(ErrCodeUnexpected)
)
