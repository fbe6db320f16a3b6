package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestVaultError_Error_JoinsServerErrors(t *testing.T) {
	err := &VaultError{
		Kind:    KindHTTP,
		Message: "request failed",
		Errors:  []string{"permission denied", "invalid token"},
		Method:  http.MethodGet,
		URL:     "http://127.0.0.1:8200/v1/secret/foo",
	}
	s := err.Error()
	if !strings.Contains(s, "request failed: permission denied, invalid token") {
		t.Errorf("expected joined errors in message, got %q", s)
	}
	if !strings.Contains(s, "on GET http://127.0.0.1:8200/v1/secret/foo") {
		t.Errorf("expected request context in message, got %q", s)
	}
}

func TestVaultError_Error_DefaultsToKind(t *testing.T) {
	err := New(KindTransport, "")
	if got := err.Error(); got != "vault: transport error" {
		t.Errorf("got %q", got)
	}
}

func TestVaultError_Error_OnlyErrors(t *testing.T) {
	err := &VaultError{Kind: KindHTTP, Errors: []string{"no handler for route"}}
	if got := err.Error(); got != "vault: no handler for route" {
		t.Errorf("got %q", got)
	}
}

func TestVaultError_WithCause_Chain(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := New(KindTransport, "dial failed").WithCause(cause)
	if !stderrors.Is(err, cause) {
		t.Error("expected errors.Is to reach the cause")
	}
	if !strings.Contains(err.Error(), "cause: connection refused") {
		t.Errorf("Error() should contain cause, got %q", err.Error())
	}
}

func TestVaultError_WithDetails_Merge(t *testing.T) {
	err := New(KindValidation, "bad").WithDetail("field", "role_id")
	err.WithDetails(map[string]any{"mount": "approle"})
	if err.Details["field"] != "role_id" || err.Details["mount"] != "approle" {
		t.Errorf("unexpected details: %v", err.Details)
	}
}

func TestFromResponse_ParsesErrorsList(t *testing.T) {
	body := []byte(`{"errors":["1 error occurred:\n\t* permission denied\n\n"]}`)
	err := FromResponse(http.MethodPost, "http://vault/v1/auth/token/lookup", 403, body)

	if err.StatusCode != 403 {
		t.Errorf("expected 403, got %d", err.StatusCode)
	}
	if err.Class != ClassPermission {
		t.Errorf("expected permission class, got %s", err.Class)
	}
	if err.Code != ErrCodeForbidden {
		t.Errorf("expected FORBIDDEN, got %s", err.Code)
	}
	if len(err.Errors) != 1 || !strings.Contains(err.Errors[0], "permission denied") {
		t.Errorf("unexpected errors list: %v", err.Errors)
	}
	if err.Text != string(body) {
		t.Errorf("expected raw body in Text, got %q", err.Text)
	}
	if err.JSON == nil {
		t.Error("expected decoded JSON body")
	}
	if err.Method != http.MethodPost {
		t.Errorf("expected method recorded, got %q", err.Method)
	}
}

func TestFromResponse_NonJSONBody(t *testing.T) {
	err := FromResponse(http.MethodGet, "http://vault/v1/sys/health", 502, []byte("<html>bad gateway</html>"))
	if err.JSON != nil {
		t.Error("expected no JSON for html body")
	}
	if err.Text != "<html>bad gateway</html>" {
		t.Errorf("unexpected text %q", err.Text)
	}
	if !err.Retryable {
		t.Error("502 should be retryable")
	}
}

func TestClassForStatus(t *testing.T) {
	tests := []struct {
		status int
		want   Class
	}{
		{400, ClassBadRequest},
		{401, ClassGeneric},
		{403, ClassPermission},
		{404, ClassNotFound},
		{405, ClassGeneric},
		{429, ClassGeneric},
		{500, ClassServer},
		{501, ClassServer},
		{503, ClassServer},
		{599, ClassServer},
		{307, ClassGeneric},
	}
	for _, tt := range tests {
		if got := ClassForStatus(tt.status); got != tt.want {
			t.Errorf("ClassForStatus(%d) = %s, want %s", tt.status, got, tt.want)
		}
	}
}

func TestCodeForStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorCode
	}{
		{400, ErrCodeInvalidRequest},
		{401, ErrCodeUnauthorized},
		{403, ErrCodeForbidden},
		{404, ErrCodeInvalidPath},
		{405, ErrCodeUnsupportedOperation},
		{412, ErrCodePreconditionFailed},
		{429, ErrCodeRateLimitExceeded},
		{500, ErrCodeInternalServer},
		{501, ErrCodeNotInitialized},
		{502, ErrCodeBadGateway},
		{503, ErrCodeVaultDown},
		{418, ErrCodeUnexpected},
	}
	for _, tt := range tests {
		if got := CodeForStatus(tt.status); got != tt.want {
			t.Errorf("CodeForStatus(%d) = %s, want %s", tt.status, got, tt.want)
		}
	}
}

func TestHTTPError_IsSentinel(t *testing.T) {
	var err error = NewHTTPError(404, "secret not found")
	if !stderrors.Is(err, ErrInvalidPath) {
		t.Error("expected errors.Is(err, ErrInvalidPath)")
	}
	if stderrors.Is(err, ErrForbidden) {
		t.Error("404 should not match ErrForbidden")
	}

	wrapped := fmt.Errorf("reading secret: %w", err)
	if !stderrors.Is(wrapped, ErrInvalidPath) {
		t.Error("expected sentinel match through fmt wrapping")
	}
}

func TestHTTPError_AsVaultError(t *testing.T) {
	var err error = NewHTTPError(500)
	var ve *VaultError
	if !stderrors.As(err, &ve) {
		t.Fatal("HTTPError must be catchable as *VaultError")
	}
	if ve.Kind != KindHTTP {
		t.Errorf("expected KindHTTP base, got %s", ve.Kind)
	}
}

func TestHTTPError_Error_Format(t *testing.T) {
	err := FromResponse(http.MethodGet, "http://vault/v1/secret/missing", 404, []byte(`{"errors":[]}`))
	want := "vault: invalid_path (HTTP 404 Not Found), on GET http://vault/v1/secret/missing"
	if got := err.Error(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestStatusHelpers(t *testing.T) {
	notFound := NewHTTPError(404)
	forbidden := NewHTTPError(403)
	badRequest := NewHTTPError(400)
	server := NewHTTPError(503)
	transport := New(KindTransport, "refused")

	if !IsNotFound(notFound) || IsNotFound(forbidden) {
		t.Error("IsNotFound mismatch")
	}
	if !IsPermissionDenied(forbidden) {
		t.Error("IsPermissionDenied should match 403")
	}
	if !IsBadRequest(badRequest) {
		t.Error("IsBadRequest should match 400")
	}
	if !IsServerError(server) {
		t.Error("IsServerError should match 503")
	}
	for _, err := range []error{notFound, forbidden, badRequest} {
		if !IsAbsent(err) {
			t.Errorf("IsAbsent should match %v", err)
		}
	}
	if IsAbsent(server) || IsAbsent(transport) {
		t.Error("IsAbsent should not match server or transport errors")
	}
	if !IsTransport(transport) || IsTransport(notFound) {
		t.Error("IsTransport mismatch")
	}
	if code, ok := StatusCode(fmt.Errorf("wrap: %w", forbidden)); !ok || code != 403 {
		t.Errorf("StatusCode = %d, %v", code, ok)
	}
	if _, ok := StatusCode(transport); ok {
		t.Error("transport error carries no status")
	}
	if !HasStatus(notFound, 400, 404) {
		t.Error("HasStatus should match 404")
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(New(KindTimeout, "slow")) {
		t.Error("timeouts should be retryable")
	}
	if !IsRetryable(NewHTTPError(429)) {
		t.Error("429 should be retryable")
	}
	if IsRetryable(NewHTTPError(403)) {
		t.Error("403 should not be retryable")
	}
	if IsRetryable(New(KindParse, "bad json")) {
		t.Error("parse errors should not be retryable")
	}
}

func TestNormalize(t *testing.T) {
	if Normalize(nil) != nil {
		t.Error("Normalize(nil) should be nil")
	}

	lib := NewHTTPError(404)
	if Normalize(lib) != error(lib) {
		t.Error("library errors should pass through unchanged")
	}

	foreign := fmt.Errorf("boom")
	got := Normalize(foreign)
	ve, ok := AsVaultError(got)
	if !ok || ve.Kind != KindInternal {
		t.Fatalf("expected KindInternal VaultError, got %v", got)
	}
	if !stderrors.Is(got, foreign) {
		t.Error("cause should be preserved")
	}

	if KindOf(Normalize(context.DeadlineExceeded)) != KindTimeout {
		t.Error("deadline exceeded should map to timeout")
	}
	if KindOf(Normalize(context.Canceled)) != KindTransport {
		t.Error("canceled should map to transport")
	}
}

func TestGuard_RecoversPanic(t *testing.T) {
	err := Guard(func() error {
		panic("nil map write")
	})
	ve, ok := AsVaultError(err)
	if !ok || ve.Kind != KindInternal {
		t.Fatalf("expected KindInternal, got %v", err)
	}
	if !strings.Contains(err.Error(), "nil map write") {
		t.Errorf("expected panic value in message, got %q", err.Error())
	}
}

func TestGuardValue(t *testing.T) {
	v, err := GuardValue(func() (int, error) { return 42, nil })
	if err != nil || v != 42 {
		t.Fatalf("got %d, %v", v, err)
	}

	v, err = GuardValue(func() (int, error) { return 7, fmt.Errorf("bad") })
	if v != 0 {
		t.Errorf("expected zero value on error, got %d", v)
	}
	if KindOf(err) != KindInternal {
		t.Errorf("expected normalized error, got %v", err)
	}
}

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindInternal, "internal"},
		{KindTransport, "transport"},
		{KindTimeout, "timeout"},
		{KindParse, "parse"},
		{KindRedirect, "redirect"},
		{KindValidation, "validation"},
		{KindConfig, "config"},
		{KindClosed, "closed"},
		{KindHTTP, "http"},
		{Kind(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
