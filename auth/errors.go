package auth

import (
	"errors"
	"fmt"
	"net/http"
)

// Reason identifies an authentication or authorization failure mode. Reasons
// are stable strings surfaced to clients so they can react precisely without
// the server leaking any credential material.
type Reason string

const (
	ReasonMissingCredential       Reason = "missing_credential"
	ReasonMalformedCredential     Reason = "malformed_credential"
	ReasonUnsupportedScheme       Reason = "unsupported_scheme"
	ReasonUnknownKey              Reason = "unknown_key"
	ReasonMalformedToken          Reason = "malformed_token"
	ReasonBadSignature            Reason = "bad_signature"
	ReasonTokenExpired            Reason = "token_expired"
	ReasonInsufficientPermissions Reason = "insufficient_permissions"
)

// Error is an authentication or authorization failure with a stable reason
// and the HTTP status it maps to at the boundary.
type Error struct {
	Reason  Reason
	Message string
	Status  int
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

// Is matches errors by reason so sentinel values compose with errors.Is
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Reason == t.Reason
}

func newError(reason Reason, message string, status int) *Error {
	return &Error{Reason: reason, Message: message, Status: status}
}

var (
	ErrMissingCredential   = newError(ReasonMissingCredential, "missing authorization header", http.StatusUnauthorized)
	ErrMalformedCredential = newError(ReasonMalformedCredential, "invalid authorization format", http.StatusUnauthorized)
	ErrUnsupportedScheme   = newError(ReasonUnsupportedScheme, "unsupported auth scheme", http.StatusUnauthorized)
	ErrUnknownKey          = newError(ReasonUnknownKey, "invalid API key", http.StatusUnauthorized)
	ErrMalformedToken      = newError(ReasonMalformedToken, "invalid token format", http.StatusUnauthorized)
	ErrBadSignature        = newError(ReasonBadSignature, "invalid token signature", http.StatusUnauthorized)
	ErrTokenExpired        = newError(ReasonTokenExpired, "token expired", http.StatusUnauthorized)

	ErrInsufficientPermissions = newError(ReasonInsufficientPermissions, "insufficient permissions", http.StatusForbidden)
)

// ReasonOf extracts the failure reason from an error chain, or empty string
// when the error did not originate here.
func ReasonOf(err error) Reason {
	var authErr *Error
	if errors.As(err, &authErr) {
		return authErr.Reason
	}
	return ""
}

// StatusOf returns the HTTP status an auth error maps to, defaulting to 401
// for unknown errors reaching the auth boundary.
func StatusOf(err error) int {
	var authErr *Error
	if errors.As(err, &authErr) {
		return authErr.Status
	}
	return http.StatusUnauthorized
}
