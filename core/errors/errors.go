package errors

import "fmt"

type ErrorCode string

const (
	// Generic codes
	ErrInvalidInput               ErrorCode = "invalid_input"
	ErrInvalidRequestData         ErrorCode = "invalid_request_data"
	ErrUnauthorized               ErrorCode = "unauthorized"
	ErrForbidden                  ErrorCode = "forbidden"
	ErrNotFound                   ErrorCode = "not_found"
	ErrAlreadyExists              ErrorCode = "already_exists"
	ErrInternalServer             ErrorCode = "internal_server"
	ErrTokenExpired               ErrorCode = "token_expired"
	ErrInvalidTokenFormat         ErrorCode = "invalid_token_format"
	ErrMissingAuthorizationHeader ErrorCode = "missing_authorization_header"

	// OAuth / calendar sync failure kinds. Callers branch on these, not on
	// message text.
	ErrOAuthDenied   ErrorCode = "oauth_denied"   // user declined or provider rejected authorization
	ErrOAuthCallback ErrorCode = "oauth_callback" // malformed callback: missing code/state, purpose mismatch
	ErrTokenExchange ErrorCode = "token_exchange" // code exchange or profile fetch failed
	ErrNotConnected  ErrorCode = "not_connected"  // no usable connection; user must (re)authorize
	ErrRefreshFailed ErrorCode = "refresh_failed" // provider rejected the refresh token
	ErrSyncFailed    ErrorCode = "sync_failed"    // provider-side error while listing events
)

// AppError is the error type every service returns. Message is safe to show
// to users; Cause carries diagnostics (provider status codes, bodies) and is
// only logged.
type AppError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func NewAppError(code ErrorCode, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, Cause: cause}
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is reports whether err is an *AppError with the given code.
func Is(err error, code ErrorCode) bool {
	ae, ok := err.(*AppError)
	return ok && ae.Code == code
}
