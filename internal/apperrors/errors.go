// Package apperrors defines the error taxonomy shared by every layer of
// the memory subsystem: storage, remote-API, user-input, configuration, and
// policy errors all carry a Kind so the central handler can route them to a
// user-visible message and a log call without inspecting error strings.
package apperrors

import "fmt"

// Kind categorizes an AppError for routing and logging purposes.
type Kind string

const (
	// Storage layer.
	KindConnection Kind = "CONNECTION"
	KindQuery      Kind = "QUERY"
	KindIntegrity  Kind = "INTEGRITY"

	// Remote-API layer.
	KindRateLimit     Kind = "RATE_LIMIT"
	KindAuth          Kind = "AUTH"
	KindProviderError Kind = "PROVIDER_ERROR"

	// User-input layer.
	KindValidation    Kind = "VALIDATION"
	KindInvalidCmd    Kind = "INVALID_COMMAND"

	// Startup configuration.
	KindMissingConfig Kind = "MISSING_CONFIG"
	KindInvalidConfig Kind = "INVALID_CONFIG"

	// Feature gating.
	KindFeatureDisabled Kind = "FEATURE_DISABLED"
	KindNotImplemented  Kind = "NOT_IMPLEMENTED"

	// Policy.
	KindUnauthorized Kind = "UNAUTHORIZED"
	KindRateLimited  Kind = "RATE_LIMITED"
)

// AppError is the single error type used across the module. Message is
// never shown to end users verbatim (see ErrorHandler); it is for logs.
type AppError struct {
	Kind    Kind
	Message string
	Stmt    string // offending SQL statement, for KindQuery only
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

func New(kind Kind, message string) error {
	return &AppError{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) error {
	if err == nil {
		return nil
	}
	return &AppError{Kind: kind, Message: message, Err: err}
}

// NewQuery wraps a SQL error with the offending statement, per spec: "other
// SQL errors -> QueryError carrying the offending statement".
func NewQuery(stmt string, err error) error {
	return &AppError{Kind: KindQuery, Message: "query failed", Stmt: stmt, Err: err}
}

// Is reports whether err is an *AppError of the given kind.
func Is(err error, kind Kind) bool {
	ae, ok := err.(*AppError)
	return ok && ae.Kind == kind
}

// KindOf extracts the Kind of an AppError, or "" if err is not one.
func KindOf(err error) Kind {
	if ae, ok := err.(*AppError); ok {
		return ae.Kind
	}
	return ""
}
