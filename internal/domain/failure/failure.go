// Package failure defines the error taxonomy shared by the resolver, the
// config loader, the linking engine and the cronjob dispatcher.
package failure

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Codes. NotFound and AccessDenied abort the invocation; ValidationFailed
// and InvalidConfiguration are recovered locally.
const (
	CodeNotFound             = "NOT_FOUND"
	CodeAccessDenied         = "ACCESS_DENIED"
	CodeValidationFailed     = "VALIDATION_FAILED"
	CodeInvalidConfiguration = "INVALID_CONFIGURATION"
	CodeUpstreamFailure      = "UPSTREAM_FAILURE"
	CodeInvalidLanguage      = "INVALID_LANGUAGE"
	CodeExecutionFailed      = "EXECUTION_FAILED"
)

// Process exit codes for CLI invocations.
const (
	ExitOK      = 0
	ExitGeneric = 1
	ExitFatal   = 2
)

// Error is a coded, user-facing error.
type Error struct {
	Code       string
	Message    string
	Context    string // module/action location, field name, ...
	Suggestion string
	Underlying error
}

// New creates an Error with the given code and message.
func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an Error with a formatted message.
func Newf(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e.Context == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (at %s)", e.Message, e.Context)
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Underlying
}

// Is matches any *Error carrying the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Format renders code, message, location and suggestion on separate lines.
func (e *Error) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Code, e.Message)
	if e.Context != "" {
		fmt.Fprintf(&b, "\n  Location: %s", e.Context)
	}
	if e.Suggestion != "" {
		fmt.Fprintf(&b, "\n  Suggestion: %s", e.Suggestion)
	}
	return b.String()
}

// WithContext returns a copy with Context set.
func (e *Error) WithContext(ctx string) *Error {
	c := *e
	c.Context = ctx
	return &c
}

// WithSuggestion returns a copy with Suggestion set.
func (e *Error) WithSuggestion(s string) *Error {
	c := *e
	c.Suggestion = s
	return &c
}

// WithUnderlying returns a copy wrapping err.
func (e *Error) WithUnderlying(err error) *Error {
	c := *e
	c.Underlying = err
	return &c
}

// Sentinels for errors.Is checks.
var (
	ErrNotFound             = New(CodeNotFound, "not found")
	ErrAccessDenied         = New(CodeAccessDenied, "access denied")
	ErrValidationFailed     = New(CodeValidationFailed, "validation failed")
	ErrInvalidConfiguration = New(CodeInvalidConfiguration, "invalid configuration")
	ErrUpstreamFailure      = New(CodeUpstreamFailure, "upstream failure")
	ErrInvalidLanguage      = New(CodeInvalidLanguage, "invalid language")
	ErrExecutionFailed      = New(CodeExecutionFailed, "execution failed")
)

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// HTTPStatus maps err to the status an HTTP front door should answer with.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case "":
		if err == nil {
			return http.StatusOK
		}
		return http.StatusInternalServerError
	case CodeAccessDenied:
		return http.StatusForbidden
	case CodeValidationFailed:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// ExitCode maps err to a process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case CodeOf(err) != "":
		return ExitFatal
	default:
		return ExitGeneric
	}
}
