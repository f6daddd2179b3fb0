package failure

import (
	"fmt"
	"strings"
)

// FieldError is a single field-level validation problem.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ErrorList collects validation problems for one submission.
type ErrorList struct {
	fields []FieldError
}

// NewErrorList creates an empty list.
func NewErrorList() *ErrorList {
	return &ErrorList{}
}

// Add records a problem for field.
func (l *ErrorList) Add(field, message string) {
	l.fields = append(l.fields, FieldError{Field: field, Message: message})
}

// Required records a problem when value is empty and reports whether it did.
func (l *ErrorList) Required(field, value string) bool {
	if strings.TrimSpace(value) != "" {
		return false
	}
	l.Add(field, "field is required")
	return true
}

// HasErrors reports whether any problem was recorded.
func (l *ErrorList) HasErrors() bool {
	return len(l.fields) > 0
}

// Len returns the number of recorded problems.
func (l *ErrorList) Len() int {
	return len(l.fields)
}

// Fields returns a copy of the recorded problems.
func (l *ErrorList) Fields() []FieldError {
	out := make([]FieldError, len(l.fields))
	copy(out, l.fields)
	return out
}

func (l *ErrorList) Error() string {
	switch len(l.fields) {
	case 0:
		return ""
	case 1:
		return fmt.Sprintf("%s: %s", l.fields[0].Field, l.fields[0].Message)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d validation errors:", len(l.fields))
	for _, f := range l.fields {
		fmt.Fprintf(&b, "\n  %s: %s", f.Field, f.Message)
	}
	return b.String()
}

// AsError returns a ValidationFailed *Error wrapping the list, or nil.
func (l *ErrorList) AsError() error {
	if !l.HasErrors() {
		return nil
	}
	return &Error{
		Code:       CodeValidationFailed,
		Message:    "submitted form is invalid",
		Underlying: l,
	}
}
