package failure

import "fmt"

// ModuleNotAllowed reports a module that is not installed.
func ModuleNotAllowed(module string) *Error {
	return &Error{
		Code:       CodeAccessDenied,
		Message:    fmt.Sprintf("module %q not allowed", module),
		Suggestion: "check that the module directory exists and is listed by the module enumerator",
	}
}

// ActionDisabled reports an action switched off by the module config.
func ActionDisabled(module, action string) *Error {
	return &Error{
		Code:    CodeAccessDenied,
		Message: fmt.Sprintf("action %q of module %q is disabled", action, module),
	}
}

// ActionNotFound reports a missing action or cronjob implementation.
func ActionNotFound(module, kind, action, location string) *Error {
	return &Error{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s %q does not exist in module %q", kind, action, module),
		Context: location,
	}
}

// ImplementationNameMismatch reports a registered implementation whose
// declared identifier differs from the derived one.
func ImplementationNameMismatch(expected, actual, location string) *Error {
	return &Error{
		Code:    CodeExecutionFailed,
		Message: fmt.Sprintf("implementation %q does not match expected identifier %q", actual, expected),
		Context: location,
	}
}

// ConfigFileMissing reports a module without a registered configuration.
func ConfigFileMissing(module, location string) *Error {
	return &Error{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("config for module %q does not exist", module),
		Context: location,
	}
}

// ConfigIdentifierMismatch reports a configuration registered under the
// wrong identifier.
func ConfigIdentifierMismatch(expected, actual, location string) *Error {
	return &Error{
		Code:    CodeExecutionFailed,
		Message: fmt.Sprintf("config %q does not match expected identifier %q", actual, expected),
		Context: location,
	}
}

// InvalidLanguage reports a language outside the working set.
func InvalidLanguage(lang string, working []string) *Error {
	return &Error{
		Code:       CodeInvalidLanguage,
		Message:    fmt.Sprintf("invalid language %q", lang),
		Suggestion: fmt.Sprintf("use one of %v", working),
	}
}

// Upstream wraps an error returned by an external service.
func Upstream(op string, err error) *Error {
	return &Error{
		Code:       CodeUpstreamFailure,
		Message:    fmt.Sprintf("%s failed", op),
		Underlying: err,
	}
}

// Execution wraps an error returned by an action body.
func Execution(module, action string, err error) *Error {
	return &Error{
		Code:       CodeExecutionFailed,
		Message:    fmt.Sprintf("%s.%s failed: %v", module, action, err),
		Underlying: err,
	}
}
