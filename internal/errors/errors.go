package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError is the structured error type for travelrag.
type AppError struct {
	// Code is the unique error code (e.g., "ERR_207_FILE_ENCODING").
	Code string

	Message  string
	Category Category
	Severity Severity

	// Details carries extra context such as the offending path.
	Details map[string]string

	Cause error

	// Transient marks errors caused by an unavailable remote service.
	Transient bool

	// Suggestion is an actionable hint for the CLI user.
	Suggestion string
}

func (e *AppError) Error() string {
	if e.Cause != nil && e.Cause.Error() != e.Message {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches by code so errors.Is(err, &AppError{Code: X}) works through wrapping.
func (e *AppError) Is(target error) bool {
	if t, ok := target.(*AppError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion attaches a hint shown by the CLI.
func (e *AppError) WithSuggestion(suggestion string) *AppError {
	e.Suggestion = suggestion
	return e
}

// New creates an AppError. Category, severity and the transient flag are
// derived from the code.
func New(code string, message string, cause error) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Transient: isTransientCode(code),
	}
}

// Wrap creates an AppError from an existing error, reusing its message.
func Wrap(code string, err error) *AppError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ValidationError creates an ERR_401 error.
func ValidationError(message string, cause error) *AppError {
	return New(ErrCodeInvalidInput, message, cause)
}

// ConfigError creates an ERR_102 error.
func ConfigError(message string, cause error) *AppError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// IsTransient reports whether err (or anything it wraps) is a transient AppError.
func IsTransient(err error) bool {
	var ae *AppError
	if stderrors.As(err, &ae) {
		return ae.Transient
	}
	return false
}

// IsFatal reports whether err has fatal severity.
func IsFatal(err error) bool {
	var ae *AppError
	if stderrors.As(err, &ae) {
		return ae.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code, or "" when err carries none.
func GetCode(err error) string {
	var ae *AppError
	if stderrors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code string) bool {
	return stderrors.Is(err, &AppError{Code: code})
}
