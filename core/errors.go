package core

import "github.com/pkg/errors"

// FieldError ties a validation message to the struct field it is about.
type FieldError struct {
	Field string
	Error string
}

// ValidationError carries a request-level error plus per-field details; the
// HTTP layer renders it as a 400 response.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

type shutdown struct {
	message string
}

// NewShutdownError returns an error that signals the app can no longer serve
// requests and must be restarted (integrity faults, lost dependencies).
func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
