package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

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

// integrity signals that persisted state violates an application invariant.
// It is never returned for bad user input.
type integrity struct {
	message string
}

func NewIntegrityError(msg string) error {
	return &integrity{message: msg}
}

func (e integrity) Error() string {
	return e.message
}

func IsIntegrityError(err error) bool {
	_, ok := errors.Cause(err).(*integrity)
	return ok
}

type shutdown struct {
	message string
}

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
