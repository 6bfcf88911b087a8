package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError reports input that cannot be processed as given.
// Err summarizes the problem, Fields pin it to request fields.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err != nil {
		return err.Err.Error()
	}
	if len(err.Fields) > 0 {
		return err.Fields[0].Field + ": " + err.Fields[0].Error
	}
	return "invalid input"
}

func (err ValidationError) Unwrap() error { return err.Err }

// FieldMap indexes the field errors by field, the first error of a field wins.
func (err ValidationError) FieldMap() map[string]string {
	if len(err.Fields) == 0 {
		return nil
	}
	m := make(map[string]string, len(err.Fields))
	for _, f := range err.Fields {
		if _, ok := m[f.Field]; !ok {
			m[f.Field] = f.Error
		}
	}
	return m
}

// ConflictError reports a valid request the current state refuses,
// e.g. enrolling beyond the credit limit. Reason is a stable slug clients can switch on.
type ConflictError struct {
	Reason  string
	Message string
}

func NewConflictError(reason, msg string) error {
	return &ConflictError{Reason: reason, Message: msg}
}

func (err ConflictError) Error() string { return err.Message }

// ForbiddenError reports an action the user may not take on an existing resource.
type ForbiddenError struct {
	Message string
}

func NewForbiddenError(msg string) error {
	return &ForbiddenError{Message: msg}
}

func (err ForbiddenError) Error() string { return err.Message }

// NotFoundError reports a missing resource.
type NotFoundError struct {
	Resource string
}

func NewNotFoundError(resource string) error {
	return &NotFoundError{Resource: resource}
}

func (err NotFoundError) Error() string { return err.Resource + " not found" }

// ErrorReason returns the slug of a domain error, or "" when err is not one.
func ErrorReason(err error) string {
	switch e := errors.Cause(err).(type) {
	case *ConflictError:
		return e.Reason
	case *ForbiddenError:
		return "forbidden"
	case *NotFoundError:
		return "not_found"
	case *ValidationError:
		return "invalid"
	}
	return ""
}

type shutdown struct {
	message string
}

// NewShutdownError builds an error that makes the API server stop gracefully once handled.
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
