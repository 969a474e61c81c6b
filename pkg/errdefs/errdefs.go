// Package errdefs defines the error kinds surfaced to the command layer.
package errdefs

import (
	"errors"
	"fmt"
)

// NotFoundError is returned when a config file, app, environment or
// rendered artifact does not exist.
type NotFoundError struct {
	Kind string // e.g. "environment", "app", "config file"
	Name string
	Hint string // optional next step for the user
}

func (e *NotFoundError) Error() string {
	msg := fmt.Sprintf("%s '%s' not found", e.Kind, e.Name)
	if e.Name == "" {
		msg = e.Kind + " not found"
	}
	if e.Hint != "" {
		msg += ". " + e.Hint
	}
	return msg
}

// ValidationError reports malformed configuration or a missing credential.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ExternalError wraps a failure of a collaborator: a non-zero exit from
// docker compose or a non-2xx response from an HTTP API.
type ExternalError struct {
	Op       string
	ExitCode int // process exit code, 0 when not applicable
	Status   int // HTTP status, 0 when not applicable
	Err      error
}

func (e *ExternalError) Error() string {
	switch {
	case e.Status != 0:
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.Status, e.Err)
	case e.ExitCode != 0:
		return fmt.Sprintf("%s: exit code %d: %v", e.Op, e.ExitCode, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
}

func (e *ExternalError) Unwrap() error {
	return e.Err
}

// NotFound creates a NotFoundError.
func NotFound(kind, name string) *NotFoundError {
	return &NotFoundError{Kind: kind, Name: name}
}

// Invalid creates a ValidationError.
func Invalid(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsNotFound reports whether err or any error it wraps is a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsValidation reports whether err or any error it wraps is a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsExternal reports whether err or any error it wraps is an ExternalError.
func IsExternal(err error) bool {
	var target *ExternalError
	return errors.As(err, &target)
}
