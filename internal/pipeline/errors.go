package pipeline

import (
	"errors"
	"fmt"
)

// ConfigError reports an invalid job or pipeline configuration.
//
// Config errors are raised while building jobs, before any row is touched.
type ConfigError struct {
	// Job is the name of the offending job, empty for pipeline-level errors.
	Job string

	// Field is the option at fault, if known.
	Field string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if e.Job != "" {
		return fmt.Sprintf("job %q: %s", e.Job, msg)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a ConfigError for a job option.
func NewConfigError(job, field, format string, args ...any) *ConfigError {
	return &ConfigError{
		Job:     job,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapConfigError creates a ConfigError around an underlying cause.
func WrapConfigError(job, field string, err error) *ConfigError {
	return &ConfigError{
		Job:     job,
		Field:   field,
		Message: "invalid",
		Err:     err,
	}
}

// IsConfigError returns true if err is or wraps a ConfigError.
// Uses errors.As to handle wrapped errors.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
