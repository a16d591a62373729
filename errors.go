// Package odbgen wires the ODB object-relational mapping compiler into a
// native build graph. The root package holds the error taxonomy shared by
// every stage of the pipeline.
package odbgen

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the failure classes of the pipeline.
var (
	// ErrValidation indicates a malformed or incomplete generation request.
	ErrValidation = errors.New("odbgen: invalid request")
	// ErrConfig indicates an invalid option or configuration value.
	ErrConfig = errors.New("odbgen: invalid configuration")
	// ErrDiscovery indicates that the compiler or a required component was not found.
	ErrDiscovery = errors.New("odbgen: discovery failed")
	// ErrInvocation indicates that a compiler invocation exited with a failure.
	ErrInvocation = errors.New("odbgen: compiler invocation failed")
	// ErrPredictionMismatch indicates that the compiler wrote a different set of
	// files than the one declared in the build graph.
	ErrPredictionMismatch = errors.New("odbgen: predicted outputs do not match")
)

// ValidationError is returned when a generation request is rejected before
// any task is created.
type ValidationError struct {
	Field   string // request field, e.g. "TARGETS" or "MULTI_DATABASE"
	Value   any
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("odbgen: validation error")
	if e.Field != "" {
		b.WriteString(" on ")
		b.WriteString(e.Field)
	}
	if e.Value != nil {
		fmt.Fprintf(&b, " (value: %v)", e.Value)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// ConfigError represents an invalid option value.
type ConfigError struct {
	Option  string
	Value   any
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("odbgen: config error for %q (value: %v): %s", e.Option, e.Value, e.Message)
	}
	return fmt.Sprintf("odbgen: config error for %q: %s", e.Option, e.Message)
}

// Is reports whether the target matches ErrConfig.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

// NewConfigError creates a new ConfigError.
func NewConfigError(option string, value any, message string) *ConfigError {
	return &ConfigError{
		Option:  option,
		Value:   value,
		Message: message,
	}
}

// DiscoveryError is raised at configuration time when the compiler or a
// required component library/header cannot be located.
type DiscoveryError struct {
	Component string // "odb" for the compiler itself
	Searched  []string
	Message   string
}

// Error implements the error interface.
func (e *DiscoveryError) Error() string {
	var b strings.Builder
	b.WriteString("odbgen: discovery error")
	if e.Component != "" {
		b.WriteString(" for ")
		b.WriteString(e.Component)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.Searched) > 0 {
		b.WriteString(" (searched: ")
		b.WriteString(strings.Join(e.Searched, ", "))
		b.WriteString(")")
	}
	return b.String()
}

// Is reports whether the target matches ErrDiscovery.
func (e *DiscoveryError) Is(target error) bool {
	return target == ErrDiscovery
}

// NewDiscoveryError creates a new DiscoveryError.
func NewDiscoveryError(component, message string, searched ...string) *DiscoveryError {
	return &DiscoveryError{
		Component: component,
		Searched:  searched,
		Message:   message,
	}
}

// InvocationError reports a compiler run that exited unsuccessfully. It is
// never retried: code generation is deterministic.
type InvocationError struct {
	Task     string
	ExitCode int
	Output   string // captured stdout and stderr
	Cause    error
}

// Error implements the error interface.
func (e *InvocationError) Error() string {
	var b strings.Builder
	b.WriteString("odbgen: invocation failed")
	if e.Task != "" {
		b.WriteString(" for task ")
		b.WriteString(e.Task)
	}
	if e.ExitCode != 0 {
		fmt.Fprintf(&b, " (exit code %d)", e.ExitCode)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	if out := strings.TrimSpace(e.Output); out != "" {
		b.WriteString("\n")
		b.WriteString(out)
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *InvocationError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches ErrInvocation.
func (e *InvocationError) Is(target error) bool {
	return target == ErrInvocation
}

// PredictionMismatchError reports that a compiler run produced a file set
// that differs from the declared outputs of its task.
type PredictionMismatchError struct {
	Task       string
	Missing    []string // declared but not written
	Unexpected []string // written but not declared
}

// Error implements the error interface.
func (e *PredictionMismatchError) Error() string {
	var b strings.Builder
	b.WriteString("odbgen: prediction mismatch")
	if e.Task != "" {
		b.WriteString(" for task ")
		b.WriteString(e.Task)
	}
	if len(e.Missing) > 0 {
		b.WriteString("; missing: ")
		b.WriteString(strings.Join(e.Missing, ", "))
	}
	if len(e.Unexpected) > 0 {
		b.WriteString("; unexpected: ")
		b.WriteString(strings.Join(e.Unexpected, ", "))
	}
	return b.String()
}

// Is reports whether the target matches ErrPredictionMismatch.
func (e *PredictionMismatchError) Is(target error) bool {
	return target == ErrPredictionMismatch
}

// IsValidationError reports whether the error is a ValidationError.
func IsValidationError(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

// IsConfigError reports whether the error is a ConfigError.
func IsConfigError(err error) bool {
	var e *ConfigError
	return errors.As(err, &e)
}

// IsDiscoveryError reports whether the error is a DiscoveryError.
func IsDiscoveryError(err error) bool {
	var e *DiscoveryError
	return errors.As(err, &e)
}

// IsInvocationError reports whether the error is an InvocationError.
func IsInvocationError(err error) bool {
	var e *InvocationError
	return errors.As(err, &e)
}

// IsPredictionMismatch reports whether the error is a PredictionMismatchError.
func IsPredictionMismatch(err error) bool {
	var e *PredictionMismatchError
	return errors.As(err, &e)
}
