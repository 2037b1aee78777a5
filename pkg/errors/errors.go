// Package errors provides custom error types for the fieldmap engine.
// These errors enable better error handling, programmatic error checking,
// and improved debugging throughout the application.
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Common sentinel errors for the fieldmap engine
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates that a resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedStrategy indicates a computed-formula strategy the
	// resolver does not implement; it signals a template authoring bug
	ErrUnsupportedStrategy = errors.New("unsupported strategy")

	// ErrAPIKeyRequired indicates that an API key is required but not provided
	ErrAPIKeyRequired = errors.New("API key required")

	// ErrCapabilityFailed indicates an injected AI capability call failed.
	// Cascades treat this as non-fatal and keep their deterministic result.
	ErrCapabilityFailed = errors.New("capability failed")
)

// NotFoundError represents an error when a resource is not found
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError represents a template or input validation failure.
// Loading a malformed template surfaces one of these; it is fatal to the
// load operation and never retried.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// StrategyError represents an unknown or unimplemented computed-formula
// strategy. It is fatal and not retried.
type StrategyError struct {
	Strategy    string
	TargetField string
}

// Error implements the error interface
func (e *StrategyError) Error() string {
	if e.TargetField != "" {
		return fmt.Sprintf("unsupported formula strategy %q for field %s", e.Strategy, e.TargetField)
	}
	return fmt.Sprintf("unsupported formula strategy %q", e.Strategy)
}

// Is implements errors.Is support
func (e *StrategyError) Is(target error) bool {
	return target == ErrUnsupportedStrategy
}

// NewStrategyError creates a new StrategyError
func NewStrategyError(strategy, targetField string) *StrategyError {
	return &StrategyError{Strategy: strategy, TargetField: targetField}
}

// CapabilityError represents a failure of an externally injected AI
// capability (completion or embedding). Call sites within the cascades log
// these and fall back to the deterministic result.
type CapabilityError struct {
	Capability string // "completion", "embedding"
	Message    string
	Err        error
}

// Error implements the error interface
func (e *CapabilityError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s capability failed: %s", e.Capability, e.Message)
	}
	return fmt.Sprintf("%s capability failed: %v", e.Capability, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *CapabilityError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *CapabilityError) Is(target error) bool {
	return target == ErrCapabilityFailed
}

// NewCapabilityError creates a new CapabilityError
func NewCapabilityError(capability, message string, err error) *CapabilityError {
	return &CapabilityError{Capability: capability, Message: message, Err: err}
}

// ConfigError represents a configuration error
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{
		Component: component,
		Message:   message,
		Err:       err,
	}
}

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "json", "yaml", "csv", etc.
	File    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError
func NewParseError(format, file, message string, err error) *ParseError {
	return &ParseError{
		Format:  format,
		File:    file,
		Message: message,
		Err:     err,
	}
}

// IOError represents an error during I/O operations
type IOError struct {
	Operation string // "read", "write", "create", "delete", "lock"
	Path      string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("IO error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError creates a new IOError
func NewIOError(operation, path string, err error) *IOError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &IOError{
		Operation: operation,
		Path:      path,
		Message:   message,
		Err:       err,
	}
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsUnsupportedStrategy checks if an error is an unsupported strategy error
func IsUnsupportedStrategy(err error) bool {
	return errors.Is(err, ErrUnsupportedStrategy)
}

// IsCapabilityFailure checks if an error came from an injected AI capability
func IsCapabilityFailure(err error) bool {
	return errors.Is(err, ErrCapabilityFailed)
}

// Helper wrapping functions for common patterns

// WrapValidation wraps an error as a ValidationError
func WrapValidation(field string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Field: field, Message: err.Error()}
}

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewIOError(operation, path, err)
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, err.Error(), err)
}

// WrapCapability wraps an error as a CapabilityError
func WrapCapability(capability string, err error) error {
	if err == nil {
		return nil
	}
	return NewCapabilityError(capability, "", err)
}
