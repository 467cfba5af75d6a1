package model

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by invoice stores
var (
	ErrInvoiceNotFound = errors.New("invoice not found")
	ErrProfileNotFound = errors.New("profile not found")
)

// Error kinds used in logs and metrics labels
const (
	KindValidation          = "validation"
	KindUpstream            = "upstream"
	KindStructuredOutput    = "structured_output"
	KindUnrecognizedOutcome = "unrecognized_outcome"
	KindInternal            = "internal"
)

// ValidationError represents malformed or missing request input
type ValidationError struct {
	Field   string
	Value   interface{}
	Rule    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("validation failed on %s: %s (value=%v, rule=%s)", e.Field, e.Message, e.Value, e.Rule)
	}
	return fmt.Sprintf("validation failed on %s: %s (rule=%s)", e.Field, e.Message, e.Rule)
}

// NewValidationError creates a new validation error
func NewValidationError(field string, value interface{}, rule, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Rule:    rule,
		Message: message,
	}
}

// UpstreamError represents a failed round trip to the model service
type UpstreamError struct {
	Provider   string
	StatusCode int
	Cause      error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upstream %s failed with status %d: %v", e.Provider, e.StatusCode, e.Cause)
	}
	return fmt.Sprintf("upstream %s failed: %v", e.Provider, e.Cause)
}

func (e *UpstreamError) Unwrap() error {
	return e.Cause
}

// NewUpstreamError creates a new upstream error
func NewUpstreamError(provider string, statusCode int, cause error) *UpstreamError {
	return &UpstreamError{
		Provider:   provider,
		StatusCode: statusCode,
		Cause:      cause,
	}
}

// StructuredOutputError represents a function call whose arguments do not
// decode into the declared invoice shape
type StructuredOutputError struct {
	Function string
	Field    string
	Message  string
	Cause    error
}

func (e *StructuredOutputError) Error() string {
	field := e.Field
	if field == "" {
		field = "arguments"
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Function, field, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Function, field, e.Message)
}

func (e *StructuredOutputError) Unwrap() error {
	return e.Cause
}

// NewStructuredOutputError creates a new structured output error
func NewStructuredOutputError(function, field, message string, cause error) *StructuredOutputError {
	return &StructuredOutputError{
		Function: function,
		Field:    field,
		Message:  message,
		Cause:    cause,
	}
}

// UnrecognizedOutcomeError represents a model response that is neither a
// function call nor plain text
type UnrecognizedOutcomeError struct {
	Reason string
}

func (e *UnrecognizedOutcomeError) Error() string {
	return "unrecognized model outcome: " + e.Reason
}

// NewUnrecognizedOutcomeError creates a new unrecognized outcome error
func NewUnrecognizedOutcomeError(format string, args ...interface{}) *UnrecognizedOutcomeError {
	return &UnrecognizedOutcomeError{Reason: fmt.Sprintf(format, args...)}
}

// ErrorKind classifies err into one of the Kind* constants.
func ErrorKind(err error) string {
	var (
		validationErr   *ValidationError
		upstreamErr     *UpstreamError
		structuredErr   *StructuredOutputError
		unrecognizedErr *UnrecognizedOutcomeError
	)
	switch {
	case errors.As(err, &validationErr):
		return KindValidation
	case errors.As(err, &structuredErr):
		return KindStructuredOutput
	case errors.As(err, &unrecognizedErr):
		return KindUnrecognizedOutcome
	case errors.As(err, &upstreamErr):
		return KindUpstream
	default:
		return KindInternal
	}
}
