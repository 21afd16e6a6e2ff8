// Package domain defines the core types and errors shared across the platform.
package domain

import "fmt"

// ValidationError indicates invalid or missing user input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ProviderError indicates an upstream market-data API error or rate limit.
type ProviderError struct {
	Message string
}

func (e *ProviderError) Error() string { return e.Message }

// GenerationError indicates the model produced no extractable SQL.
type GenerationError struct {
	Message string
}

func (e *GenerationError) Error() string { return e.Message }

// QueryError indicates a query execution terminated in a failed state.
// Reason carries the engine-supplied failure reason.
type QueryError struct {
	Reason string
}

func (e *QueryError) Error() string { return fmt.Sprintf("query failed: %s", e.Reason) }

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrProvider creates a ProviderError with a formatted message.
func ErrProvider(format string, args ...interface{}) *ProviderError {
	return &ProviderError{Message: fmt.Sprintf(format, args...)}
}

// ErrGeneration creates a GenerationError with a formatted message.
func ErrGeneration(format string, args ...interface{}) *GenerationError {
	return &GenerationError{Message: fmt.Sprintf(format, args...)}
}

// ErrQuery creates a QueryError with the engine's failure reason.
func ErrQuery(reason string) *QueryError {
	return &QueryError{Reason: reason}
}
