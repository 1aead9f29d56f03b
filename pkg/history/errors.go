package history

import "fmt"

// UsageError reports builder misuse that is detectable without touching the
// store, such as nested or-groups or an ordering key without a direction.
type UsageError struct {
	Message string
}

// Error implements the error interface.
func (e *UsageError) Error() string {
	return e.Message
}

// NewUsageError creates a new UsageError.
func NewUsageError(format string, args ...any) *UsageError {
	return &UsageError{Message: fmt.Sprintf(format, args...)}
}

// InvalidArgumentError reports a null, empty or malformed caller input.
type InvalidArgumentError struct {
	Parameter string // Name of the offending parameter
	Message   string
}

// Error implements the error interface.
func (e *InvalidArgumentError) Error() string {
	return e.Message
}

// NewInvalidArgumentError creates a new InvalidArgumentError.
func NewInvalidArgumentError(parameter, message string) *InvalidArgumentError {
	return &InvalidArgumentError{
		Parameter: parameter,
		Message:   message,
	}
}

// AmbiguousResultError is returned when a single result was requested but
// more than one entity matched.
type AmbiguousResultError struct {
	Count int
}

// Error implements the error interface.
func (e *AmbiguousResultError) Error() string {
	return fmt.Sprintf("query return %d results instead of max 1", e.Count)
}

// NewAmbiguousResultError creates a new AmbiguousResultError.
func NewAmbiguousResultError(count int) *AmbiguousResultError {
	return &AmbiguousResultError{Count: count}
}

// ExecutionError wraps an opaque failure from the underlying store.
type ExecutionError struct {
	Backend   string // Store backend ("sqlite", "memory")
	Operation string // Operation that failed ("query", "count", "raw_query", ...)
	Cause     error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// NewExecutionError creates a new ExecutionError.
func NewExecutionError(backend, operation string, cause error) *ExecutionError {
	return &ExecutionError{
		Backend:   backend,
		Operation: operation,
		Cause:     cause,
	}
}

// PolicyError reports a failure to load or parse retention policy.
type PolicyError struct {
	Source string // Policy source ("file:<path>", "memory")
	Cause  error
}

// Error implements the error interface.
func (e *PolicyError) Error() string {
	return fmt.Sprintf("policy error [source=%s]: %v", e.Source, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *PolicyError) Unwrap() error {
	return e.Cause
}

// NewPolicyError creates a new PolicyError.
func NewPolicyError(source string, cause error) *PolicyError {
	return &PolicyError{
		Source: source,
		Cause:  cause,
	}
}
