package errors

import "maps"

// ErrorCategory represents the broad category of an error for classification and routing.
type ErrorCategory string

const (
	// CategoryConfig represents user-facing configuration and input errors.
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"
	CategoryNotFound   ErrorCategory = "not_found"

	// CategoryPath represents workspace boundary violations (path traversal).
	CategoryPath ErrorCategory = "path"

	// CategoryTemplate and CategoryRender represent regeneration failures.
	CategoryTemplate ErrorCategory = "template"
	CategoryRender   ErrorCategory = "render"

	// CategoryFileSystem represents storage failures during workspace
	// creation, mutation, or deletion.
	CategoryFileSystem ErrorCategory = "filesystem"

	// CategorySession represents session registry failures.
	CategorySession ErrorCategory = "session"

	// CategoryDaemon and CategoryInternal represent runtime and
	// infrastructure errors.
	CategoryDaemon   ErrorCategory = "daemon"
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates the impact level of an error.
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops execution completely
	SeverityError   ErrorSeverity = "error"   // Fails the current operation
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded functionality
	SeverityInfo    ErrorSeverity = "info"    // Informational, no impact
)

// RetryStrategy indicates how an error should be handled in retry scenarios.
type RetryStrategy string

const (
	RetryNever     RetryStrategy = "never"     // Permanent failure, don't retry
	RetryNextSweep RetryStrategy = "sweep"     // Retried by the next sweeper pass
	RetryImmediate RetryStrategy = "immediate" // Retry immediately
	RetryUser      RetryStrategy = "user"      // Requires user intervention (fix the input)
)

// ErrorContext provides structured context for errors.
type ErrorContext map[string]any

// Set adds or updates a context value.
func (c ErrorContext) Set(key string, value any) ErrorContext {
	if c == nil {
		c = make(ErrorContext)
	}
	c[key] = value
	return c
}

// Get retrieves a context value.
func (c ErrorContext) Get(key string) (any, bool) {
	if c == nil {
		return nil, false
	}
	value, exists := c[key]
	return value, exists
}

// GetString retrieves a string context value.
func (c ErrorContext) GetString(key string) (string, bool) {
	value, exists := c.Get(key)
	if !exists {
		return "", false
	}
	s, ok := value.(string)
	return s, ok
}

// Merge combines two contexts, with the other context taking precedence.
func (c ErrorContext) Merge(other ErrorContext) ErrorContext {
	if c == nil && other == nil {
		return nil
	}
	merged := make(ErrorContext, len(c)+len(other))
	maps.Copy(merged, c)
	maps.Copy(merged, other)
	return merged
}
