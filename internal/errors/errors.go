package errors

import "fmt"

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// AppError is the application-level error envelope: a stable code for
// grouping, an operator-facing message, a user-facing message, and retry
// semantics.
type AppError struct {
	Code        string
	Message     string
	UserMessage string
	Severity    Severity
	Retryable   bool
	cause       error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}

	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.cause
}

func (e *AppError) Cause() error {
	return e.Unwrap()
}

// NewDirectoryError wraps a failure of the user directory store.
func NewDirectoryError(cause error) *AppError {
	var underlyingMsg string
	if cause != nil {
		underlyingMsg = cause.Error()
	}

	return &AppError{
		Code:        "E200",
		Message:     fmt.Sprintf("Directory error: %s", underlyingMsg),
		UserMessage: "Server problem. Please try again later.",
		Severity:    SeverityHigh,
		Retryable:   true,
		cause:       cause,
	}
}

// NewThreadCreationError wraps a failed topic creation. The whole inbound
// event may be retried by the caller; this layer never retries.
func NewThreadCreationError(cause error) *AppError {
	return &AppError{
		Code:        "E300",
		Message:     "Thread creation failed",
		UserMessage: "Server problem. Please try again later.",
		Severity:    SeverityMedium,
		Retryable:   true,
		cause:       cause,
	}
}

// NewProviderError wraps a transport failure during message dispatch.
func NewProviderError(cause error) *AppError {
	var underlyingMsg string
	if cause != nil {
		underlyingMsg = cause.Error()
	}

	return &AppError{
		Code:        "E310",
		Message:     fmt.Sprintf("Provider error: %s", underlyingMsg),
		UserMessage: "Sending failed. Please try again later.",
		Severity:    SeverityMedium,
		Retryable:   true,
		cause:       cause,
	}
}

// NewRateLimitError reports that the sender exceeded the flood limit.
func NewRateLimitError(retryAfter int) *AppError {
	return &AppError{
		Code:        "E500",
		Message:     fmt.Sprintf("Rate limit exceeded: retry after %d seconds", retryAfter),
		UserMessage: fmt.Sprintf("Too many messages. Please wait %d seconds.", retryAfter),
		Severity:    SeverityLow,
		Retryable:   false,
		cause:       nil,
	}
}
