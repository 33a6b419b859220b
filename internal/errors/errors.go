package errors

import "fmt"

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// AppError carries an error code, an operator-facing message and a
// user-facing message.
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

// NewValidationError covers malformed user input, e.g. a non-numeric price.
// The flow step is re-prompted, never aborted.
func NewValidationError(msg string) *AppError {
	return &AppError{
		Code:        "E100",
		Message:     msg,
		UserMessage: fmt.Sprintf("⚠️ %s", msg),
		Severity:    SeverityLow,
		Retryable:   false,
		cause:       nil,
	}
}

// NewFeedError covers price feed failures: symbol lookups, tick fetches,
// connectivity probes.
func NewFeedError(op string, cause error) *AppError {
	return &AppError{
		Code:        "E200",
		Message:     fmt.Sprintf("price feed error during %s", op),
		UserMessage: "The price feed is temporarily unavailable.",
		Severity:    SeverityMedium,
		Retryable:   true,
		cause:       cause,
	}
}

// NewNotifyError covers Telegram delivery failures. They are logged and
// swallowed, never retried, and never block store mutation.
func NewNotifyError(cause error) *AppError {
	var underlyingMsg string
	if cause != nil {
		underlyingMsg = cause.Error()
	}

	return &AppError{
		Code:        "E300",
		Message:     fmt.Sprintf("notification delivery failed: %s", underlyingMsg),
		Severity:    SeverityMedium,
		Retryable:   false,
		cause:       cause,
	}
}

// NewStateError covers events referencing a flow that is absent or not in
// the state the event expects.
func NewStateError(msg string) *AppError {
	return &AppError{
		Code:        "E400",
		Message:     msg,
		UserMessage: "This action is not possible right now.",
		Severity:    SeverityLow,
		Retryable:   false,
		cause:       nil,
	}
}
