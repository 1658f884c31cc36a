package scraper

import "fmt"

// ErrorType categorizes the ways a scraping task can fail
type ErrorType string

const (
	ErrorTypeStartFailed   ErrorType = "start_failed"
	ErrorTypePollTransient ErrorType = "poll_transient"
	ErrorTypePollExhausted ErrorType = "poll_exhausted"
	ErrorTypeTaskFailed    ErrorType = "task_failed"
)

// ScraperError represents a structured error from the scraping workflow
type ScraperError struct {
	Type    ErrorType
	Message string
	Cause   error
}

// Error implements the error interface
func (e *ScraperError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error unwrapping
func (e *ScraperError) Unwrap() error {
	return e.Cause
}

// IsRetryable returns true if polling will try again after this error
func (e *ScraperError) IsRetryable() bool {
	return e.Type == ErrorTypePollTransient
}

// IsFinal reports whether the error ended the polling session
func (e *ScraperError) IsFinal() bool {
	switch e.Type {
	case ErrorTypeStartFailed, ErrorTypePollExhausted, ErrorTypeTaskFailed:
		return true
	default:
		return false
	}
}

// UserMessage returns a user-friendly error message
func (e *ScraperError) UserMessage() string {
	switch e.Type {
	case ErrorTypeStartFailed:
		return fmt.Sprintf("Could not start scraping: %s", causeText(e))
	case ErrorTypePollTransient:
		return e.Message
	case ErrorTypePollExhausted:
		if e.Cause != nil {
			return fmt.Sprintf("%s: %v", e.Message, e.Cause)
		}
		return e.Message
	case ErrorTypeTaskFailed:
		return fmt.Sprintf("Scraping task failed: %s", e.Message)
	default:
		return e.Message
	}
}

func causeText(e *ScraperError) string {
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return e.Message
}

func newStartFailedError(cause error) *ScraperError {
	return &ScraperError{
		Type:    ErrorTypeStartFailed,
		Message: "start request failed",
		Cause:   cause,
	}
}

func newTransientError(cause error, attempt, max int) *ScraperError {
	return &ScraperError{
		Type:    ErrorTypePollTransient,
		Message: fmt.Sprintf("Temporary error: %v (attempt %d/%d)", cause, attempt, max),
		Cause:   cause,
	}
}

func newExhaustedError(cause error, max int) *ScraperError {
	return &ScraperError{
		Type:    ErrorTypePollExhausted,
		Message: fmt.Sprintf("Communication error after %d attempts", max),
		Cause:   cause,
	}
}

func newTaskFailedError(message string) *ScraperError {
	if message == "" {
		message = "backend reported ERROR"
	}
	return &ScraperError{
		Type:    ErrorTypeTaskFailed,
		Message: message,
	}
}
