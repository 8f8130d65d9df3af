package types

import "fmt"

// ParseError means an AI response did not have the expected shape.
type ParseError struct {
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("parse error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("parse error: %s", e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// ExternalServiceError means a search or AI API failed after all retries.
type ExternalServiceError struct {
	Service string
	Cause   error
}

func (e *ExternalServiceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("external service error: %s: %v", e.Service, e.Cause)
	}
	return fmt.Sprintf("external service error: %s", e.Service)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Cause
}

// InsufficientResultsError means a stage produced fewer items than the run requires.
type InsufficientResultsError struct {
	Stage string
	Got   int
	Want  int
}

func (e *InsufficientResultsError) Error() string {
	return fmt.Sprintf("insufficient articles after %s: got %d, need at least %d", e.Stage, e.Got, e.Want)
}
