package service

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is wrapped by every ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrNotReady is returned when a question is asked before the
	// conversation producer was set up for the active video.
	ErrNotReady = errors.New("conversation is not ready for this video")
)

// ValidationError rejects caller input before any producer call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// ProducerError wraps a failed call to a remote collaborator.
type ProducerError struct {
	Op      string
	Locator string
	Err     error
}

func (e *ProducerError) Error() string {
	return fmt.Sprintf("%s failed for %s: %v", e.Op, e.Locator, e.Err)
}

func (e *ProducerError) Unwrap() error {
	return e.Err
}

// Outcome is a finished producer call together with the locator it was
// started for. Attribution checks compare Locator with the active video.
type Outcome[T any] struct {
	Locator string
	Value   T
	Err     error
}
