package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrQuizNotFound indicates the quiz could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuestionNotFound indicates a submitted question ID is invalid.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrOptionNotFound indicates a selected option index is out of range.
	ErrOptionNotFound = errors.New("option not found")
	// ErrUserNotFound is returned when a winner's account is missing.
	ErrUserNotFound = errors.New("user not found")
	// ErrAttemptNotFound is returned when an attempt row is missing.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrSessionNotFound is returned when no attempt session is running for the user.
	ErrSessionNotFound = errors.New("attempt session not found")
	// ErrAttemptExists is returned when a user already submitted the quiz.
	ErrAttemptExists = errors.New("attempt already submitted for this quiz")
	// ErrAttemptExpired is returned when an answer arrives after the deadline.
	ErrAttemptExpired = errors.New("attempt time limit exceeded")
	// ErrAlreadyAllocated is returned once a quiz's points have been distributed.
	ErrAlreadyAllocated = errors.New("points already allocated for this quiz")
	// ErrQuizBusy is returned when another evaluation or allocation holds the quiz.
	ErrQuizBusy = errors.New("quiz is being processed by another request")

	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrStorage matches every *StorageError.
	ErrStorage = errors.New("storage unavailable")
)

// ValidationError reports bad input. Nothing has been written when it is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// StorageError wraps a failure of the persistence layer.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}
