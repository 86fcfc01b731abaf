// Package shared contains common domain types, errors, and events that are
// used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation   = errors.New("validation error")
	ErrInvalidID    = errors.New("invalid ID")
	ErrInvalidInput = errors.New("invalid input")
	ErrEmptyValue   = errors.New("value cannot be empty")

	// State errors
	ErrInvalidState    = errors.New("invalid state")
	ErrStateTransition = errors.New("invalid state transition")
	ErrExpired         = errors.New("expired")

	// Authorization errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// Infrastructure errors
	ErrExternalService = errors.New("external service error")
	ErrTimeout         = errors.New("operation timeout")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "user", "invitation", "grade"
	Op      string // Operation that failed, e.g., "Create", "Accept"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// User domain errors
var (
	ErrUserNotFound      = NewDomainError("user", "Find", ErrNotFound, "user not found")
	ErrUserAlreadyExists = NewDomainError("user", "Create", ErrAlreadyExists, "user already exists")
	ErrInvalidRole       = NewDomainError("user", "Validate", ErrInvalidInput, "invalid role")
	ErrInvalidChatID     = NewDomainError("user", "Validate", ErrInvalidID, "invalid chat ID")
)

// School domain errors
var (
	ErrSchoolNotFound  = NewDomainError("school", "Find", ErrNotFound, "school not found")
	ErrClassNotFound   = NewDomainError("class", "Find", ErrNotFound, "class not found")
	ErrSubjectNotFound = NewDomainError("subject", "Find", ErrNotFound, "subject not found")
)

// Grade domain errors
var (
	ErrGradeNotFound     = NewDomainError("grade", "Find", ErrNotFound, "grade not found")
	ErrInvalidGradeValue = NewDomainError("grade", "Validate", ErrInvalidInput, "grade value out of range")
)

// Invitation domain errors
var (
	ErrInvitationNotFound   = NewDomainError("invitation", "Find", ErrNotFound, "invitation not found")
	ErrInvitationNotPending = NewDomainError("invitation", "Accept", ErrInvalidState, "invitation is no longer pending")
	ErrInvitationExpired    = NewDomainError("invitation", "Accept", ErrExpired, "invitation has expired")
	ErrMissingInvitationRef = NewDomainError("invitation", "Validate", ErrValidation, "missing reference for invitation type")
	ErrInvitationNotAllowed = NewDomainError("invitation", "Create", ErrForbidden, "not allowed to create this invitation")
	ErrInvitationLost       = NewDomainError("invitation", "Accept", ErrConcurrentModification, "invitation was modified concurrently")
)

// Policy domain errors
var (
	ErrPermissionDenied = NewDomainError("policy", "Check", ErrForbidden, "permission denied")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsForbidden checks if the error is a permission error.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue)
}

// IsInvalidState checks if the error is an invalid-state error.
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState) || errors.Is(err, ErrStateTransition)
}

// IsExpired checks if the error is an expiry error.
func IsExpired(err error) bool {
	return errors.Is(err, ErrExpired)
}
