package service

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies failures of the duplicate resolution operations.
// Every mutating operation either fully applies or fails with one of these;
// there is no partially-applied outcome.
type ErrorCategory string

const (
	CategoryPermissionDenied ErrorCategory = "permission_denied"
	CategoryNotFound         ErrorCategory = "not_found"
	CategoryInvalidArgument  ErrorCategory = "invalid_argument"
	CategoryConflict         ErrorCategory = "conflict"
	CategoryStorageFailure   ErrorCategory = "storage_failure"
)

// Error is a categorized operation failure with an operator-facing message
// and an optional remediation hint. The wrapped cause carries raw storage
// detail for logs; it is never surfaced to end users.
type Error struct {
	Category ErrorCategory `json:"category"`
	Message  string        `json:"message"`
	Hint     string        `json:"hint,omitempty"`
	cause    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Category, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.cause
}

func permissionDenied(message string) *Error {
	return &Error{
		Category: CategoryPermissionDenied,
		Message:  message,
		Hint:     "duplicate review requires an admin, reviewer, or super_admin role",
	}
}

func notFound(message string) *Error {
	return &Error{Category: CategoryNotFound, Message: message}
}

func invalidArgument(message string) *Error {
	return &Error{Category: CategoryInvalidArgument, Message: message}
}

func conflict(message, hint string) *Error {
	return &Error{Category: CategoryConflict, Message: message, Hint: hint}
}

func storageFailure(message string, cause error) *Error {
	return &Error{
		Category: CategoryStorageFailure,
		Message:  message,
		Hint:     "the transaction was rolled back; retry once the store is healthy",
		cause:    cause,
	}
}

// CategoryOf extracts the category from an operation error. Uncategorized
// errors report CategoryStorageFailure, the conservative default for
// infrastructure faults.
func CategoryOf(err error) ErrorCategory {
	var opErr *Error
	if errors.As(err, &opErr) {
		return opErr.Category
	}
	return CategoryStorageFailure
}

// IsCategory reports whether err carries the given category.
func IsCategory(err error, category ErrorCategory) bool {
	return err != nil && CategoryOf(err) == category
}
