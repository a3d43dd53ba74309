package apperrors

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed input on a single field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Message
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

// NotFoundError reports a missing booking, room or guest.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// ConflictError reports an overlapping booking or a lost update.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return "conflict: " + e.Message
}

// DomainError reports an illegal state transition.
type DomainError struct {
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func Validation(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func NotFound(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

func Conflict(format string, args ...any) error {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

func Domain(format string, args ...any) error {
	return &DomainError{Message: fmt.Sprintf(format, args...)}
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

func IsDomain(err error) bool {
	var target *DomainError
	return errors.As(err, &target)
}

// IsClient reports whether err belongs to the caller-facing taxonomy.
// Everything else is treated as internal.
func IsClient(err error) bool {
	return IsValidation(err) || IsNotFound(err) || IsConflict(err) || IsDomain(err)
}
