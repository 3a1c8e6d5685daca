package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when an entity is required to exist and does not, or when the caller
	// does not own it.
	ErrNotFound = errors.New("entity was not found")

	// ErrConflict is returned when a unique constraint (email, username, slug) would be violated.
	ErrConflict = errors.New("entity already exists")

	// ErrInvalidCredentials is returned when a password does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnauthenticated is returned when a token is missing, tampered with or expired.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrEventInactive is returned when joining a soft-deleted event.
	ErrEventInactive = errors.New("event is not active")

	// ErrEventFull is returned when joining an event that reached its capacity.
	ErrEventFull = errors.New("event is full")

	// ErrAlreadyAttending is returned on a repeated join.
	ErrAlreadyAttending = errors.New("user already attends the event")

	// ErrNotAttending is returned when leaving an event the user does not attend.
	ErrNotAttending = errors.New("user does not attend the event")

	// ErrCapacityBelowAttendance is returned when the capacity would drop below the current attendees.
	ErrCapacityBelowAttendance = errors.New("max attendees lower than current attendees")
)

// FieldError describes one invalid input field.
type FieldError struct {
	// Field is the input name of the field.
	Field string `json:"field"`

	// Rule is the violated rule (required, email, min, ...).
	Rule string `json:"rule"`

	// Param is the rule parameter, if any.
	Param string `json:"param,omitempty"`
}

// ValidationError is returned when the input of a use-case is malformed.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = fmt.Sprintf("%s: %s", f.Field, f.Rule)
	}
	return "invalid input: " + strings.Join(parts, ", ")
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, rule string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Rule: rule}}}
}
