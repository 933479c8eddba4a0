package models

import (
	"errors"
	"fmt"
)

// Error kinds. Every failure returned by the ledger wraps exactly one of these.
var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrUnauthorized    = errors.New("not authorized")
	ErrNotFound        = errors.New("not found")
	ErrAlreadyExists   = errors.New("already exists")
	ErrInvalidInput    = errors.New("invalid input")
	ErrNotAMember      = errors.New("not a member of the group")
	ErrStorageConflict = errors.New("storage conflict")
)

// ErrInvalidCode is returned when an invite code does not resolve to a group.
// It is a NotFound kind.
var ErrInvalidCode = fmt.Errorf("invalid invite code: %w", ErrNotFound)

// InputError describes which input constraint failed.
// It matches ErrInvalidInput under errors.Is.
type InputError struct {
	// Constraint is a stable machine-readable name, e.g. "percent_sum".
	Constraint string

	// MemberID is set when the failure concerns a single participant.
	MemberID string

	// Detail is a human-oriented explanation for logs and API clients.
	Detail string
}

func (e *InputError) Error() string {
	if e.MemberID != "" {
		return fmt.Sprintf("invalid input: %s (member %s): %s", e.Constraint, e.MemberID, e.Detail)
	}
	return fmt.Sprintf("invalid input: %s: %s", e.Constraint, e.Detail)
}

func (e *InputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewInputError builds an InputError not tied to a single participant.
func NewInputError(constraint, format string, args ...any) *InputError {
	return &InputError{Constraint: constraint, Detail: fmt.Sprintf(format, args...)}
}

// MemberError reports which user violated a membership requirement.
// It matches ErrNotAMember under errors.Is.
type MemberError struct {
	UserID string
	Role   string // "payer" or "participant"
}

func (e *MemberError) Error() string {
	return fmt.Sprintf("%s %s is not a member of the group", e.Role, e.UserID)
}

func (e *MemberError) Is(target error) bool {
	return target == ErrNotAMember
}
