package proto

import (
	"errors"
	"fmt"
)

var (
	// ErrFieldNotFound is returned when no field has the requested abbreviation.
	ErrFieldNotFound = errors.New("proto: field not found")

	// ErrTooManyItems is returned once a tree holds its configured maximum
	// number of items.
	ErrTooManyItems = errors.New("proto: too many items in tree")
)

// RegistrationError reports a descriptor whose declaration does not agree
// with its category. It is raised as a panic from Register.
type RegistrationError struct {
	Abbrev string
	Reason string
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("proto: invalid registration of %q: %s", e.Abbrev, e.Reason)
}

// ContractError reports misuse of the tree or registry API, such as an
// unknown field ID or a category that cannot be decoded from wire bytes.
// It is raised as a panic.
type ContractError struct {
	Op     string
	Field  string
	Detail string
}

func (e *ContractError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("proto: %s: %s", e.Op, e.Detail)
	}
	return fmt.Sprintf("proto: %s %s: %s", e.Op, e.Field, e.Detail)
}

func registrationFailure(abbrev, format string, args ...any) {
	panic(&RegistrationError{Abbrev: abbrev, Reason: fmt.Sprintf(format, args...)})
}

func contractViolation(op, field, format string, args ...any) {
	panic(&ContractError{Op: op, Field: field, Detail: fmt.Sprintf(format, args...)})
}
