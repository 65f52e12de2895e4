package ftypes

import (
	"errors"
	"fmt"
)

var (
	// ErrSyntax indicates text that cannot be read as the requested category.
	ErrSyntax = errors.New("ftypes: invalid syntax")

	// ErrOverflow indicates a numeric literal above the category's range.
	ErrOverflow = errors.New("ftypes: value too large")

	// ErrUnderflow indicates a numeric literal below the category's range.
	ErrUnderflow = errors.New("ftypes: value too small")

	// ErrUnsupported indicates a category that cannot be built from text.
	ErrUnsupported = errors.New("ftypes: category cannot be parsed from text")

	// ErrSliceRange indicates a slice that does not fit inside the value.
	ErrSliceRange = errors.New("ftypes: slice out of range")
)

// ParseError is returned by ParseFromText when text does not describe a
// valid value of the requested category.
type ParseError struct {
	Type Enum
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %q is not a valid %s", e.Err, e.Text, Lookup(e.Type).Pretty)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ContractError is the panic value raised when an operation is invoked that
// the value's category does not implement, or when values of incompatible
// categories are combined. It always indicates a bug in the caller.
type ContractError struct {
	Op     string
	Type   Enum
	Detail string
}

func (e *ContractError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("ftypes: %s on %s: %s", e.Op, Lookup(e.Type).Name, e.Detail)
	}
	return fmt.Sprintf("ftypes: %s not supported by %s", e.Op, Lookup(e.Type).Name)
}

func contractViolation(op string, t Enum, detail string) {
	panic(&ContractError{Op: op, Type: t, Detail: detail})
}

func parseFailure(t Enum, text string, err error) error {
	return &ParseError{Type: t, Text: text, Err: err}
}
