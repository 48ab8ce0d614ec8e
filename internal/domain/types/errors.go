package types

import (
	"errors"
	"fmt"
)

// Sentinel kinds shared by the service, engine and transport layers.
var (
	// ErrValidation marks client input that failed validation.
	ErrValidation = errors.New("invalid id; must be a positive integer")
	// ErrNotFound marks an id-scoped lookup that matched nothing.
	ErrNotFound = errors.New("not found")
	// ErrDataSource marks a failure of the row source (connect, query, scan).
	ErrDataSource = errors.New("data source failure")
)

// Error attaches an operation name and a kind to an underlying cause.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Kind != nil && e.Err != nil:
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	case e.Kind != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return e.Op
	}
}

// Is matches against the kind so errors.Is(err, ErrNotFound) works through wrapping.
func (e *Error) Is(target error) bool {
	return e.Kind != nil && errors.Is(e.Kind, target)
}

func (e *Error) Unwrap() error { return e.Err }

// NewKind returns an error of the given kind without a cause.
func NewKind(op string, kind error) error {
	return &Error{Op: op, Kind: kind}
}

// Wrap annotates err with op, keeping whatever kind it already carries.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// WrapKind annotates err with op and kind.
func WrapKind(op string, kind, err error) error {
	if err == nil {
		return NewKind(op, kind)
	}
	return &Error{Op: op, Kind: kind, Err: err}
}

// KindOf returns the first taxonomy kind found in err's chain, or nil.
func KindOf(err error) error {
	for _, kind := range []error{ErrValidation, ErrNotFound, ErrDataSource} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
