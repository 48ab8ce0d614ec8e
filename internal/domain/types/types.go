// Package types contains common types used across the application
package types

import (
	"strconv"
)

// ID identifies a stored entity. Valid ids are positive.
type ID int64

// ParseID parses a path parameter into an ID. Only ASCII digits are
// accepted, so signs and whitespace are validation errors, as is zero.
func ParseID(op, raw string) (ID, error) {
	if raw == "" {
		return 0, NewKind(op, ErrValidation)
	}
	for i := 0; i < len(raw); i++ {
		if raw[i] < '0' || raw[i] > '9' {
			return 0, NewKind(op, ErrValidation)
		}
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, WrapKind(op, ErrValidation, err)
	}
	if n <= 0 {
		return 0, NewKind(op, ErrValidation)
	}
	return ID(n), nil
}

// Valid reports whether id is positive.
func (id ID) Valid() bool { return id > 0 }
