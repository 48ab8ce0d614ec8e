package denorm

import "errors"

// Sentinel kinds for the fold. All of them indicate a schema/row-source
// mismatch rather than a client error.
var (
	ErrInvalidSchema    = errors.New("invalid projection schema")
	ErrRowWidth         = errors.New("row width does not match projection")
	ErrInvalidKey       = errors.New("identity column is not a positive integer")
	ErrInconsistentRow  = errors.New("scalar column disagrees with earlier row for the same entity")
	ErrMultipleEntities = errors.New("expected a single entity")
)
