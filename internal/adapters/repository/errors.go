package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrUnknownDriver = errors.New("unknown database driver")
	ErrEmptyDSN      = errors.New("database dsn must not be empty")
	ErrFilterColumn  = errors.New("filter column is not the projection key")
)
