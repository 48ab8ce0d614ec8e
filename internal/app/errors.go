package service

import "errors"

// Sentinel errors for this package.
var (
	ErrStart           = errors.New("service start failed")
	ErrUnknownResource = errors.New("unknown resource")
)
