package rowsource

import "errors"

// Sentinel kinds for row source errors.
var (
	ErrNoOpener          = errors.New("row source not configured")
	ErrUnknownProjection = errors.New("unknown projection")
	ErrSessionClosed     = errors.New("session closed")
)
