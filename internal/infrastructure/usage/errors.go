package usage

import "errors"

// Sentinel errors for the usage writer. Errors carrying extra context
// wrap one of these, so callers match with errors.Is.
var (
	// ErrDisabled reports that the writer is switched off in config.
	// Treated as "run without usage recording", not as a failure.
	ErrDisabled = errors.New("usage: disabled in configuration")

	// ErrConnectionFailed reports that the initial connection could not
	// be verified.
	ErrConnectionFailed = errors.New("usage: connection failed")

	// ErrNotConnected reports an operation attempted after Close or
	// before a successful Connect.
	ErrNotConnected = errors.New("usage: not connected")
)
