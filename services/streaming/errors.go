package streaming

import "errors"

var (
	// ErrInvalidRange reports a malformed or unsatisfiable Range header.
	// It is a client error and never logged as a system fault.
	ErrInvalidRange = errors.New("invalid byte range")

	// ErrSessionStarted reports an operation that is only valid before a
	// session has started, such as attaching a destination.
	ErrSessionStarted = errors.New("session already started")

	// ErrCanceled is the exit outcome of a session torn down on purpose:
	// client disconnect or an explicit Cancel. It is expected termination,
	// not a failure.
	ErrCanceled = errors.New("stream canceled")
)
