package tsaotun

import (
	"errors"
	"fmt"
)

// ErrUnknownCommand indicates that no handler is registered under the requested name.
var ErrUnknownCommand = errors.New("unknown command")

// ErrNullResource indicates an operation was given no target and none could be inferred.
var ErrNullResource = errors.New("no target resource")

// ErrInvalidArgument indicates a malformed call, such as a missing or mistyped argument.
var ErrInvalidArgument = errors.New("invalid argument")

// DispatchError represents a failure to resolve or run a named command.
type DispatchError struct {
	Command string
	Err     error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch %q: %v", e.Command, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// StreamError represents a failure while reading a daemon stream,
// such as a broken connection.
type StreamError struct {
	Mode Mode
	Err  error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("%s stream: %v", e.Mode, e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}
