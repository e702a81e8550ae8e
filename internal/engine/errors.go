package engine

import (
	"errors"
	"fmt"
)

// ErrStopped is returned by Submit once the engine no longer accepts calls.
var ErrStopped = errors.New("engine stopped")

// RequestError describes a call that could not be decoded into an Operation.
// It never reaches the registry.
type RequestError struct {
	// Call is the requested call name.
	Call string

	// Unknown is set when no call with that name exists.
	Unknown bool

	// Err is the decoding failure, if any.
	Err error
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	if e.Unknown {
		return fmt.Sprintf("unknown call %q", e.Call)
	}
	return fmt.Sprintf("decode %s request: %v", e.Call, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// IsUnknownCall returns true if err names a call that does not exist.
// Uses errors.As to handle wrapped errors.
func IsUnknownCall(err error) bool {
	var re *RequestError
	if errors.As(err, &re) {
		return re.Unknown
	}
	return false
}

// IsRequestError returns true for any undecodable call.
func IsRequestError(err error) bool {
	var re *RequestError
	return errors.As(err, &re)
}
