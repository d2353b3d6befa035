package api

import (
	"errors"
	"fmt"
)

// Error is the uniform failure of any call to the FiftyOne API: a non-200
// status or a transport/decode failure.
type Error struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: API request failed with status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: error communicating with API: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsError reports whether err is, or wraps, an *Error.
func IsError(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr)
}
