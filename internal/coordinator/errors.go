package coordinator

import "fmt"

// UpdateFailedError reports a refresh cycle that produced no snapshot. The
// previously published snapshot stays in place.
type UpdateFailedError struct {
	Err error
}

func (e *UpdateFailedError) Error() string {
	return fmt.Sprintf("error communicating with API: %v", e.Err)
}

func (e *UpdateFailedError) Unwrap() error {
	return e.Err
}
