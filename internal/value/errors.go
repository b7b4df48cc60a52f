package value

import (
	"errors"
	"fmt"
)

// InvalidValueError reports a Go value that cannot be stored in a cell,
// or bytes that do not decode to one.
type InvalidValueError struct {
	Value  any
	Reason string
}

func (e *InvalidValueError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("invalid value: %s", e.Reason)
	}
	return fmt.Sprintf("invalid value %v (%T): %s", e.Value, e.Value, e.Reason)
}

// IsInvalidValue returns true if err is or wraps an InvalidValueError.
func IsInvalidValue(err error) bool {
	var ie *InvalidValueError
	return errors.As(err, &ie)
}
