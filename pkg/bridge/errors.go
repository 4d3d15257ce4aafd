package bridge

import (
	"errors"
	"fmt"
)

// ErrNotFound reports an unknown user or group id.
var ErrNotFound = errors.New("resource not found")

// ValidationError reports a SCIM payload the bridge refuses locally, before
// any Mailcow call is made.
type ValidationError struct {
	Detail string
}

func (e *ValidationError) Error() string {
	return e.Detail
}

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Detail: fmt.Sprintf(format, args...)}
}
