package mailcow

import (
	"errors"
	"fmt"
)

// ErrNotFound reports a mailbox Mailcow does not know about.
var ErrNotFound = errors.New("mailbox not found")

// UpstreamError describes a failed Mailcow API call with enough context for
// operator diagnosis. The API key never appears in it.
type UpstreamError struct {
	Op     string
	Target string
	Status int
	Detail string
	Cause  error
}

func (e *UpstreamError) Error() string {
	msg := fmt.Sprintf("mailcow %s (%s)", e.Op, e.Target)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s: status %d", msg, e.Status)
	}
	if e.Detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Detail)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *UpstreamError) Unwrap() error {
	return e.Cause
}
