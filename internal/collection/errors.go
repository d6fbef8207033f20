package collection

import (
	"errors"
	"fmt"
)

// Operation names carried by OpError.
const (
	OpLoad   = "load"
	OpCreate = "create"
	OpUpdate = "update"
	OpToggle = "toggle"
	OpDelete = "delete"
	OpImport = "import"
)

// ErrReplaceUnsupported is returned by Replace on a store that cannot
// swap its whole collection.
var ErrReplaceUnsupported = errors.New("store does not support replace imports")

const reasonStale = "change saved but the list could not be refreshed"

var reasons = map[string]string{
	OpLoad:   "could not load tasks",
	OpCreate: "could not add task",
	OpUpdate: "could not update task",
	OpToggle: "could not toggle task",
	OpDelete: "could not delete task",
	OpImport: "could not import tasks",
}

// OpError is returned by every Collection operation that fails.
// Reason is a short message for the user; Err is the store's error.
type OpError struct {
	Op     string
	Reason string
	Err    error

	// Applied is set when the store accepted the change but the
	// refresh that followed failed, leaving the cache stale.
	Applied bool
}

func (e *OpError) Error() string {
	if e.Err == nil {
		return e.Reason
	}
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

func opError(op string, err error) error {
	reason := reasons[op]
	if reason == "" {
		reason = op + " failed"
	}
	return &OpError{Op: op, Reason: reason, Err: err}
}
