package capture

import (
	"errors"
	"fmt"
)

// Reason is a machine-readable failure code carried on every terminal
// capture failure so operators and the coordinator never see a bare error
// string.
type Reason string

const (
	ReasonInvalidParameter Reason = "invalid_parameter"
	ReasonDeviceNotFound   Reason = "device_not_found"
	ReasonProcessExited    Reason = "process_exited"
	ReasonDesync           Reason = "desync"
)

// Error is a capture failure with its reason code.
type Error struct {
	Code Reason
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a capture Error with the given reason code.
func NewError(code Reason, format string, args ...any) *Error {
	return &Error{Code: code, Err: fmt.Errorf(format, args...)}
}

// ReasonOf extracts the reason code from an error chain. Returns an empty
// Reason for errors that did not originate in this package.
func ReasonOf(err error) Reason {
	var captureErr *Error
	if errors.As(err, &captureErr) {
		return captureErr.Code
	}
	return ""
}
