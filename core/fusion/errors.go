package fusion

import (
	"errors"
	"fmt"
)

// Reason is a machine-readable failure code for fusion jobs.
type Reason string

const (
	ReasonInputMissing      Reason = "input_missing"
	ReasonInputMismatch     Reason = "input_mismatch"
	ReasonEncodeFailure     Reason = "encode_failure"
	ReasonUnsupportedLayout Reason = "unsupported_layout"
)

// Stage names the pipeline phase a failure occurred in, so a retry can be
// attempted with adjusted parameters (e.g. forcing transcode after a copy
// failure).
type Stage string

const (
	StageProbe   Stage = "probe"
	StageCompose Stage = "compose"
	StageEncode  Stage = "encode"
)

// Error is a fusion failure with its reason code and pipeline stage.
type Error struct {
	Code  Reason
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (%s): %v", e.Code, e.Stage, e.Err)
	}
	return fmt.Sprintf("%s (%s)", e.Code, e.Stage)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a fusion Error.
func NewError(code Reason, stage Stage, format string, args ...any) *Error {
	return &Error{Code: code, Stage: stage, Err: fmt.Errorf(format, args...)}
}

// ReasonOf extracts the reason code from an error chain.
func ReasonOf(err error) Reason {
	var fusionErr *Error
	if errors.As(err, &fusionErr) {
		return fusionErr.Code
	}
	return ""
}
