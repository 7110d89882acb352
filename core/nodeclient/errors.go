package nodeclient

import (
	"errors"
	"fmt"
)

// ReasonUnreachable marks a node that did not answer within the command
// timeout. Commands are never blindly retried against such a node: a
// duplicate start could desynchronize an already-running capture.
const ReasonUnreachable = "unreachable"

// RequestError is a failed node command.
type RequestError struct {
	Node        string
	Unreachable bool
	StatusCode  int
	// Reason is the node's machine-readable failure code, or
	// ReasonUnreachable when the node never answered.
	Reason string
	Err    error
}

func (e *RequestError) Error() string {
	if e.Unreachable {
		return fmt.Sprintf("node %s unreachable: %v", e.Node, e.Err)
	}
	return fmt.Sprintf("node %s returned status %d (%s): %v", e.Node, e.StatusCode, e.Reason, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// IsUnreachable reports whether the error means the node never answered.
func IsUnreachable(err error) bool {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Unreachable
	}
	return false
}

// ReasonOf extracts the node's failure reason from an error chain. Returns
// ReasonUnreachable for unanswered commands, empty for foreign errors.
func ReasonOf(err error) string {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		if reqErr.Unreachable {
			return ReasonUnreachable
		}
		return reqErr.Reason
	}
	return ""
}
