package draftloop

import (
	"errors"
	"fmt"
)

// ErrRoundLimit is returned by Run when the configured round cap is reached
// before a successful save.
var ErrRoundLimit = errors.New("round limit reached before the document was saved")

// ErrInputClosed is returned by Run when the input source is exhausted
// before a successful save.
var ErrInputClosed = errors.New("input source closed before the document was saved")

// ErrSessionFinished is returned by Run on a session that already halted.
var ErrSessionFinished = errors.New("session already finished")

// ServiceUnavailableError wraps a failed or timed-out reasoning call.
// The decision round commits nothing to history when this occurs; the
// session fails with no save guaranteed.
type ServiceUnavailableError struct {
	Cause error
}

func (e *ServiceUnavailableError) Error() string {
	return fmt.Sprintf("reasoning service unavailable: %v", e.Cause)
}

func (e *ServiceUnavailableError) Unwrap() error {
	return e.Cause
}

// UnknownActionError reports an assistant request naming an action that is
// not in the registry. This is a contract violation between the directive
// and the model, not a recoverable condition.
type UnknownActionError struct {
	Name string
}

func (e *UnknownActionError) Error() string {
	return fmt.Sprintf("unknown action %q requested", e.Name)
}

// MissingArgumentError reports a required argument that was absent from an
// action request.
type MissingArgumentError struct {
	Action   string
	Argument string
}

func (e *MissingArgumentError) Error() string {
	return fmt.Sprintf("action %q called without required argument %q", e.Action, e.Argument)
}
