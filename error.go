package datapipe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel errors returned (wrapped) by tape reads and position handling.
var (
	// ErrTapeExhausted indicates a read past the end of the tape: the
	// recording pipeline wrote fewer entries than the reloading one reads.
	ErrTapeExhausted = errors.New("position tape exhausted")

	// ErrTapeType indicates a tape entry of an unexpected type: the
	// recording and reloading pipelines are not structurally identical.
	ErrTapeType = errors.New("position tape type mismatch")

	// ErrPositionMismatch indicates recorded state that is inconsistent
	// with the reloading source's configuration, such as a repeat count
	// exceeding the configured bound. Always a hard failure, regardless
	// of Mode.
	ErrPositionMismatch = errors.New("recorded position does not match source configuration")

	// ErrPositionUnsupported indicates a source that cannot serialize its
	// exact position. A hard failure under Strict; skipped under BestEffort.
	ErrPositionUnsupported = errors.New("source cannot serialize exact position")

	// ErrBroken indicates a pipeline whose root returned an error from a
	// previous Next call. Reset clears it.
	ErrBroken = errors.New("pipeline is broken")
)

// Error provides rich context about a pipeline failure. Path holds the
// names of the stages the failure crossed, outermost first, so a failure
// deep inside a nested chain is locatable.
//
// Sources originate an *Error for failures of their own (tape mismatches,
// unsupported positions, failed transforms); runtime errors from an inner
// source's Next pass through decorators without modification, so errors.Is
// and errors.As observe the original error either way.
type Error struct {
	Path      []Name
	Err       error
	Timestamp time.Time
	Timeout   bool
	Canceled  bool
}

// Error implements the error interface.
func (e *Error) Error() string {
	location := strings.Join(e.Path, " -> ")
	if e.Timeout {
		return fmt.Sprintf("source %q timed out: %v", location, e.Err)
	}
	if e.Canceled {
		return fmt.Sprintf("source %q canceled: %v", location, e.Err)
	}
	return fmt.Sprintf("source %q failed: %v", location, e.Err)
}

// Unwrap returns the underlying error, supporting errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsTimeout reports whether the failure was caused by a timeout.
func (e *Error) IsTimeout() bool {
	return e.Timeout || errors.Is(e.Err, context.DeadlineExceeded)
}

// IsCanceled reports whether the failure was caused by cancellation.
func (e *Error) IsCanceled() bool {
	return e.Canceled || errors.Is(e.Err, context.Canceled)
}

// newError wraps err as this source's own failure.
func newError(name Name, err error) *Error {
	return &Error{
		Path:      []Name{name},
		Err:       err,
		Timestamp: time.Now(),
		Timeout:   errors.Is(err, context.DeadlineExceeded),
		Canceled:  errors.Is(err, context.Canceled),
	}
}

// positionErr attributes a position-serialization failure to name. An
// *Error bubbling up from an inner source gets name prepended to its
// path; anything else is wrapped fresh.
func positionErr(name Name, err error) error {
	var pipeErr *Error
	if errors.As(err, &pipeErr) {
		pipeErr.Path = append([]Name{name}, pipeErr.Path...)
		return pipeErr
	}
	return newError(name, err)
}
