package core

import (
	"fmt"
	"strings"

	"github.com/giantswarm/subproc/internal/sentinel"
)

// ErrNotPiped is returned by AwaitLine when the launch did not request
// piped stdio, so there are no streams to read lines from.
const ErrNotPiped = sentinel.Error("stdio is not piped")

// ErrAwaitTimeout is the fallback timeout error used by AwaitLine when the
// caller did not supply one of their own.
const ErrAwaitTimeout = sentinel.Error("timed out waiting for matching line")

// ErrEmptyPath is returned by Launch when no executable path is given.
const ErrEmptyPath = sentinel.Error("executable path must not be empty")

// LaunchError reports that the OS refused or failed to create the process.
// It always carries the underlying OS error; temporary directories have
// already been cleaned up by the time the caller sees it.
type LaunchError struct {
	Path string // executable that failed to launch
	Err  error  // underlying OS error
}

// Error implements the error interface.
func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying OS error for errors.Is/As matching.
func (e *LaunchError) Unwrap() error {
	return e.Err
}

// StreamTerminationError reports that a stream (or the process behind it)
// ended before AwaitLine found a match. Lines holds every complete line
// seen before termination, in order, to aid troubleshooting; Err carries
// the underlying cause when one is known (e.g. a non-zero exit).
type StreamTerminationError struct {
	Lines []string
	Err   error
}

// Error implements the error interface. The collected lines are included
// in the message because the caller usually has no other way to see what
// the child printed before dying.
func (e *StreamTerminationError) Error() string {
	var b strings.Builder
	b.WriteString("stream ended before a matching line")
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if len(e.Lines) > 0 {
		fmt.Fprintf(&b, "\noutput so far (%d lines):\n\t%s", len(e.Lines), strings.Join(e.Lines, "\n\t"))
	}
	return b.String()
}

// Unwrap returns the underlying cause for errors.Is/As matching.
func (e *StreamTerminationError) Unwrap() error {
	return e.Err
}
