package subproc

import "github.com/giantswarm/subproc/internal/core"

// Sentinel errors for error inspection with errors.Is.
// These are immutable constants safe for wrapped error chain comparison.
const (
	// ErrNotPiped is returned by WaitForLine when the launch did not
	// request piped stdio.
	ErrNotPiped = core.ErrNotPiped

	// ErrWaitTimeout is returned by WaitForLine when its deadline elapses
	// and the caller supplied no timeout error of their own.
	ErrWaitTimeout = core.ErrAwaitTimeout

	// ErrEmptyPath is returned by Launch when Options.Path is empty.
	ErrEmptyPath = core.ErrEmptyPath

	// ErrIntervalNotPositive is returned by WaitReady for a non-positive
	// poll interval.
	ErrIntervalNotPositive = core.ErrIntervalNotPositive

	// ErrTimeoutNotPositive is returned by WaitReady for a non-positive
	// timeout.
	ErrTimeoutNotPositive = core.ErrTimeoutNotPositive

	// ErrProcessExited is returned by WaitReady when the process exits
	// before becoming ready.
	ErrProcessExited = core.ErrProcessExited
)

// LaunchError reports that the OS refused or failed to create the process.
// It carries the underlying OS error; temp directories have already been
// cleaned up by the time the caller sees it. Match with errors.As.
type LaunchError = core.LaunchError

// StreamTerminationError reports that a stream or the process behind it
// ended before WaitForLine found a match. It carries every line collected
// before termination and the underlying cause when known. Match with
// errors.As.
type StreamTerminationError = core.StreamTerminationError
