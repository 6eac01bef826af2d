package subproc

import (
	"context"
	"log/slog"
	"regexp"
	"time"

	"github.com/giantswarm/subproc/internal/core"
)

// Stream identifies one of the child's piped output streams.
type Stream = core.Stream

// The two streams WaitForLine can attach to.
const (
	Stdout = core.Stdout
	Stderr = core.Stderr
)

// WaitForLine blocks until a line on the given stream of p matches re and
// returns the regexp submatches of the first matching line (index 0 is the
// whole match, followed by capture groups). Lines after the match are
// ignored.
//
// Three terminal causes race and exactly one fires; the line listener and
// any pending timer are torn down whichever it is:
//
//   - a matching line appears: WaitForLine returns its submatches;
//   - timeout elapses (0 disables this arm): returns timeoutErr, or
//     ErrWaitTimeout when timeoutErr is nil;
//   - the stream closes or the process exits before a match: returns a
//     *StreamTerminationError carrying every line collected so far, to
//     aid troubleshooting, plus the underlying cause when known.
//
// The typical use is blocking on a readiness line, e.g. a server
// announcing its listening address, before proceeding. Requires a launch
// with Options.Pipe set; returns ErrNotPiped otherwise.
func WaitForLine(
	ctx context.Context,
	p *Process,
	stream Stream,
	re *regexp.Regexp,
	timeout time.Duration,
	timeoutErr error,
) ([]string, error) {
	return p.sup.AwaitLine(ctx, stream, re, timeout, timeoutErr)
}

// ReadinessCheck probes whether a launched process is ready. See WaitReady.
type ReadinessCheck = core.ReadinessCheck

// WaitReadyConfig configures WaitReady's polling behavior.
type WaitReadyConfig struct {
	Interval time.Duration // poll interval; must be positive
	Timeout  time.Duration // overall timeout; must be positive
	Name     string        // for log and error context; defaults to "process"
	Logger   *slog.Logger  // optional; nil falls back to the package logger
}

// WaitReady is the poll-based companion to WaitForLine for processes whose
// readiness is observable only from the outside (a TCP port accepting
// connections, a health endpoint answering). It polls check until it
// reports ready, returns a fatal error, the timeout elapses, or the
// process exits. A dead process aborts the wait immediately instead of
// burning the rest of the timeout.
func WaitReady(ctx context.Context, p *Process, cfg WaitReadyConfig, check ReadinessCheck) error {
	return core.WaitReady(ctx, core.WaitReadyConfig{
		Interval:      cfg.Interval,
		Timeout:       cfg.Timeout,
		Name:          cfg.Name,
		Logger:        cfg.Logger,
		ProcessExited: p.Exited(),
	}, check)
}
