package core

import (
	"context"
	"fmt"
	"regexp"
	"time"
)

// AwaitLine blocks until a line on the given stream matches re and returns
// the regexp submatches of the first matching line. Three terminal causes
// race; exactly one fires, and the subscription and timer are torn down
// whichever it is:
//
//   - a matching line: returns the submatches;
//   - the timeout elapses (timeout <= 0 disables this arm): returns
//     timeoutErr, or ErrAwaitTimeout when the caller supplied none;
//   - the stream closes or the process exits first: returns a
//     *StreamTerminationError carrying every line collected so far.
//
// Lines after the match are ignored. Requires a piped launch.
func (s *Supervisor) AwaitLine(
	ctx context.Context,
	stream Stream,
	re *regexp.Regexp,
	timeout time.Duration,
	timeoutErr error,
) ([]string, error) {
	if s.relay == nil {
		return nil, ErrNotPiped
	}

	sub := s.relay.subscribe(stream)
	defer sub.cancel()

	var timerC <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timerC = timer.C
	}

	var seen []string
	for {
		select {
		case line, ok := <-sub.ch:
			if !ok {
				return nil, s.terminationError(seen)
			}
			if m := re.FindStringSubmatch(line); m != nil {
				return m, nil
			}
			seen = append(seen, line)
		case <-timerC:
			if timeoutErr == nil {
				timeoutErr = ErrAwaitTimeout
			}
			return nil, timeoutErr
		case <-s.exited:
			// The exit can win the select race against lines the relay
			// already delivered; drain what is pending so a match that
			// beat the exit in the stream still resolves.
			for {
				select {
				case line, ok := <-sub.ch:
					if !ok {
						return nil, s.terminationError(seen)
					}
					if m := re.FindStringSubmatch(line); m != nil {
						return m, nil
					}
					seen = append(seen, line)
				default:
					return nil, s.terminationError(seen)
				}
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// terminationError builds the diagnostic failure for a stream or process
// that ended before a match, attaching the exit status or wait error as
// the underlying cause when one is known.
func (s *Supervisor) terminationError(seen []string) *StreamTerminationError {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.waitErr
	if err == nil && s.exitSeen {
		if s.exitSig != nil {
			err = fmt.Errorf("process terminated by signal %s", s.exitSig)
		} else if s.exitCode != 0 {
			err = fmt.Errorf("process exited with code %d", s.exitCode)
		}
	}
	return &StreamTerminationError{Lines: seen, Err: err}
}
