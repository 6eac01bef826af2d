package core

import (
	"context"
	"fmt"
	"time"

	"github.com/giantswarm/subproc/internal/proctree"
)

// shutdownState is the supervisor's shutdown phase. Transitions are
// monotonic: a state only ever moves forward, and the guard on the current
// state is the single source of truth for "are we already closing";
// reentrant requests act from the current state instead of queuing.
type shutdownState int

const (
	stateIdle shutdownState = iota
	stateClosing
	stateClosed
)

// termGracePeriod is how long the default graceful action waits for the
// child to exit after SIGTERM before reporting failure, which escalates to
// a forceful kill.
const termGracePeriod = 5 * time.Second

// GracefulClose asks the child to terminate cooperatively and blocks until
// the process is gone and cleanup has completed. A failure in the graceful
// operation is never propagated: its failure mode is "do the forceful
// thing", so the error is swallowed and the kill path runs instead.
//
// A second GracefulClose while one is in flight does not start another
// graceful attempt; it is the cancellation mechanism, escalating
// immediately to a forceful kill. Both calls still only return once the
// process is actually gone.
//
// The ctx bounds the wait; cancellation returns ctx.Err() without changing
// the shutdown's course.
func (s *Supervisor) GracefulClose(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case stateClosed:
		s.mu.Unlock()
		return s.waitCleanup(ctx)
	case stateClosing:
		// Reentrant request: the caller is signaling impatience or a
		// stuck graceful hook. Escalate unconditionally.
		s.mu.Unlock()
		s.Kill()
		return s.waitCleanup(ctx)
	case stateIdle:
	}
	s.state = stateClosing
	s.mu.Unlock()

	graceful := s.spec.Graceful
	if graceful == nil {
		graceful = s.defaultGraceful
	}

	// The graceful operation runs in its own goroutine so that this call
	// can still resolve if the hook hangs and a reentrant close (or the
	// exit itself) finishes the shutdown by other means. A hung hook's
	// goroutine is abandoned, matching the operation's contract: it either
	// closes the process or its failure is superseded by force.
	done := make(chan error, 1)
	go func() { done <- graceful(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			s.log.Debug("graceful close failed; escalating to kill", "pid", s.pid, "error", err)
			s.Kill()
		}
	case <-s.cleanupDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	return s.waitCleanup(ctx)
}

// Kill forcefully terminates the child's whole process group and performs
// synchronous best-effort cleanup. It is safe to call any number of times,
// including after the process has already exited, and from an exit hook.
// All errors on the signal path are swallowed as benign races with the
// process's own death.
//
// The kill signal is sent synchronously, but the child is not necessarily
// reaped when Kill returns; the returned channel closes once the
// exit-triggered cleanup completes.
func (s *Supervisor) Kill() <-chan struct{} {
	// Detach first so the exit event that this kill provokes cannot
	// trigger a second round of signal handling mid-teardown.
	s.detachListeners()

	s.mu.Lock()
	alive := s.running && s.state != stateClosed
	if s.state != stateClosed {
		s.state = stateClosing
	}
	s.mu.Unlock()

	if alive {
		if err := proctree.Kill(s.pid); err != nil {
			// The group may already be gone; benign.
			s.log.Debug("kill process group", "pid", s.pid, "error", err)
		}
	}

	// Synchronous best-effort cleanup so that even a host exiting right
	// after Kill leaves no temp directories behind. The exit observer
	// repeats this asynchronously; removal is idempotent.
	s.cleaner.removeAll()

	return s.cleanupDone
}

// defaultGraceful is the graceful action used when the caller supplies
// none: send SIGTERM and wait a grace period for the exit observation.
// Returning an error hands over to the forceful kill path.
func (s *Supervisor) defaultGraceful(ctx context.Context) error {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()
	if !running {
		return nil
	}

	if err := proctree.Terminate(s.cmd.Process); err != nil {
		// Most likely the process finished in a race; the exit wait
		// below settles it either way.
		s.log.Debug("terminate signal failed", "pid", s.pid, "error", err)
	}

	t := time.NewTimer(termGracePeriod)
	defer t.Stop()
	select {
	case <-s.exited:
		return nil
	case <-t.C:
		return fmt.Errorf("pid %d did not exit within %s of SIGTERM", s.pid, termGracePeriod)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// waitCleanup blocks until the exit-triggered cleanup completes or ctx is
// canceled. This is the same completion the exit observer publishes; no
// polling is involved.
func (s *Supervisor) waitCleanup(ctx context.Context) error {
	select {
	case <-s.cleanupDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
