package core

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/giantswarm/subproc/internal/exithook"
)

// interruptExitStatus is the conventional shell exit status for a process
// terminated by SIGINT: 128 + the signal number.
const interruptExitStatus = 130

// osExit is indirected so tests can intercept the host-terminating path of
// the interrupt forwarder.
var osExit = os.Exit

// forwardSignals installs one forwarder per intercepted signal. Each
// forwarder runs GracefulClose; the interrupt forwarder additionally runs
// the remaining exit hooks and terminates the host with the conventional
// interrupt exit status once the close resolves, preserving shell-level
// signal conventions.
//
// Every forwarder's removal is appended to s.detach, so the first terminal
// event deregisters them all before the exit callback can fire.
func (s *Supervisor) forwardSignals() {
	if s.spec.HandleInterrupt {
		s.forwardSignal(syscall.SIGINT, true)
	}
	if s.spec.HandleTerminate {
		s.forwardSignal(syscall.SIGTERM, false)
	}
	if s.spec.HandleHangup {
		s.forwardSignal(syscall.SIGHUP, false)
	}
}

func (s *Supervisor) forwardSignal(sig os.Signal, interrupt bool) {
	ch := make(chan os.Signal, 1)
	stop := make(chan struct{})
	signal.Notify(ch, sig)
	s.detach = append(s.detach, func() {
		// signal.Stop is idempotent and never fails on double removal.
		signal.Stop(ch)
		close(stop)
	})

	go func() {
		select {
		case <-ch:
			// The close must complete before the host may exit; the
			// background context mirrors the forwarder having no caller
			// to time it out.
			_ = s.GracefulClose(context.Background())
			if interrupt {
				exithook.Run()
				osExit(interruptExitStatus)
			}
		case <-stop:
		}
	}()
}
