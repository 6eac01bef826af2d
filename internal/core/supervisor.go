package core

import (
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"github.com/giantswarm/subproc/internal/exithook"
	"github.com/giantswarm/subproc/internal/proctree"
	"github.com/giantswarm/subproc/internal/registry"
)

// stdoutPipe and stderrPipe are indirected so tests can intercept the pipe
// setup path of Launch.
var (
	stdoutPipe = (*exec.Cmd).StdoutPipe
	stderrPipe = (*exec.Cmd).StderrPipe
)

// Supervisor owns one launched child process: its handle, its output relay,
// its temporary directories, and the shutdown state machine. The handle is
// never shared outside the supervisor; callers interact only through
// GracefulClose, Kill, and the published completion channels.
//
// Concurrency: the mutable state (shutdown state, liveness, exit status) is
// guarded by mu. Completion is broadcast through two channels that are
// closed exactly once: exited when the exit observation fires, cleanupDone
// when the exit-triggered cleanup finishes. Any number of goroutines may
// select on either.
type Supervisor struct {
	spec    LaunchSpec
	log     *slog.Logger
	cmd     *exec.Cmd
	pid     int
	relay   *relay // nil unless piped
	cleaner *cleaner

	mu       sync.Mutex
	state    shutdownState
	running  bool
	exitCode int
	exitSig  os.Signal
	exitSeen bool
	waitErr  error // cmd.Wait result, kept for stream-termination diagnostics

	exited      chan struct{}
	cleanupDone chan struct{}

	detachOnce sync.Once
	detach     []func()
}

// Launch spawns the child described by spec as the leader of its own
// process group and wires the output relay, the exit observer, the
// parent-lifecycle guard, and any requested signal forwarders. If the OS
// fails to create the process, the temp directories are still cleaned up
// and the failure is returned as a *LaunchError.
func Launch(spec LaunchSpec) (*Supervisor, error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}

	log := spec.Logger
	if log == nil {
		log = Logger()
	}

	s := &Supervisor{
		spec:        spec,
		log:         log,
		cleaner:     newCleaner(spec.TempDirs, log),
		exited:      make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}

	cmd := exec.Command(spec.Path, spec.Args...)
	cmd.Dir = spec.Dir
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}
	proctree.SetGroupAttr(cmd)

	var outPipe, errPipe io.ReadCloser
	if spec.Pipe {
		var err error
		outPipe, err = stdoutPipe(cmd)
		if err != nil {
			s.cleaner.removeAll()
			return nil, &LaunchError{Path: spec.Path, Err: err}
		}
		errPipe, err = stderrPipe(cmd)
		if err != nil {
			// The command never starts, so nothing else will release the
			// stdout pipe descriptors.
			_ = outPipe.Close()
			s.cleaner.removeAll()
			return nil, &LaunchError{Path: spec.Path, Err: err}
		}
		s.relay = newRelay(log)
	} else {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Start(); err != nil {
		// No pid was obtained; the launch owns no process but still owns
		// its temp directories. A failed Start closes the pipes itself.
		s.cleaner.removeAll()
		return nil, &LaunchError{Path: spec.Path, Err: err}
	}

	s.cmd = cmd
	s.pid = cmd.Process.Pid
	s.running = true
	log.Debug("launched process", "path", spec.Path, "pid", s.pid)

	if s.relay != nil {
		// Readers must be attached before the exit observer starts: the
		// observer blocks on the relay ahead of cmd.Wait, and that barrier
		// only holds once both readers are counted in.
		s.relay.start(Stdout, outPipe)
		s.relay.start(Stderr, errPipe)
	}

	if spec.RegistryDir != "" {
		// Best-effort: a registry failure must not fail the launch.
		if err := registry.Record(spec.RegistryDir, registry.Entry{
			PID:      s.pid,
			OwnerPID: os.Getpid(),
			Path:     spec.Path,
			TempDirs: spec.TempDirs,
		}); err != nil {
			log.Warn("launch registry record failed", "dir", spec.RegistryDir, "error", err)
		}
	}

	// Parent-lifecycle guard: if the host is terminating, kill this child
	// synchronously so it is never orphaned. The guard is deregistered on
	// the first terminal event.
	removeGuard := exithook.Register(func() { s.Kill() })
	s.detach = append(s.detach, removeGuard)

	s.forwardSignals()

	go s.observeExit()

	return s, nil
}

// PID returns the OS process id of the child.
func (s *Supervisor) PID() int {
	return s.pid
}

// Running reports whether the child has not yet been observed to exit.
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Exited returns a channel closed when the exit observation fires.
func (s *Supervisor) Exited() <-chan struct{} {
	return s.exited
}

// CleanupDone returns a channel closed when the exit-triggered resource
// cleanup has completed.
func (s *Supervisor) CleanupDone() <-chan struct{} {
	return s.cleanupDone
}

// ExitState returns the child's exit code and terminating signal once
// known. ok is false until the exit observation has fired. code is -1 when
// the child was terminated by a signal.
func (s *Supervisor) ExitState() (code int, sig os.Signal, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exitCode, s.exitSig, s.exitSeen
}

// observeExit is the single exit observation per launch. It drains the
// relay, reaps the child, tears down all other listeners, invokes the
// caller's exit callback, broadcasts the exit, and runs the asynchronous
// cleanup. Ordering is safety-critical: listeners are detached before the
// callback runs so a signal arriving mid-callback cannot re-enter shutdown
// logic against an already-closing process.
func (s *Supervisor) observeExit() {
	if s.relay != nil {
		// cmd.Wait closes the pipes; reading must complete first.
		s.relay.wait()
	}
	err := s.cmd.Wait()
	code, sig := exitStatus(s.cmd.ProcessState, err)

	s.detachListeners()

	s.mu.Lock()
	s.running = false
	s.state = stateClosed
	s.exitCode = code
	s.exitSig = sig
	s.exitSeen = true
	s.waitErr = err
	onExit := s.spec.OnExit
	s.mu.Unlock()

	s.log.Debug("process exited", "pid", s.pid, "code", code, "signal", signalName(sig))

	if onExit != nil {
		onExit(code, sig)
	}
	close(s.exited)

	if s.spec.RegistryDir != "" {
		if err := registry.Remove(s.spec.RegistryDir, s.pid); err != nil {
			s.log.Debug("launch registry remove failed", "dir", s.spec.RegistryDir, "error", err)
		}
	}

	go func() {
		s.cleaner.removeAll()
		close(s.cleanupDone)
	}()
}

// detachListeners removes the signal forwarders and the exit-hook guard.
// Idempotent: the first terminal event wins, later calls are no-ops, so a
// manual Kill followed by the exit observation cannot tear down twice.
func (s *Supervisor) detachListeners() {
	s.detachOnce.Do(func() {
		for _, remove := range s.detach {
			remove()
		}
	})
}

// exitStatus extracts the exit code and terminating signal from a reaped
// process. code is -1 when the process was killed by a signal, matching
// os.ProcessState.ExitCode.
func exitStatus(ps *os.ProcessState, waitErr error) (code int, sig os.Signal) {
	if ps == nil {
		// cmd.Wait failed before reaping (e.g. I/O error); there is no
		// status to report.
		if waitErr != nil {
			return -1, nil
		}
		return 0, nil
	}
	if ws, ok := ps.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return -1, ws.Signal()
	}
	return ps.ExitCode(), nil
}

// signalName renders a signal for log output; nil means a normal exit.
func signalName(sig os.Signal) string {
	if sig == nil {
		return ""
	}
	return sig.String()
}
