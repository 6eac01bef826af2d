package subproc

import (
	"context"
	"log/slog"
	"os"

	"github.com/giantswarm/subproc/internal/core"
	"github.com/giantswarm/subproc/internal/exithook"
)

// Options configures one launch. It is consumed by Launch and never read
// again afterwards; mutating it once launch has begun has no effect on the
// running supervisor.
type Options struct {
	// Path is the executable to run. Required.
	Path string

	// Args is the argument vector, not including the executable itself.
	Args []string

	// Env holds KEY=VALUE entries appended to the host's environment.
	// Nil inherits the host environment unchanged.
	Env []string

	// Dir is the child's working directory. Empty inherits the host's.
	Dir string

	// Pipe selects piped stdio: the child's stdout and stderr are read
	// line by line and forwarded to the logging sink (stdout at Info,
	// stderr at Warn, each under a fixed "channel" attribute), and
	// WaitForLine becomes available. When false the child inherits the
	// host's stdout/stderr directly.
	Pipe bool

	// HandleInterrupt, HandleTerminate and HandleHangup select which host
	// signals are intercepted and forwarded as a graceful close of the
	// child. An intercepted interrupt additionally terminates the host
	// with exit status 130 (128+SIGINT) once the close resolves,
	// preserving shell-level conventions.
	HandleInterrupt bool
	HandleTerminate bool
	HandleHangup    bool

	// TempDirs are the temporary directories owned by this launch. They
	// are removed best-effort on every terminal shutdown path; removal
	// errors never fail a launch, a close, or a kill.
	TempDirs []string

	// GracefulAction is the caller's cooperative shutdown operation,
	// invoked by GracefulClose. It must return an error if it failed to
	// actually close the process; any error silently escalates to a
	// forceful kill. Nil selects the default action, which sends SIGTERM
	// and waits a short grace period for exit.
	GracefulAction func(ctx context.Context) error

	// OnExit is invoked exactly once per launch, after listener teardown,
	// with the child's exit code and terminating signal (nil if the child
	// exited on its own; code is -1 if it was signaled). Optional.
	OnExit func(code int, sig os.Signal)

	// Logger receives relayed output lines and operational messages.
	// Nil falls back to the package logger (see SetLogger).
	Logger *slog.Logger

	// RegistryDir, when non-empty, records the launch in the on-disk
	// registry at that directory so SweepStale can reap it if this host
	// dies without running its exit hooks.
	RegistryDir string
}

// Process is the handle for one launched child. The underlying OS process
// handle is owned exclusively by the supervisor; callers interact through
// this wrapper only.
type Process struct {
	sup *core.Supervisor
}

// Launch spawns the child described by opts as the leader of its own
// process group and returns its handle. If the OS refuses to create the
// process, the temp directories are cleaned up and the failure is returned
// as a *LaunchError carrying the underlying OS error.
func Launch(opts Options) (*Process, error) {
	sup, err := core.Launch(core.LaunchSpec{
		Path:            opts.Path,
		Args:            opts.Args,
		Env:             opts.Env,
		Dir:             opts.Dir,
		Pipe:            opts.Pipe,
		HandleInterrupt: opts.HandleInterrupt,
		HandleTerminate: opts.HandleTerminate,
		HandleHangup:    opts.HandleHangup,
		TempDirs:        opts.TempDirs,
		Graceful:        opts.GracefulAction,
		OnExit:          opts.OnExit,
		Logger:          opts.Logger,
		RegistryDir:     opts.RegistryDir,
	})
	if err != nil {
		return nil, err
	}
	return &Process{sup: sup}, nil
}

// PID returns the OS process id of the child.
func (p *Process) PID() int {
	return p.sup.PID()
}

// Running reports whether the child has not yet been observed to exit.
func (p *Process) Running() bool {
	return p.sup.Running()
}

// Exited returns a channel that is closed once the child's exit has been
// observed. Safe to select on from any number of goroutines.
func (p *Process) Exited() <-chan struct{} {
	return p.sup.Exited()
}

// ExitState returns the child's exit code and terminating signal once the
// exit has been observed; ok is false before that. code is -1 when the
// child was terminated by a signal.
func (p *Process) ExitState() (code int, sig os.Signal, ok bool) {
	return p.sup.ExitState()
}

// GracefulClose asks the child to terminate cooperatively and blocks until
// the process has actually terminated and its cleanup has completed. A
// failing graceful operation silently escalates to a forceful kill. A
// second concurrent GracefulClose escalates immediately instead of
// queueing another graceful attempt; both calls still only return once the
// process is gone.
func (p *Process) GracefulClose(ctx context.Context) error {
	return p.sup.GracefulClose(ctx)
}

// Kill forcefully terminates the child's entire process group and performs
// synchronous best-effort cleanup. It never fails and is safe to call any
// number of times, including after the child has already exited and from
// exit hooks. The kill signal is sent before Kill returns, but the child
// is not necessarily reaped by then: the returned channel closes once the
// exit-triggered cleanup has completed.
func (p *Process) Kill() <-chan struct{} {
	return p.sup.Kill()
}

// RunExitHooks runs every registered parent-lifecycle guard, forcefully
// killing all children still alive, in launch order. Hosts that terminate
// deliberately (fatal error paths, os.Exit) should call this first; the
// interrupt forwarder calls it automatically. Safe to call multiple times.
func RunExitHooks() {
	exithook.Run()
}
