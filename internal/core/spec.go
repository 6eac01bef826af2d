package core

import (
	"context"
	"log/slog"
	"os"
)

// LaunchSpec carries everything a Supervisor needs to spawn and govern one
// child process. It is copied at launch time and never mutated afterwards.
type LaunchSpec struct {
	Path string   // executable path
	Args []string // argument vector, not including the executable
	Env  []string // KEY=VALUE entries appended to os.Environ(); nil inherits as-is
	Dir  string   // working directory; empty inherits the caller's

	// Pipe selects piped stdio with line relaying. When false the child
	// inherits the host's stdout/stderr and AwaitLine is unavailable.
	Pipe bool

	// Signal interception. Each selected signal triggers a graceful close;
	// an intercepted interrupt additionally terminates the host with the
	// conventional 128+SIGINT exit status once the close resolves.
	HandleInterrupt bool
	HandleTerminate bool
	HandleHangup    bool

	// TempDirs are the temporary directories owned by this launch, removed
	// best-effort on every terminal shutdown path.
	TempDirs []string

	// Graceful is the caller's cooperative shutdown operation. It must
	// return an error if it failed to actually close the process; any
	// error escalates to a forceful kill. Nil selects the default action,
	// which sends SIGTERM and waits a short grace period for exit.
	Graceful func(ctx context.Context) error

	// OnExit is invoked exactly once, after listener teardown, with the
	// child's exit code and terminating signal (nil if it exited on its
	// own). Optional.
	OnExit func(code int, sig os.Signal)

	// Logger receives relayed output lines and operational messages.
	// Nil falls back to the package logger.
	Logger *slog.Logger

	// RegistryDir, when non-empty, enables the launch registry: the pid
	// and temp directories are recorded there so SweepStale can reap
	// leftovers if this host dies without running its exit hooks.
	RegistryDir string
}

// validate checks the fields a launch cannot proceed without.
func (s *LaunchSpec) validate() error {
	if s.Path == "" {
		return ErrEmptyPath
	}
	return nil
}
