// Package subproc launches a child OS process, relays its output, and
// enforces a shutdown protocol that guarantees the process and its
// temporary resources are fully gone before control returns to the caller.
//
// A launch spawns the child as the leader of its own process group, wires
// line-oriented relaying of its stdout/stderr into a slog sink, and
// returns a handle exposing GracefulClose and Kill. GracefulClose runs the
// caller's cooperative shutdown operation and escalates to a forceful
// group kill if it fails or if a second close request arrives while one is
// in flight. Kill is unconditional, safe to call any number of times, and
// usable from exit paths. Temporary directories owned by the launch are
// removed best-effort on every terminal path.
//
// # Basic usage
//
//	proc, err := subproc.Launch(subproc.Options{
//	    Path:     "/usr/bin/server",
//	    Args:     []string{"--port=0"},
//	    Pipe:     true,
//	    TempDirs: []string{dataDir},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Block until the server announces its listening address.
//	m, err := subproc.WaitForLine(ctx, proc, subproc.Stdout,
//	    regexp.MustCompile(`Listening on (\S+)`), 2*time.Second, errNotReady)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	addr := m[1]
//
//	// ... use the server ...
//
//	if err := proc.GracefulClose(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Orphan prevention
//
// Every launch registers a guard in a process-wide exit-hook registry;
// hosts that terminate deliberately should call RunExitHooks first so no
// child is orphaned. On Linux the child additionally carries a
// parent-death signal as a kernel-level backstop. Hosts that may die
// without running hooks at all can enable the launch registry
// (Options.RegistryDir) and reap leftovers with SweepStale on the next
// run.
package subproc
