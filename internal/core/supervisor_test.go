package core

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sync"
	"syscall"
	"testing"
	"time"
)

func TestLaunch_EmptyPath(t *testing.T) {
	t.Parallel()

	_, err := Launch(LaunchSpec{Logger: testLogger()})
	if !errors.Is(err, ErrEmptyPath) {
		t.Fatalf("Launch() error = %v, want ErrEmptyPath", err)
	}
}

func TestLaunch_SpawnFailureCleansUpAndReturnsLaunchError(t *testing.T) {
	t.Parallel()

	dirs := makeTempDirs(t, 1)
	_, err := Launch(LaunchSpec{
		Path:     "/nonexistent/definitely-not-a-binary",
		TempDirs: dirs,
		Logger:   testLogger(),
	})

	var launchErr *LaunchError
	if !errors.As(err, &launchErr) {
		t.Fatalf("Launch() error = %v, want *LaunchError", err)
	}
	if launchErr.Err == nil {
		t.Error("LaunchError must carry the underlying OS error")
	}
	if _, statErr := os.Stat(dirs[0]); !os.IsNotExist(statErr) {
		t.Error("temp dir must be cleaned up on a failed launch")
	}
}

func TestLaunch_ExitObservationWaitsForRelayDrain(t *testing.T) {
	t.Parallel()

	// A child that prints and exits immediately, repeated to give the
	// scheduler chances to order the exit observer ahead of the relay.
	// Every relayed line must reach the sink before the exit broadcast.
	for i := 0; i < 50; i++ {
		h := &recordingHandler{}
		s := launchShell(t, `echo alpha; echo beta; echo gamma`, func(spec *LaunchSpec) {
			spec.Logger = slog.New(h)
		})

		select {
		case <-s.Exited():
		case <-time.After(10 * time.Second):
			t.Fatalf("iteration %d: exit not observed", i)
		}

		for _, want := range []string{"alpha", "beta", "gamma"} {
			if !h.contains(want) {
				t.Fatalf("iteration %d: line %q not relayed before the exit observation", i, want)
			}
		}
	}
}

// closeRecorder wraps a pipe to observe whether Launch released it.
type closeRecorder struct {
	io.ReadCloser
	mu        sync.Mutex
	wasClosed bool
}

func (c *closeRecorder) Close() error {
	c.mu.Lock()
	c.wasClosed = true
	c.mu.Unlock()
	return c.ReadCloser.Close()
}

func (c *closeRecorder) closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wasClosed
}

func TestLaunch_StderrPipeFailureClosesStdoutPipe(t *testing.T) {
	requireUnixShell(t)

	// Mutates the package-level pipe seams; not parallel.
	origOut, origErr := stdoutPipe, stderrPipe
	defer func() { stdoutPipe, stderrPipe = origOut, origErr }()

	rec := &closeRecorder{}
	stdoutPipe = func(cmd *exec.Cmd) (io.ReadCloser, error) {
		rc, err := origOut(cmd)
		if err != nil {
			return nil, err
		}
		rec.ReadCloser = rc
		return rec, nil
	}
	pipeErr := errors.New("stderr pipe refused")
	stderrPipe = func(*exec.Cmd) (io.ReadCloser, error) { return nil, pipeErr }

	_, err := Launch(LaunchSpec{
		Path:   "/bin/sh",
		Args:   []string{"-c", "exit 0"},
		Pipe:   true,
		Logger: testLogger(),
	})

	var launchErr *LaunchError
	if !errors.As(err, &launchErr) {
		t.Fatalf("Launch() error = %v, want *LaunchError", err)
	}
	if !errors.Is(err, pipeErr) {
		t.Errorf("LaunchError does not wrap the pipe error: %v", err)
	}
	if !rec.closed() {
		t.Error("stdout pipe left open after the stderr pipe failed")
	}
}

func TestLaunch_ExitObservation(t *testing.T) {
	t.Parallel()

	var (
		mu      sync.Mutex
		calls   int
		gotCode int
		gotSig  os.Signal
	)
	s := launchShell(t, `exit 7`, func(spec *LaunchSpec) {
		spec.OnExit = func(code int, sig os.Signal) {
			mu.Lock()
			defer mu.Unlock()
			calls++
			gotCode, gotSig = code, sig
		}
	})

	select {
	case <-s.Exited():
	case <-time.After(10 * time.Second):
		t.Fatal("exit not observed")
	}

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("OnExit called %d times, want exactly 1", calls)
	}
	if gotCode != 7 {
		t.Errorf("exit code = %d, want 7", gotCode)
	}
	if gotSig != nil {
		t.Errorf("signal = %v, want nil for a self-exit", gotSig)
	}

	code, sig, ok := s.ExitState()
	if !ok || code != 7 || sig != nil {
		t.Errorf("ExitState() = (%d, %v, %t), want (7, nil, true)", code, sig, ok)
	}
	if s.Running() {
		t.Error("Running() = true after observed exit")
	}
}

func TestKill_ReportsTerminatingSignal(t *testing.T) {
	t.Parallel()

	var (
		mu     sync.Mutex
		gotSig os.Signal
	)
	s := launchShell(t, `sleep 60`, func(spec *LaunchSpec) {
		spec.OnExit = func(_ int, sig os.Signal) {
			mu.Lock()
			defer mu.Unlock()
			gotSig = sig
		}
	})

	select {
	case <-s.Kill():
	case <-time.After(10 * time.Second):
		t.Fatal("kill cleanup did not complete")
	}

	mu.Lock()
	defer mu.Unlock()
	if gotSig != syscall.SIGKILL {
		t.Errorf("terminating signal = %v, want SIGKILL", gotSig)
	}
}

func TestKill_ReentrantAndAfterExit(t *testing.T) {
	t.Parallel()

	s := launchShell(t, `exit 0`, nil)

	select {
	case <-s.Exited():
	case <-time.After(10 * time.Second):
		t.Fatal("exit not observed")
	}

	// Kill after exit is a no-op that must resolve without error, any
	// number of times.
	for i := 0; i < 3; i++ {
		select {
		case <-s.Kill():
		case <-time.After(5 * time.Second):
			t.Fatalf("Kill() %d after exit did not resolve", i)
		}
	}
}

func TestKill_RemovesTempDirsSynchronously(t *testing.T) {
	t.Parallel()

	dirs := makeTempDirs(t, 2)
	s := launchShell(t, `sleep 60`, func(spec *LaunchSpec) {
		spec.TempDirs = dirs
	})

	s.Kill()

	// The synchronous path has already run by the time Kill returns.
	for _, d := range dirs {
		if _, err := os.Stat(d); !os.IsNotExist(err) {
			t.Errorf("dir %s still exists right after Kill", d)
		}
	}
}

func TestGracefulClose_DefaultActionTermsProcess(t *testing.T) {
	t.Parallel()

	dirs := makeTempDirs(t, 1)
	var exited bool
	s := launchShell(t, `sleep 60`, func(spec *LaunchSpec) {
		spec.TempDirs = dirs
		spec.OnExit = func(_ int, _ os.Signal) { exited = true }
	})

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := s.GracefulClose(ctx); err != nil {
		t.Fatalf("GracefulClose() error: %v", err)
	}

	// Close resolves strictly after both the exit event and cleanup.
	if !exited {
		t.Error("GracefulClose returned before the exit callback ran")
	}
	select {
	case <-s.CleanupDone():
	default:
		t.Error("GracefulClose returned before cleanup completed")
	}
	if _, err := os.Stat(dirs[0]); !os.IsNotExist(err) {
		t.Error("temp dir survives GracefulClose")
	}
}

func TestGracefulClose_CallerActionFailureEscalates(t *testing.T) {
	t.Parallel()

	s := launchShell(t, `sleep 60`, func(spec *LaunchSpec) {
		spec.Graceful = func(context.Context) error {
			return errors.New("refused to close")
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	// The caller's failure is swallowed: the close still succeeds via the
	// forceful path.
	if err := s.GracefulClose(ctx); err != nil {
		t.Fatalf("GracefulClose() error: %v", err)
	}

	_, sig, ok := s.ExitState()
	if !ok || sig != syscall.SIGKILL {
		t.Errorf("ExitState() signal = %v (ok=%t), want SIGKILL after escalation", sig, ok)
	}
}

func TestGracefulClose_ReentrantEscalatesStuckHook(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	s := launchShell(t, `sleep 60`, func(spec *LaunchSpec) {
		spec.Graceful = func(context.Context) error {
			<-block // hook never resolves
			return nil
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	errs := make(chan error, 2)
	go func() { errs <- s.GracefulClose(ctx) }()
	// Give the first call time to enter the graceful hook before the
	// impatient second call arrives.
	time.Sleep(200 * time.Millisecond)
	go func() { errs <- s.GracefulClose(ctx) }()

	for i := 0; i < 2; i++ {
		select {
		case err := <-errs:
			if err != nil {
				t.Errorf("GracefulClose() #%d error: %v", i, err)
			}
		case <-time.After(15 * time.Second):
			t.Fatal("a GracefulClose call never resolved")
		}
	}

	_, sig, ok := s.ExitState()
	if !ok || sig != syscall.SIGKILL {
		t.Errorf("ExitState() signal = %v (ok=%t), want SIGKILL", sig, ok)
	}
	close(block)
}

func TestGracefulClose_ConcurrentCallsSingleExitCallback(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		calls int
	)
	s := launchShell(t, `sleep 60`, func(spec *LaunchSpec) {
		spec.OnExit = func(_ int, _ os.Signal) {
			mu.Lock()
			defer mu.Unlock()
			calls++
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.GracefulClose(ctx)
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("OnExit called %d times for two concurrent closes, want 1", calls)
	}
}

func TestGracefulClose_AfterExitIsNoOp(t *testing.T) {
	t.Parallel()

	s := launchShell(t, `exit 0`, nil)
	<-s.Exited()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.GracefulClose(ctx); err != nil {
		t.Fatalf("GracefulClose() after exit error: %v", err)
	}
}

func TestLaunch_EnvAndDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := launchShell(t, `echo "$SUBPROC_TEST_MARK:$(pwd)"`, func(spec *LaunchSpec) {
		spec.Args = []string{"-c", `sleep 0.3; echo "$SUBPROC_TEST_MARK:$(pwd)"`}
		spec.Env = []string{"SUBPROC_TEST_MARK=mark-123"}
		spec.Dir = dir
	})

	m, err := s.AwaitLine(context.Background(), Stdout,
		regexp.MustCompile(`^(mark-\d+):(.+)$`), 5*time.Second, nil)
	if err != nil {
		t.Fatalf("AwaitLine() error: %v", err)
	}
	if m[1] != "mark-123" {
		t.Errorf("env capture = %q, want %q", m[1], "mark-123")
	}
	// Resolve symlinks: on some systems the shell reports the resolved
	// temp path.
	wantDir, err := filepath.EvalSymlinks(dir)
	if err != nil {
		t.Fatalf("eval symlinks: %v", err)
	}
	gotDir, err := filepath.EvalSymlinks(m[2])
	if err != nil {
		t.Fatalf("eval symlinks on capture %q: %v", m[2], err)
	}
	if gotDir != wantDir {
		t.Errorf("pwd capture = %q, want %q", gotDir, wantDir)
	}
}
