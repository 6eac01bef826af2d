package core

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
)

// testLogger returns a logger that swallows output so relayed lines do not
// pollute the test log.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingHandler collects log record messages for assertions on what the
// relay forwarded and when.
type recordingHandler struct {
	mu   sync.Mutex
	msgs []string
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.msgs = append(h.msgs, r.Message)
	return nil
}

func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h *recordingHandler) WithGroup(string) slog.Handler { return h }

func (h *recordingHandler) contains(msg string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, m := range h.msgs {
		if m == msg {
			return true
		}
	}
	return false
}

// requireUnixShell skips tests that spawn children through sh.
func requireUnixShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("test spawns children via sh")
	}
}

// launchShell launches `sh -c script` with piped stdio and the given extras
// applied on top of a baseline spec.
func launchShell(t *testing.T, script string, mutate func(*LaunchSpec)) *Supervisor {
	t.Helper()
	requireUnixShell(t)

	spec := LaunchSpec{
		Path:   "/bin/sh",
		Args:   []string{"-c", script},
		Pipe:   true,
		Logger: testLogger(),
	}
	if mutate != nil {
		mutate(&spec)
	}
	s, err := Launch(spec)
	if err != nil {
		t.Fatalf("Launch() error: %v", err)
	}
	t.Cleanup(func() {
		<-s.Kill()
	})
	return s
}

// makeTempDirs creates n directories under a fresh test temp root and
// returns their paths.
func makeTempDirs(t *testing.T, n int) []string {
	t.Helper()
	base := t.TempDir()
	dirs := make([]string, 0, n)
	for i := 0; i < n; i++ {
		d := filepath.Join(base, "owned", string(rune('a'+i)))
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", d, err)
		}
		dirs = append(dirs, d)
	}
	return dirs
}
