//go:build unix

package proctree

import (
	"os"
	"syscall"
)

// Kill forcefully terminates the process group led by pid by sending SIGKILL
// to the negated group id. The caller must have started the process with
// SetGroupAttr; otherwise the signal only reaches processes that happen to
// share the caller's group.
//
// A failure here usually means the group is already gone (the process died
// in a race with the kill), which callers treat as benign.
func Kill(pid int) error {
	return syscall.Kill(-pid, syscall.SIGKILL)
}

// Terminate asks the process to shut down cooperatively with SIGTERM.
func Terminate(p *os.Process) error {
	return p.Signal(syscall.SIGTERM)
}

// Alive reports whether a process with the given pid currently exists.
// Signal 0 performs the existence and permission checks without delivering
// anything. A zombie still counts as existing; callers that care reap their
// own children and never see that state here.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	return syscall.Kill(pid, 0) == nil
}
