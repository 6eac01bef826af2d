//go:build windows

package proctree

import (
	"os"
	"os/exec"
	"strconv"
)

// Kill forcefully terminates the process tree rooted at pid. Windows has no
// process-group signal, so termination is delegated to taskkill: /t walks
// the child tree, /f forces termination without consent.
func Kill(pid int) error {
	return exec.Command("taskkill", "/t", "/f", "/pid", strconv.Itoa(pid)).Run()
}

// Terminate stops the process. os.Process.Signal does not support SIGTERM
// delivery on Windows, so this is as forceful as Kill but scoped to the
// single process.
func Terminate(p *os.Process) error {
	return p.Kill()
}

// Alive reports whether a process with the given pid currently exists.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	defer func() { _ = p.Release() }()
	return true
}
