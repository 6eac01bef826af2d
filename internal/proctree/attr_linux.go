//go:build linux

package proctree

import (
	"os/exec"
	"syscall"
)

// SetGroupAttr configures cmd to start as the leader of a new process group
// so the whole subtree can later be signaled as a unit. Pdeathsig
// additionally makes the kernel deliver SIGKILL to the child if this process
// dies abruptly, closing the orphan window that user-space exit hooks cannot
// cover (e.g. SIGKILL of the host).
func SetGroupAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: syscall.SIGKILL,
	}
}
