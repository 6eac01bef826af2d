//go:build unix && !linux

package proctree

import (
	"os/exec"
	"syscall"
)

// SetGroupAttr configures cmd to start as the leader of a new process group
// so the whole subtree can later be signaled as a unit. Pdeathsig is a
// Linux-only kernel feature and is not available here.
func SetGroupAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}
