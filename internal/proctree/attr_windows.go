//go:build windows

package proctree

import (
	"os/exec"
	"syscall"
)

// SetGroupAttr detaches the child from the console's Ctrl+C group so an
// interrupt meant for the host is not also delivered to the child by the
// console subsystem. Windows has no POSIX process groups; tree termination
// goes through taskkill instead (see Kill).
func SetGroupAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
	}
}
