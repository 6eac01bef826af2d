// Package proctree isolates the platform-specific parts of process-tree
// management: starting a child as the leader of its own group, forcefully
// terminating the whole tree, and probing whether a pid is still alive.
//
// On POSIX platforms the child is started with Setpgid so a single kill
// signal sent to the negated group id reaches every descendant. Windows has
// no process groups in that sense; tree termination is delegated to the
// taskkill command instead.
package proctree
