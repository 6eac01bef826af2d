// Package registry records launched child processes in a small SQLite
// database so that leftovers from a host that died without running its
// exit hooks can be reaped later. Each row holds the child pid, the owner
// (host) pid, the executable, and the launch's temporary directories.
//
// Sweep walks the rows, and for every row whose owner is no longer alive
// it kills the child's process tree and removes the temp directories.
// Sweeps across host processes are serialized with a file lock so two
// concurrent sweepers cannot race on the same rows.
package registry
