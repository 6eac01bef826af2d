// Package fileutil provides file operation utilities for directory management.
//
// EnsureDir creates directories recursively and RemoveDirs performs the
// idempotent, best-effort removal that subproc applies to the temporary
// directories owned by a launch. Removal never fails a shutdown path: errors
// are collected for logging but an already-removed directory is not an error.
package fileutil
