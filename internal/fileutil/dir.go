package fileutil

import (
	"fmt"
	"os"
)

// EnsureDir creates a directory and all parent directories if they don't exist.
// Uses mode 0755. Returns nil if the directory already exists.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", path, err)
	}
	return nil
}

// RemoveDir removes a directory tree. A directory that does not exist is not
// an error, making RemoveDir safe to call from multiple shutdown paths (a
// normal-exit cleanup and a forceful-kill cleanup may both attempt the same
// directory).
func RemoveDir(path string) error {
	if path == "" {
		return nil
	}
	// os.RemoveAll already returns nil when the path does not exist; the
	// explicit check documents the idempotency contract and avoids a
	// misleading wrapped error for the empty-path case above.
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("remove directory %s: %w", path, err)
	}
	return nil
}
