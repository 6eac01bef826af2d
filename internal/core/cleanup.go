package core

import (
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/giantswarm/subproc/internal/fileutil"
)

// removeConcurrency caps the number of parallel directory removals. Temp
// directory sets are small; the cap only matters when a caller hands over
// many directories on a slow filesystem.
const removeConcurrency = 4

// cleaner performs idempotent, best-effort removal of the temporary
// directories owned by one launch. Removal is attempted from two paths (the
// asynchronous exit-observer path and the synchronous forceful-kill path);
// the mutex serializes them so both can run to completion without racing on
// the same tree, and a directory already removed by one path is simply a
// no-op for the other.
type cleaner struct {
	mu   sync.Mutex
	dirs []string
	log  *slog.Logger
}

func newCleaner(dirs []string, log *slog.Logger) *cleaner {
	return &cleaner{dirs: dirs, log: log}
}

// removeAll deletes every directory in the set. Errors are logged at Debug
// and swallowed: resource cleanup must never cause a launch, a close, or a
// kill to fail.
func (c *cleaner) removeAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.dirs) == 0 {
		return
	}

	g := new(errgroup.Group)
	g.SetLimit(removeConcurrency)
	for _, dir := range c.dirs {
		dir := dir
		g.Go(func() error {
			if err := fileutil.RemoveDir(dir); err != nil {
				c.log.Debug("temp directory removal failed", "dir", dir, "error", err)
			}
			return nil
		})
	}
	// errgroup always returns nil here since goroutines always return nil.
	_ = g.Wait()
}
