package subproc

import (
	"context"

	"github.com/giantswarm/subproc/internal/core"
	"github.com/giantswarm/subproc/internal/registry"
)

// SweepStale reaps launches recorded in the registry at dir whose owning
// host process is no longer alive: each such child's process tree is
// forcefully killed (if still running) and its temp directories are
// removed. Launches whose owner is still running are untouched. Returns
// the number of stale launches reaped.
//
// Sweeps are serialized across processes with a file lock inside dir, so
// it is safe for several hosts to call SweepStale concurrently, e.g. at
// startup. Use together with Options.RegistryDir.
func SweepStale(ctx context.Context, dir string) (int, error) {
	return registry.Sweep(ctx, dir, core.Logger())
}
