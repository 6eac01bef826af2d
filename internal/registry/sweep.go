package registry

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"github.com/giantswarm/subproc/internal/fileutil"
	"github.com/giantswarm/subproc/internal/proctree"
)

// lockName is the cross-process lock file serializing sweeps.
const lockName = "sweep.lock"

// lockRetryInterval is the interval between attempts to acquire the sweep
// lock. 50ms balances responsiveness against busy-polling overhead.
const lockRetryInterval = 50 * time.Millisecond

// sweepConcurrency caps parallel per-row reaping during a sweep.
const sweepConcurrency = 4

// Sweep reaps launches whose owner process is gone: it kills each such
// child's process tree (if still alive), removes its temp directories, and
// deletes the row. Rows whose owner is still running are left alone.
// Returns the number of rows swept.
//
// A sweep holds an exclusive file lock for its duration, so concurrent
// sweeps from different hosts serialize rather than double-kill a pid that
// the OS may already have reused.
func Sweep(ctx context.Context, dir string, log *slog.Logger) (int, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := fileutil.EnsureDir(dir); err != nil {
		return 0, err
	}

	fl := flock.New(filepath.Join(dir, lockName))
	locked, err := fl.TryLockContext(ctx, lockRetryInterval)
	if err != nil {
		return 0, fmt.Errorf("acquire sweep lock: %w", err)
	}
	if !locked {
		return 0, fmt.Errorf("acquire sweep lock: lock not acquired")
	}
	// The lock file is intentionally left on disk; removing it could
	// invalidate a lock concurrently acquired by another process.
	defer func() {
		if err := fl.Close(); err != nil {
			log.Debug("release sweep lock", "path", fl.Path(), "error", err)
		}
	}()

	db, err := open(dir)
	if err != nil {
		return 0, err
	}
	defer func() { _ = db.Close() }()

	entries, err := list(db)
	if err != nil {
		return 0, err
	}

	var swept atomic.Int64
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(sweepConcurrency)
	for _, e := range entries {
		e := e
		g.Go(func() error {
			if gCtx.Err() != nil {
				return gCtx.Err()
			}
			if proctree.Alive(e.OwnerPID) {
				// Owner still running; the launch is not stale.
				return nil
			}

			if proctree.Alive(e.PID) {
				if err := proctree.Kill(e.PID); err != nil {
					// Benign race: the tree died between the liveness
					// probe and the kill.
					log.Debug("sweep kill", "pid", e.PID, "error", err)
				} else {
					log.Info("swept stale process tree", "pid", e.PID, "path", e.Path)
				}
			}
			for _, d := range e.TempDirs {
				if err := fileutil.RemoveDir(d); err != nil {
					log.Debug("sweep temp dir removal failed", "dir", d, "error", err)
				}
			}
			if _, err := db.ExecContext(gCtx, `DELETE FROM launches WHERE pid = ?`, e.PID); err != nil {
				return fmt.Errorf("delete swept row pid %d: %w", e.PID, err)
			}
			swept.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(swept.Load()), err
	}
	return int(swept.Load()), nil
}
