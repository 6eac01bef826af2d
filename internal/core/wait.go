package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/giantswarm/subproc/internal/sentinel"
)

// Sentinel errors returned by WaitReady for invalid configuration and
// process lifecycle conditions, matchable with errors.Is through wrapped
// chains.
const (
	// ErrIntervalNotPositive indicates a non-positive poll interval.
	ErrIntervalNotPositive = sentinel.Error("interval must be positive")

	// ErrTimeoutNotPositive indicates a non-positive timeout.
	ErrTimeoutNotPositive = sentinel.Error("timeout must be positive")

	// ErrProcessExited indicates the process exited before becoming ready.
	ErrProcessExited = sentinel.Error("process exited before becoming ready")
)

// ReadinessCheck probes whether the launched process is ready, for
// readiness signals that are not line-based (a TCP port accepting
// connections, a health endpoint answering). The context is canceled when
// the polling loop times out or the caller cancels. attempt is 1-based.
// Returning true stops polling as ready; a non-nil error is fatal and
// aborts polling.
type ReadinessCheck func(ctx context.Context, attempt int) (ready bool, err error)

// WaitReadyConfig configures the polling behavior of WaitReady.
type WaitReadyConfig struct {
	Interval      time.Duration   // poll interval
	Timeout       time.Duration   // overall timeout
	Name          string          // for log and error context
	Logger        *slog.Logger    // optional, defaults to the package logger
	ProcessExited <-chan struct{} // if non-nil, abort as soon as it is closed
}

// WaitReady polls check until it reports ready, returns a fatal error, the
// timeout elapses, or the supervised process exits. It is the poll-based
// companion to AwaitLine for processes whose readiness is observable only
// from the outside.
func WaitReady(ctx context.Context, cfg WaitReadyConfig, check ReadinessCheck) error {
	if cfg.Name == "" {
		cfg.Name = "process"
	}
	if cfg.Interval <= 0 {
		return fmt.Errorf("wait for %s: %w", cfg.Name, ErrIntervalNotPositive)
	}
	if cfg.Timeout <= 0 {
		return fmt.Errorf("wait for %s: %w", cfg.Name, ErrTimeoutNotPositive)
	}

	log := cfg.Logger
	if log == nil {
		log = Logger()
	}

	// attempt needs no synchronization: PollUntilContextTimeout invokes
	// the condition sequentially, never concurrently with itself.
	attempt := 0
	if err := wait.PollUntilContextTimeout(ctx, cfg.Interval, cfg.Timeout, true,
		func(pollCtx context.Context) (bool, error) {
			// A dead process can never become ready; abort instead of
			// burning the rest of the timeout.
			if cfg.ProcessExited != nil {
				select {
				case <-cfg.ProcessExited:
					return false, fmt.Errorf("%s: %w", cfg.Name, ErrProcessExited)
				default:
				}
			}

			attempt++
			ready, err := check(pollCtx, attempt)
			if err != nil {
				return false, err
			}
			if ready {
				log.Debug("readiness wait succeeded", "name", cfg.Name, "attempt", attempt)
			}
			return ready, nil
		}); err != nil {
		return fmt.Errorf("wait for %s readiness: %w", cfg.Name, err)
	}
	return nil
}
