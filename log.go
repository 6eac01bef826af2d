package subproc

import (
	"log/slog"

	"github.com/giantswarm/subproc/internal/core"
)

// SetLogger replaces the package-level logger used by subproc. It is the
// default sink for relayed output lines and operational messages of
// launches that do not carry their own Options.Logger.
//
// If l is nil, the logger resets to the default: slog.Default() with a
// "component" attribute, re-derived on the next use and then cached. Call
// SetLogger(nil) after slog.SetDefault() to pick up changes.
//
// SetLogger is safe to call concurrently with other subproc operations;
// both the custom logger and the cached default are stored as atomic
// pointers. For a strict happens-before guarantee, call SetLogger before
// launching.
func SetLogger(l *slog.Logger) {
	core.SetLogger(l)
}
