// Package exithook maintains an ordered, process-wide registry of shutdown
// hooks. Each supervisor registers a guard that forcefully kills its child,
// so that a host terminating for any reason can run the hooks and never
// leave orphaned process trees behind. Hooks run in registration order,
// exactly once each, and deregistration is idempotent.
package exithook
