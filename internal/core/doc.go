// Package core implements the subprocess supervisor: spawning, output
// relaying, the graceful/forceful shutdown state machine, signal
// forwarding, and the readiness helpers. The root subproc package is a
// thin public façade over this package.
package core
