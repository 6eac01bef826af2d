// Package sentinel provides an immutable error type for sentinel error declarations.
//
// Sentinel errors declared with errors.New are variables that consumers can
// in principle reassign. Error is a string-based error type that can be
// declared as a const, keeping sentinels immutable while remaining
// compatible with errors.Is through wrapped error chains.
package sentinel
