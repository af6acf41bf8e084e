// Package errors provides foundational, type-safe error primitives for the
// preview daemon.
//
// The failure taxonomy of the daemon maps onto ErrorCategory values:
// missing files and sessions are not_found, workspace boundary violations are
// path, regeneration failures are template or render, and storage failures
// are filesystem. Categories let each boundary decide containment without
// string-matching messages: a path error is always rejected outright, a
// filesystem error during eviction is retried by the next sweep, and only
// config errors at startup terminate the process.
package errors
