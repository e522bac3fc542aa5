// Package errs defines the error taxonomy used across updatectl: kinds, not
// types. Every error a component returns wraps one of these sentinels so
// callers can classify failures with errors.Is while still carrying
// server/command context in the message, following the teacher's plain
// error-returning style rather than a custom error-value framework.
package errs

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel kinds. Per spec.md §7 these are kinds, not concrete types: a
// single wrapping constructor per kind keeps call sites uniform.
var (
	ErrConfiguration  = errors.New("configuration error")
	ErrTransport      = errors.New("transport error")
	ErrTimeout        = errors.New("timeout")
	ErrParse          = errors.New("parse error")
	ErrOperation      = errors.New("operation error")
	ErrAuthentication = errors.New("authentication error")
	ErrSpawn          = errors.New("spawn error")
)

// Configuration wraps a bad server spec or missing required configuration.
func Configuration(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrConfiguration}, args...)...)
}

// Transport wraps an SSH-denied/refused or Docker-socket-unreachable failure
// for the named server.
func Transport(server string, cause error) error {
	return fmt.Errorf("%w: server %s: %w", ErrTransport, server, cause)
}

// Timeout wraps a deadline-exceeded failure with the elapsed duration and
// target server.
func Timeout(server string, elapsed time.Duration) error {
	return fmt.Errorf("%w: server %s: elapsed %s", ErrTimeout, server, elapsed)
}

// Parse wraps a malformed-input failure (JSON, size string, timestamp).
// Callers that hit this are expected to fall back to a zero value per
// spec.md §7, not to abort.
func Parse(what string, cause error) error {
	return fmt.Errorf("%w: %s: %w", ErrParse, what, cause)
}

// Operation wraps a non-zero-exit failure from a mutating command (pull,
// prune, restart). Accumulated into a result's Errors list, never aborts
// the caller outright.
func Operation(what string, cause error) error {
	return fmt.Errorf("%w: %s: %w", ErrOperation, what, cause)
}

// Authentication wraps a webhook token mismatch.
func Authentication(requestID string) error {
	return fmt.Errorf("%w: request %s", ErrAuthentication, requestID)
}

// Spawn wraps a failure to start a local process (binary missing, exec
// permission denied before the process ever ran).
func Spawn(server string, cause error) error {
	return fmt.Errorf("%w: server %s: %w", ErrSpawn, server, cause)
}
