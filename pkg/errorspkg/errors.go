// Package errorspkg provides common app errors.
package errorspkg

import "errors"

// ErrInternal indicates an opaque internal failure, typically from storage.
// The underlying cause is logged where it occurs, never returned to callers.
var ErrInternal = errors.New("internal")
