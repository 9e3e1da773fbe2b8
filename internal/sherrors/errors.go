// Package sherrors holds the error taxonomy shared across the Sharingway
// core. Failures that fall under this taxonomy are reported through these
// sentinels, wrapped with fmt.Errorf("%w: ...") context; other failures
// (an OS error outside the taxonomy, a missing registry entry, a repeated
// Initialize) are returned as plain errors. No operation panics across the
// embedding boundary.
package sherrors

import "errors"

var (
	// ErrAccessDenied means the OS refused to create or open a named
	// object with the requested scope.
	ErrAccessDenied = errors.New("sharingway: access denied")

	// ErrNotAttached means the handle is valid but the underlying object
	// is gone (use after Close/Shutdown).
	ErrNotAttached = errors.New("sharingway: not attached")

	// ErrOversize means a frame does not fit in its segment.
	ErrOversize = errors.New("sharingway: frame oversize")

	// ErrInvalid means the length prefix is out of range, or the bytes at
	// the frame offset failed to parse.
	ErrInvalid = errors.New("sharingway: invalid frame")

	// ErrTimeout means a lock or wait exceeded its deadline.
	ErrTimeout = errors.New("sharingway: timeout")

	// ErrAbandoned means a mutex was released by process death; the
	// caller must treat the guarded state as possibly inconsistent.
	ErrAbandoned = errors.New("sharingway: abandoned lock")

	// ErrEmpty means a read was attempted when no payload has been
	// written (L == 0).
	ErrEmpty = errors.New("sharingway: empty frame")
)

// Is reports whether err is, or wraps, target. Thin wrapper kept so
// call sites don't need to import errors directly for the common case.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
