package fontcache

import "errors"

// Sentinel errors for the fontcache package.
var (
	// ErrNotFound is returned when no installed, bundled or configured face
	// matches a descriptor. Callers substitute the last-resort font.
	ErrNotFound = errors.New("fontcache: font not found")

	// ErrClosed is returned by a closed Service or Client.
	ErrClosed = errors.New("fontcache: closed")

	// ErrUnknownOp is returned for a request with an unsupported operation.
	ErrUnknownOp = errors.New("fontcache: unknown operation")
)
