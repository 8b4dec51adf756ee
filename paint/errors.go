package paint

import "errors"

var (
	// ErrStaleDisplayList is returned for a display list older than the
	// newest one the task has accepted.
	ErrStaleDisplayList = errors.New("paint: stale display list")

	// ErrNotStarted is returned when work is submitted before Start.
	ErrNotStarted = errors.New("paint: task not started")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("paint: task closed")

	// ErrSuperseded is returned by Paint when a newer display list replaced
	// the one being painted before it completed.
	ErrSuperseded = errors.New("paint: epoch superseded")

	// ErrEmptyViewport is returned for a viewport with no device pixels.
	ErrEmptyViewport = errors.New("paint: empty viewport")
)
