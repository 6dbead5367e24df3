package engine

import "errors"

var (
	// ErrNoActiveTab is returned when an action needs the foreground tab and
	// there is none, or it does not show an http(s) page.
	ErrNoActiveTab = errors.New("no active http(s) tab")

	// ErrTabNotFound is returned by a Host for an unknown tab ID.
	ErrTabNotFound = errors.New("tab not found")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("engine is closed")
)
