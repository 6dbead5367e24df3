package dispatch

import (
	"errors"

	"github.com/nao1215/swiftguard/internal/engine"
)

var (
	// ErrUnknownAction is returned for an action name no handler serves.
	ErrUnknownAction = errors.New("unknown action")

	// ErrInvalidRequest is returned when a request lacks a required field.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrNoActiveTab is returned when an action needs a foreground http(s) tab.
	ErrNoActiveTab = engine.ErrNoActiveTab
)
