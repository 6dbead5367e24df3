package pipeline

import "errors"

var (
	// ErrNoSnapshot is returned when a pipeline needs a screenshot and none was captured.
	ErrNoSnapshot = errors.New("no page snapshot available")

	// ErrAnalysisFailure wraps a model failure that a handler recorded as an error verdict.
	ErrAnalysisFailure = errors.New("page analysis failed")
)
