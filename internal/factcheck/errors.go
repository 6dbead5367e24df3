package factcheck

import "errors"

var (
	// ErrLookupFailure is returned when the lookup service fails or answers with an error status.
	ErrLookupFailure = errors.New("fact-check lookup failed")

	// ErrUnauthorized is returned when the proxy rejects the extension key.
	ErrUnauthorized = errors.New("fact-check proxy rejected the api key")

	// ErrMissingQuery is returned for an empty search query.
	ErrMissingQuery = errors.New("missing query parameter")
)
