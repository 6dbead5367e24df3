package host

import "errors"

// ErrNoSnapshot is returned when no snapshot is available for a tab.
var ErrNoSnapshot = errors.New("no snapshot available for tab")
