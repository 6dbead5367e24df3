package interceptor

import "errors"

// ErrNotArmed is returned when a tab has no armed interceptor session.
var ErrNotArmed = errors.New("interceptor is not armed for this tab")
