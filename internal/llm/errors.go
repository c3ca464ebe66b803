package llm

import "errors"

// ErrCompletionUnavailable indicates the model call failed at the transport
// or API level. Callers recover with a fixed apology string instead of
// surfacing this as a protocol error.
var ErrCompletionUnavailable = errors.New("completion unavailable")
