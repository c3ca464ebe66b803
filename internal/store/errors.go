package store

import "errors"

// ErrUnavailable indicates the backing cache could not be reached. Callers
// degrade the affected operation instead of failing the connection.
var ErrUnavailable = errors.New("session store unavailable")
