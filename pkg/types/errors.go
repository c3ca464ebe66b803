package types

import "errors"

// Validation errors surfaced before a message enters the session flow.
var (
	ErrInvalidUserID      = errors.New("user ID must be 1-50 characters, alphanumeric + underscore/hyphen only")
	ErrUnsupportedMessage = errors.New("unsupported message type or missing data")
)
