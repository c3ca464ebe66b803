package types

import "regexp"

// Compiled once at package initialization; user IDs are validated on every
// connection attempt.
var userIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// IsValidUserID checks if a user ID meets format requirements.
func IsValidUserID(userID string) bool {
	if len(userID) < 1 || len(userID) > 50 {
		return false
	}
	return userIDRegex.MatchString(userID)
}

// Validate checks that the message carries a known type and the fields that
// type requires. The session loop reports a failure as an error event rather
// than dropping the connection.
func (m *ClientMessage) Validate() error {
	switch m.Type {
	case MessageTypeStartLesson, MessageTypeChatMessage, MessageTypeMessage:
		if m.Text() == "" {
			return ErrUnsupportedMessage
		}
	case MessageTypeStartAssessment:
		if m.Topic == "" {
			return ErrUnsupportedMessage
		}
	case MessageTypeSubmitAssessment:
		if m.AssessmentID == "" || len(m.Answers) == 0 {
			return ErrUnsupportedMessage
		}
	default:
		return ErrUnsupportedMessage
	}
	return nil
}
