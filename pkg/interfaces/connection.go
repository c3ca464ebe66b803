package interfaces

import "tutorboard/pkg/types"

// EventSink pushes asynchronous events to a user's live channel. Delivery
// is best-effort: events for users without a registered channel are
// silently dropped, and nothing survives a reconnect.
type EventSink interface {
	Send(userID string, event *types.Event)
}
