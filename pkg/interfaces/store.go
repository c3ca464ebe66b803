package interfaces

import (
	"context"

	"tutorboard/pkg/types"
)

// SessionStore is the time-bounded cache holding session-scoped records:
// recent conversations, pending assessments and graded results. All
// implementations must be safe for concurrent use across users and must
// serialize access to a given key internally.
type SessionStore interface {
	// AppendConversation prepends a record to the user's conversation list,
	// capping the list at its maximum length.
	AppendConversation(ctx context.Context, userID string, rec types.ConversationRecord) error

	// Conversations returns the user's conversation list, newest first.
	Conversations(ctx context.Context, userID string) ([]types.ConversationRecord, error)

	// ReplaceAssessment atomically replaces the live assessment for the
	// user+topic pair and indexes it by ID for submission lookup. There is
	// never a visible gap where no assessment exists under either key.
	ReplaceAssessment(ctx context.Context, userID string, a *types.Assessment) error

	// AssessmentByID returns the assessment indexed by the opaque ID, or
	// (nil, nil) when it is unknown or expired.
	AssessmentByID(ctx context.Context, id string) (*types.Assessment, error)

	// SaveResult persists a graded result, written once per submission.
	SaveResult(ctx context.Context, userID, assessmentID string, r *types.AssessmentResult) error

	// ResultsByUser returns every non-expired graded result for the user,
	// in no particular order.
	ResultsByUser(ctx context.Context, userID string) ([]types.AssessmentResult, error)

	// ChatHistory returns stored chat turns for a user+topic, or an empty
	// slice when none exist. The session backend only reads these.
	ChatHistory(ctx context.Context, userID, topic string) ([]types.ChatEntry, error)

	// ClearTopicContext removes the lesson context and live assessment for
	// a user+topic pair.
	ClearTopicContext(ctx context.Context, userID, topic string) error

	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error

	// Close releases store resources.
	Close() error
}
