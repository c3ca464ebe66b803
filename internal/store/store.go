// Package store implements the session store: a key-value cache with
// per-key expiration holding recent conversations, pending assessments and
// graded results. The Redis driver backs production; the in-memory driver
// backs tests.
package store

import "time"

// Record lifetimes. Conversations survive a month; assessments and their
// results expire after an hour.
const (
	ConversationTTL = 30 * 24 * time.Hour
	AssessmentTTL   = time.Hour
	ResultTTL       = time.Hour

	// MaxConversations caps a user's conversation list.
	MaxConversations = 20
)

const (
	resultKeyPrefix = "assessment_result:"
)

func conversationsKey(userID string) string {
	return "user_conversations:" + userID
}

func assessmentTopicKey(userID, topicKey string) string {
	return "assessment:" + userID + ":" + topicKey
}

func assessmentIDKey(id string) string {
	return "assessment:" + id
}

func resultKey(userID, assessmentID string) string {
	return resultKeyPrefix + userID + ":" + assessmentID
}

func resultKeyPattern(userID string) string {
	return resultKeyPrefix + userID + ":*"
}

func chatHistoryKey(userID, topic string) string {
	return "chat_history:" + userID + ":" + topic
}

func lessonContextKey(userID, topicKey string) string {
	return "lesson_context:" + userID + ":" + topicKey
}
