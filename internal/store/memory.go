package store

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"tutorboard/internal/topic"
	"tutorboard/pkg/types"
)

type memEntry struct {
	data    []byte
	expires time.Time
}

func (e memEntry) expired(now time.Time) bool {
	return !e.expires.IsZero() && now.After(e.expires)
}

// MemoryStore implements interfaces.SessionStore on a mutex-guarded map
// with per-key expiry. Values round-trip through JSON exactly as the Redis
// driver's do, so tests exercise the same encoding paths.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memEntry
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memEntry),
		now:     time.Now,
	}
}

// SetClock overrides the store's clock. Tests use it to force expiry.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) set(key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memEntry{data: data, expires: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) get(key string, v any) (bool, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	now := s.now()
	s.mu.RUnlock()
	if !ok || entry.expired(now) {
		return false, nil
	}
	if err := json.Unmarshal(entry.data, v); err != nil {
		return false, err
	}
	return true, nil
}

func (s *MemoryStore) AppendConversation(ctx context.Context, userID string, rec types.ConversationRecord) error {
	key := conversationsKey(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	var records []types.ConversationRecord
	if entry, ok := s.entries[key]; ok && !entry.expired(s.now()) {
		_ = json.Unmarshal(entry.data, &records)
	}
	records = append([]types.ConversationRecord{rec}, records...)
	if len(records) > MaxConversations {
		records = records[:MaxConversations]
	}
	data, err := json.Marshal(records)
	if err != nil {
		return err
	}
	s.entries[key] = memEntry{data: data, expires: s.now().Add(ConversationTTL)}
	return nil
}

func (s *MemoryStore) Conversations(ctx context.Context, userID string) ([]types.ConversationRecord, error) {
	var records []types.ConversationRecord
	if _, err := s.get(conversationsKey(userID), &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *MemoryStore) ReplaceAssessment(ctx context.Context, userID string, a *types.Assessment) error {
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	topicKey := assessmentTopicKey(userID, topic.Normalize(a.Topic))
	s.mu.Lock()
	defer s.mu.Unlock()
	expires := s.now().Add(AssessmentTTL)
	s.entries[topicKey] = memEntry{data: data, expires: expires}
	s.entries[assessmentIDKey(a.ID)] = memEntry{data: data, expires: expires}
	return nil
}

func (s *MemoryStore) AssessmentByID(ctx context.Context, id string) (*types.Assessment, error) {
	var a types.Assessment
	ok, err := s.get(assessmentIDKey(id), &a)
	if err != nil || !ok {
		return nil, err
	}
	return &a, nil
}

func (s *MemoryStore) SaveResult(ctx context.Context, userID, assessmentID string, r *types.AssessmentResult) error {
	return s.set(resultKey(userID, assessmentID), r, ResultTTL)
}

func (s *MemoryStore) ResultsByUser(ctx context.Context, userID string) ([]types.AssessmentResult, error) {
	prefix := resultKeyPrefix + userID + ":"
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []types.AssessmentResult
	now := s.now()
	for key, entry := range s.entries {
		if !strings.HasPrefix(key, prefix) || entry.expired(now) {
			continue
		}
		var r types.AssessmentResult
		if err := json.Unmarshal(entry.data, &r); err != nil {
			continue
		}
		results = append(results, r)
	}
	return results, nil
}

func (s *MemoryStore) ChatHistory(ctx context.Context, userID, t string) ([]types.ChatEntry, error) {
	var entries []types.ChatEntry
	if _, err := s.get(chatHistoryKey(userID, t), &entries); err != nil {
		return nil, nil
	}
	return entries, nil
}

// SetChatHistory seeds stored chat turns. The session backend never writes
// these in production; tests and the read-side projection need them.
func (s *MemoryStore) SetChatHistory(userID, t string, entries []types.ChatEntry) error {
	return s.set(chatHistoryKey(userID, t), entries, ConversationTTL)
}

func (s *MemoryStore) ClearTopicContext(ctx context.Context, userID, t string) error {
	topicKey := topic.Normalize(t)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, lessonContextKey(userID, topicKey))
	delete(s.entries, assessmentTopicKey(userID, topicKey))
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close drops all stored entries. The store stays usable afterwards, like
// a flushed cache.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]memEntry)
	return nil
}
