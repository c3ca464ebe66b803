package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"tutorboard/internal/topic"
	"tutorboard/pkg/types"
)

// RedisStore implements interfaces.SessionStore on a Redis client. Redis
// serializes commands per key, and the one read-modify-write operation
// (conversation append) runs under WATCH, so concurrent users never
// interleave on a key.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis at the given URL (redis://host:port/db).
func NewRedisStore(url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return &RedisStore{client: redis.NewClient(opts)}, nil
}

// NewRedisStoreWithClient wraps an existing client. Used by tests with
// miniature or pooled clients.
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// AppendConversation prepends the record to the user's list under WATCH so
// two messages from different devices cannot drop each other's entries.
func (s *RedisStore) AppendConversation(ctx context.Context, userID string, rec types.ConversationRecord) error {
	key := conversationsKey(userID)
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		var records []types.ConversationRecord
		val, err := tx.Get(ctx, key).Result()
		if err != nil && err != redis.Nil {
			return err
		}
		if err == nil {
			// A corrupt list is discarded rather than wedging the user.
			if uerr := json.Unmarshal([]byte(val), &records); uerr != nil {
				records = nil
			}
		}

		records = append([]types.ConversationRecord{rec}, records...)
		if len(records) > MaxConversations {
			records = records[:MaxConversations]
		}

		data, err := json.Marshal(records)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, ConversationTTL)
			return nil
		})
		return err
	}, key)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Conversations returns the user's list, newest first. A missing key is an
// empty list, not an error.
func (s *RedisStore) Conversations(ctx context.Context, userID string) ([]types.ConversationRecord, error) {
	val, err := s.client.Get(ctx, conversationsKey(userID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var records []types.ConversationRecord
	if err := json.Unmarshal([]byte(val), &records); err != nil {
		return nil, fmt.Errorf("corrupt conversation list for %s: %w", userID, err)
	}
	return records, nil
}

// ReplaceAssessment writes the assessment under both its user+topic key and
// its ID key in one transaction. SET overwrites any prior assessment for
// the topic, so there is no window where neither key resolves.
func (s *RedisStore) ReplaceAssessment(ctx context.Context, userID string, a *types.Assessment) error {
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	topicKey := assessmentTopicKey(userID, topic.Normalize(a.Topic))
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, topicKey, data, AssessmentTTL)
		pipe.Set(ctx, assessmentIDKey(a.ID), data, AssessmentTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// AssessmentByID returns (nil, nil) when the ID is unknown or expired.
func (s *RedisStore) AssessmentByID(ctx context.Context, id string) (*types.Assessment, error) {
	val, err := s.client.Get(ctx, assessmentIDKey(id)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var a types.Assessment
	if err := json.Unmarshal([]byte(val), &a); err != nil {
		return nil, fmt.Errorf("corrupt assessment %s: %w", id, err)
	}
	return &a, nil
}

func (s *RedisStore) SaveResult(ctx context.Context, userID, assessmentID string, r *types.AssessmentResult) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, resultKey(userID, assessmentID), data, ResultTTL).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// ResultsByUser scans the user's result keys. SCAN keeps the server
// responsive where KEYS would block on large keyspaces.
func (s *RedisStore) ResultsByUser(ctx context.Context, userID string) ([]types.AssessmentResult, error) {
	var results []types.AssessmentResult
	iter := s.client.Scan(ctx, 0, resultKeyPattern(userID), 0).Iterator()
	for iter.Next(ctx) {
		val, err := s.client.Get(ctx, iter.Val()).Result()
		if err == redis.Nil {
			continue // expired between scan and read
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		var r types.AssessmentResult
		if err := json.Unmarshal([]byte(val), &r); err != nil {
			continue
		}
		results = append(results, r)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return results, nil
}

func (s *RedisStore) ChatHistory(ctx context.Context, userID, t string) ([]types.ChatEntry, error) {
	val, err := s.client.Get(ctx, chatHistoryKey(userID, t)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var entries []types.ChatEntry
	if err := json.Unmarshal([]byte(val), &entries); err != nil {
		return nil, nil
	}
	return entries, nil
}

func (s *RedisStore) ClearTopicContext(ctx context.Context, userID, t string) error {
	topicKey := topic.Normalize(t)
	err := s.client.Del(ctx,
		lessonContextKey(userID, topicKey),
		assessmentTopicKey(userID, topicKey),
	).Err()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
