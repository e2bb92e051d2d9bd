package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// RedisStore persists sessions as JSON values that expire with the session TTL.
type RedisStore struct {
	redis  *redis.Client
	tracer trace.Tracer
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisStore creates a RedisStore. A non-positive ttl falls back to DefaultTTL.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if client == nil {
		panic("conversation: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{
		redis:  client,
		tracer: otel.Tracer("spa.internal.conversation.sessions"),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (s *RedisStore) GetState(ctx context.Context, userID string) (State, error) {
	sess, err := s.Load(ctx, userID)
	if err != nil {
		return StateIdle, err
	}
	if sess == nil {
		return StateIdle, nil
	}
	return sess.State, nil
}

func (s *RedisStore) GetData(ctx context.Context, userID string) (map[string]string, error) {
	sess, err := s.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return map[string]string{}, nil
	}
	return copyData(sess.Data), nil
}

func (s *RedisStore) SetState(ctx context.Context, userID string, state State, patch map[string]string) error {
	ctx, span := s.tracer.Start(ctx, "conversation.set_state")
	defer span.End()
	span.SetAttributes(attribute.String("conversation.state", string(state)))

	current, err := s.Load(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return err
	}
	var base map[string]string
	if current != nil {
		base = current.Data
	}
	return s.save(ctx, &Session{
		UserID:    userID,
		State:     state,
		Data:      mergeData(base, patch),
		UpdatedAt: s.now().UTC(),
	})
}

func (s *RedisStore) UpdateData(ctx context.Context, userID string, patch map[string]string) error {
	ctx, span := s.tracer.Start(ctx, "conversation.update_data")
	defer span.End()

	current, err := s.Load(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if current == nil {
		return nil
	}
	current.Data = mergeData(current.Data, patch)
	current.UpdatedAt = s.now().UTC()
	return s.save(ctx, current)
}

func (s *RedisStore) ClearState(ctx context.Context, userID string) error {
	ctx, span := s.tracer.Start(ctx, "conversation.clear_state")
	defer span.End()

	if strings.TrimSpace(userID) == "" {
		return ErrEmptyUserID
	}
	if err := s.redis.Del(ctx, sessionKey(userID)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to clear session: %w", err)
	}
	return nil
}

// Load returns the live session or nil when it is absent or expired.
func (s *RedisStore) Load(ctx context.Context, userID string) (*Session, error) {
	ctx, span := s.tracer.Start(ctx, "conversation.load_session")
	defer span.End()

	if strings.TrimSpace(userID) == "" {
		return nil, ErrEmptyUserID
	}
	data, err := s.redis.Get(ctx, sessionKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: failed to load session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: failed to decode session: %w", err)
	}
	if sess.Expired(s.now(), s.ttl) {
		return nil, nil
	}
	if sess.Data == nil {
		sess.Data = map[string]string{}
	}
	return &sess, nil
}

func (s *RedisStore) save(ctx context.Context, sess *Session) error {
	if strings.TrimSpace(sess.UserID) == "" {
		return ErrEmptyUserID
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("conversation: failed to marshal session: %w", err)
	}
	if err := s.redis.Set(ctx, sessionKey(sess.UserID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("conversation: failed to persist session: %w", err)
	}
	return nil
}

func sessionKey(userID string) string {
	return fmt.Sprintf("line:session:%s", userID)
}
