package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"

	"github.com/AnshRaj112/vcard-backend/internal/apperr"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultSessionDuration is 7 days
	DefaultSessionDuration = 7 * 24 * time.Hour
	// SessionKeyPrefix is the Redis key prefix for sessions
	SessionKeyPrefix = "session:"
	// UserSessionsKeyPrefix is the Redis key prefix for the user->sessions set
	UserSessionsKeyPrefix = "user_sessions:"
)

// Session is the server-side state bound to one authenticated client.
type Session struct {
	Token     string    `json:"-"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionStore keeps sessions in Redis keyed by an opaque random token.
type SessionStore struct {
	rdb      *redis.Client
	duration time.Duration
	now      func() time.Time
}

func NewSessionStore(rdb *redis.Client, duration time.Duration) *SessionStore {
	if duration <= 0 {
		duration = DefaultSessionDuration
	}
	return &SessionStore{rdb: rdb, duration: duration, now: time.Now}
}

// Create stores a new session for userID and returns it with its token.
func (s *SessionStore) Create(ctx context.Context, userID, username string) (*Session, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return nil, apperr.Dependency("Failed to create session", err)
	}

	sess := &Session{
		Token:     base64.RawURLEncoding.EncodeToString(tokenBytes),
		UserID:    userID,
		Username:  username,
		CreatedAt: s.now().UTC(),
	}
	payload, err := json.Marshal(sess)
	if err != nil {
		return nil, apperr.Dependency("Failed to create session", err)
	}

	userKey := UserSessionsKeyPrefix + userID
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, SessionKeyPrefix+sess.Token, payload, s.duration)
	pipe.SAdd(ctx, userKey, sess.Token)
	pipe.Expire(ctx, userKey, s.duration)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, apperr.Dependency("Failed to create session", err)
	}

	return sess, nil
}

// Get resolves a token. Unknown or expired tokens yield ErrUnauthenticated.
func (s *SessionStore) Get(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, apperr.Unauthenticated("Please login to continue")
	}

	raw, err := s.rdb.Get(ctx, SessionKeyPrefix+token).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperr.Unauthenticated("Session expired. Please login again")
		}
		return nil, apperr.Dependency("Failed to load session", err)
	}

	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, apperr.Unauthenticated("Session expired. Please login again")
	}
	sess.Token = token
	return &sess, nil
}

// Destroy removes a session. Destroying an unknown token is not an error.
func (s *SessionStore) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	sessionKey := SessionKeyPrefix + token
	raw, err := s.rdb.Get(ctx, sessionKey).Bytes()
	if err == nil {
		var sess Session
		if json.Unmarshal(raw, &sess) == nil && sess.UserID != "" {
			s.rdb.SRem(ctx, UserSessionsKeyPrefix+sess.UserID, token)
		}
	} else if !errors.Is(err, redis.Nil) {
		return apperr.Dependency("Failed to end session", err)
	}

	if err := s.rdb.Del(ctx, sessionKey).Err(); err != nil {
		return apperr.Dependency("Failed to end session", err)
	}
	return nil
}

// DestroyAllForUser removes every session of userID and returns how many
// were live.
func (s *SessionStore) DestroyAllForUser(ctx context.Context, userID string) (int, error) {
	userKey := UserSessionsKeyPrefix + userID
	tokens, err := s.rdb.SMembers(ctx, userKey).Result()
	if err != nil {
		return 0, apperr.Dependency("Failed to end sessions", err)
	}

	keys := make([]string, 0, len(tokens)+1)
	for _, token := range tokens {
		keys = append(keys, SessionKeyPrefix+token)
	}
	keys = append(keys, userKey)

	deleted, err := s.rdb.Del(ctx, keys...).Result()
	if err != nil {
		return 0, apperr.Dependency("Failed to end sessions", err)
	}
	// The user set itself is counted by Del when present.
	live := int(deleted)
	if len(tokens) > 0 {
		live--
	}
	return live, nil
}
