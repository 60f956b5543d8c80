package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/arena-session-api/internal/models"
)

const (
	sessionKeyPrefix = "session:"
	// sessionRetention keeps dead records around after their expiry for inspection.
	sessionRetention = 24 * time.Hour
)

// renewScript rewrites expiresOn on a live session and pushes out the key TTL.
// ARGV: expiresOn, updatedOn, keep-until ms, new expiry ms, now ms.
var renewScript = redis.NewScript(`
local raw = redis.call('GET', KEYS[1])
if not raw then return false end
local s = cjson.decode(raw)
if s.expired then return false end
if (tonumber(s.expiresAtMs) or 0) <= tonumber(ARGV[5]) then return false end
s.expiresOn = ARGV[1]
s.updatedOn = ARGV[2]
s.expiresAtMs = tonumber(ARGV[4])
local out = cjson.encode(s)
redis.call('SET', KEYS[1], out, 'PXAT', ARGV[3])
return out
`)

// expireScript flips expired to true on a non-expired session.
var expireScript = redis.NewScript(`
local raw = redis.call('GET', KEYS[1])
if not raw then return false end
local s = cjson.decode(raw)
if s.expired then return false end
s.expired = true
s.updatedOn = ARGV[1]
local out = cjson.encode(s)
redis.call('SET', KEYS[1], out, 'KEEPTTL')
return out
`)

// redisSession is the stored document. ExpiresAtMs mirrors ExpiresOn as epoch
// milliseconds so scripts can compare it numerically.
type redisSession struct {
	models.Session
	ExpiresAtMs int64 `json:"expiresAtMs"`
}

// RedisSessionRepository stores sessions as JSON documents in Redis. State
// transitions run as Lua scripts so each one is atomic on the server.
type RedisSessionRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisSessionRepository constructs a Redis backed session store.
func NewRedisSessionRepository(client *redis.Client, logger *zap.Logger) *RedisSessionRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisSessionRepository{client: client, logger: logger}
}

func sessionKey(userID, sessionID string) string {
	return sessionKeyPrefix + userID + ":" + sessionID
}

// Create writes the session only if the key does not exist yet.
func (r *RedisSessionRepository) Create(ctx context.Context, session *models.Session) (int64, error) {
	payload, err := json.Marshal(redisSession{Session: *session, ExpiresAtMs: session.ExpiresOn.UnixMilli()})
	if err != nil {
		return 0, fmt.Errorf("marshal session: %w", err)
	}

	key := sessionKey(session.UserID, session.ID)
	_, err = r.client.SetArgs(ctx, key, payload, redis.SetArgs{
		Mode:     "NX",
		ExpireAt: session.ExpiresOn.Add(sessionRetention),
	}).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis create session %s: %w", key, err)
	}
	return 1, nil
}

// Load returns the non-expired session, or nil.
func (r *RedisSessionRepository) Load(ctx context.Context, userID, sessionID string) (*models.Session, error) {
	key := sessionKey(userID, sessionID)
	raw, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis load session %s: %w", key, err)
	}

	session, err := decodeSession(raw)
	if err != nil {
		return nil, err
	}
	if session.Expired {
		return nil, nil
	}
	return session, nil
}

// Renew extends a session that is neither expired nor past its expiry.
func (r *RedisSessionRepository) Renew(ctx context.Context, userID, sessionID string, expiresOn time.Time) (*models.Session, error) {
	now := time.Now().UTC()
	keepUntil := expiresOn.Add(sessionRetention).UnixMilli()
	return r.run(ctx, renewScript, "renew", sessionKey(userID, sessionID),
		formatTime(expiresOn), formatTime(now), strconv.FormatInt(keepUntil, 10),
		strconv.FormatInt(expiresOn.UnixMilli(), 10), strconv.FormatInt(now.UnixMilli(), 10))
}

// Expire marks a non-expired session as expired.
func (r *RedisSessionRepository) Expire(ctx context.Context, userID, sessionID string) (*models.Session, error) {
	return r.run(ctx, expireScript, "expire", sessionKey(userID, sessionID), formatTime(time.Now().UTC()))
}

func (r *RedisSessionRepository) run(ctx context.Context, script *redis.Script, op, key string, args ...interface{}) (*models.Session, error) {
	raw, err := script.Run(ctx, r.client, []string{key}, args...).Text()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis %s session %s: %w", op, key, err)
	}
	r.logger.Debug("session script applied", zap.String("op", op), zap.String("key", key))
	return decodeSession([]byte(raw))
}

func decodeSession(raw []byte) (*models.Session, error) {
	var session models.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &session, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
